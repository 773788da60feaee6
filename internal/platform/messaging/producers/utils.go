package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ensureTopicExists creates the topic when it cannot be found. Partition reads
// are retried because brokers may still be electing leaders right after startup.
func ensureTopicExists(conn *kafka.Conn, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for attempt := 1; attempt <= 5; attempt++ {
		partitions, err = conn.ReadPartitions(topic)
		if err == nil {
			break
		}
		log.Warn("Reading topic partitions failed, retrying", "topic", topic, "attempt", attempt, "error", err)
		time.Sleep(2 * time.Second)
	}

	if len(partitions) > 0 {
		if err != nil {
			log.Warn("Topic partition read finished with an error", "topic", topic, "error", err)
		} else {
			log.Info("Kafka topic already exists", "topic", topic)
		}
		return nil
	}

	log.Info("Kafka topic not found, creating it", "topic", topic, "last_read_error", err)
	if numPartitions <= 0 {
		numPartitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}
	if createErr := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}); createErr != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, createErr)
	}
	log.Info("Created Kafka topic", "topic", topic)
	return nil
}

package event_relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/outbox"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/platform/messaging/producers"
)

// EventPublisher pushes one outbox message onto the event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher implements EventPublisher on top of the ledger event topic.
// Poison payloads are diverted to the DLQ so they never block the stream.
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	dlq        producers.DeadLetterPublisher
	logger     *slog.Logger
}

// NewKafkaEventPublisher creates a new publisher. dlq may be nil when disabled.
func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		dlq:        dlq,
		logger:     logger,
	}
}

// PublishEvent publishes a message to the event stream keyed by account ID,
// then marks the outbox row as processed.
func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	var entry ledger.Entry
	if err := json.Unmarshal(message.Payload, &entry); err != nil {
		p.logger.Error("Failed to unmarshal ledger entry from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if p.dlq != nil {
			if dlqErr := p.dlq.PublishToDLQ(ctx, message.TransactionID.String(), message.Payload, "unmarshal_failed"); dlqErr != nil {
				p.logger.Error("Also failed to divert poison outbox payload to DLQ", "outbox_id", message.ID, "dlq_error", dlqErr)
			}
		}
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	// Key by account ID so per-account ordering survives partitioning
	if err := p.producer.Publish(ctx, message.AccountID.String(), &entry); err != nil {
		logger.Error("Failed to publish ledger event",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("failed to publish ledger event for outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Info("Outbox message published and marked as PROCESSED", "outbox_id", message.ID, "transaction_id", message.TransactionID)
	return nil
}

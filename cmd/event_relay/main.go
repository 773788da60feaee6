package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/config"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/data/postgres"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/event_relay"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/logger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/platform/messaging/producers"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("event_relay")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// The relay only reads the outbox; the ledger itself is written by the
	// API server before rows ever reach this process.
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Initialize Kafka producers
	ledgerProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}

	// A disabled DLQ yields a nil producer; keep the interface value nil in
	// that case so the publisher's nil check holds.
	var dlq producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	publisher := event_relay.NewKafkaEventPublisher(outboxRepo, ledgerProducer, dlq, log)

	poller, err := event_relay.NewPoller(&cfg.Outbox, &cfg.WorkerPool, outboxRepo, publisher, log)
	if err != nil {
		log.Error("Failed to initialize outbox poller", "error", err)
		os.Exit(1)
	}

	// Create error channel for fatal relay errors
	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting outbox poller",
			"poll_interval", cfg.Outbox.PollingInterval,
			"batch_size", cfg.Outbox.BatchSize)
		poller.Start(appCtx)
		errChan <- fmt.Errorf("outbox poller stopped")
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var relayErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Relay error occurred", "error", err)
		relayErr = err
	}

	// Cancel the application context to stop the poll loop
	cancelAppCtx()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	poller.Shutdown()

	if err = ledgerProducer.Close(); err != nil {
		log.Error("Error closing ledger event producer", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ producer", "error", err)
		}
	}

	postgresDB.Close()

	// Final status
	if relayErr != nil {
		log.Error("Relay shutdown with errors", "error", relayErr)
	} else {
		log.Info("Relay shutdown completed successfully")
	}
}

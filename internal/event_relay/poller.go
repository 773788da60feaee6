package event_relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/config"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/outbox"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Poller drains pending outbox messages onto the event stream.
// Batches are partitioned by account so messages for one account publish in
// order while different accounts fan out across the worker pool.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	pool             *ants.Pool
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	poolCfg *config.WorkerPoolConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(poolCfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create event relay worker pool: %w", err)
	}

	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		pool:             pool,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}, nil
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Event Relay Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"pool_capacity", p.pool.Cap(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Event Relay Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Event Relay Poller tick: processing pending messages")
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

// Shutdown releases the worker pool
func (p *Poller) Shutdown() {
	p.logger.Info("Shutting down event relay worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	// Partition by account; GetPending returns rows in creation order so each
	// partition preserves it.
	partitions := make(map[uuid.UUID][]*outbox.Message)
	for _, msg := range messages {
		partitions[msg.AccountID] = append(partitions[msg.AccountID], msg)
	}

	var wg sync.WaitGroup
	for accountID, batch := range partitions {
		wg.Add(1)
		accountID, batch := accountID, batch
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			p.publishAccountBatch(ctx, accountID, batch)
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Error("Failed to submit outbox batch to worker pool",
				"account_id", accountID.String(), "error", submitErr,
			)
		}
	}
	wg.Wait()

	return nil
}

// publishAccountBatch publishes one account's messages sequentially, stopping
// at the first failure so later messages cannot overtake an unpublished one.
func (p *Poller) publishAccountBatch(ctx context.Context, accountID uuid.UUID, batch []*outbox.Message) {
	for _, msg := range batch {
		if err := p.publisher.PublishEvent(ctx, msg); err != nil {
			p.logger.Error("Failed to publish outbox message",
				"outbox_id", msg.ID, "transaction_id", msg.TransactionID,
				"account_id", accountID.String(), "current_attempts", msg.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
				return
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				p.logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
					"outbox_id", msg.ID, "transaction_id", msg.TransactionID, "attempts_made", msg.Attempts+1,
				)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
					p.logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "outbox_id", msg.ID, "error", errUpdate)
				}
				continue
			}
			return
		}
	}
}

package event_relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/config"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/outbox"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
)

// MockEventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// orderRecordingPublisher records publish order per account
type orderRecordingPublisher struct {
	mu    sync.Mutex
	seen  map[uuid.UUID][]int64
	fail  map[int64]error
	delay time.Duration
}

func (p *orderRecordingPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	if p.seen == nil {
		p.seen = make(map[uuid.UUID][]int64)
	}
	p.seen[message.AccountID] = append(p.seen[message.AccountID], message.ID)
	p.mu.Unlock()
	if err, ok := p.fail[message.ID]; ok {
		return err
	}
	return nil
}

func testOutboxMessage(t *testing.T, id int64, accountID uuid.UUID, attempts int) *outbox.Message {
	t.Helper()
	entry := ledger.NewCompletedEntry(accountID, shared.EntryTypeCommission, 1000, 0, ledger.Classification{Level: 1}, "")
	payload, err := json.Marshal(entry)
	require.NoError(t, err)

	return &outbox.Message{
		ID:            id,
		TransactionID: entry.TransactionID,
		AccountID:     accountID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		Attempts:      attempts,
		CreatedAt:     time.Now(),
	}
}

func newTestPoller(t *testing.T, outboxRepo outbox.Repository, publisher EventPublisher) *Poller {
	t.Helper()
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	poolCfg := &config.WorkerPoolConfig{Size: 4}

	poller, err := NewPoller(cfg, poolCfg, outboxRepo, publisher, slog.Default())
	require.NoError(t, err)
	t.Cleanup(poller.Shutdown)
	return poller
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	accountA := uuid.New()
	accountB := uuid.New()

	tests := []struct {
		name          string
		setupMocks    func(*testing.T, *MockOutboxRepo, *MockEventPublisher)
		expectedError string
	}{
		{
			name: "successful processing of pending messages",
			setupMocks: func(t *testing.T, outboxRepo *MockOutboxRepo, publisher *MockEventPublisher) {
				msg1 := testOutboxMessage(t, 1, accountA, 0)
				msg2 := testOutboxMessage(t, 2, accountB, 0)
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg1, msg2}, nil).Once()

				publisher.On("PublishEvent", mock.Anything, msg1).Return(nil).Once()
				publisher.On("PublishEvent", mock.Anything, msg2).Return(nil).Once()
			},
		},
		{
			name: "error getting pending messages",
			setupMocks: func(t *testing.T, outboxRepo *MockOutboxRepo, publisher *MockEventPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: "failed to get pending outbox messages",
		},
		{
			name: "no pending messages",
			setupMocks: func(t *testing.T, outboxRepo *MockOutboxRepo, publisher *MockEventPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
		},
		{
			name: "publish failure increments attempts and blocks later messages for that account",
			setupMocks: func(t *testing.T, outboxRepo *MockOutboxRepo, publisher *MockEventPublisher) {
				msg1 := testOutboxMessage(t, 1, accountA, 0)
				msg2 := testOutboxMessage(t, 2, accountA, 0)
				msg3 := testOutboxMessage(t, 3, accountB, 0)
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg1, msg2, msg3}, nil).Once()

				publisher.On("PublishEvent", mock.Anything, msg1).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()

				// msg2 shares the account with msg1 so it must not be attempted
				publisher.On("PublishEvent", mock.Anything, msg3).Return(nil).Once()
			},
		},
		{
			name: "max retry attempts reached",
			setupMocks: func(t *testing.T, outboxRepo *MockOutboxRepo, publisher *MockEventPublisher) {
				exhausted := testOutboxMessage(t, 4, accountA, 2)
				next := testOutboxMessage(t, 5, accountA, 0)
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{exhausted, next}, nil).Once()

				publisher.On("PublishEvent", mock.Anything, exhausted).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(4)).Return(nil).Once()
				outboxRepo.On("UpdateStatus", mock.Anything, int64(4), shared.OutboxStatusFailedToPublish).Return(nil).Once()

				// once the poison message is parked, the rest of the account batch proceeds
				publisher.On("PublishEvent", mock.Anything, next).Return(nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo := &MockOutboxRepo{}
			mockPublisher := &MockEventPublisher{}
			poller := newTestPoller(t, mockOutboxRepo, mockPublisher)

			tt.setupMocks(t, mockOutboxRepo, mockPublisher)

			err := poller.processPendingMessages(context.Background())

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockPublisher.AssertExpectations(t)
		})
	}
}

func TestPoller_PreservesPerAccountOrder(t *testing.T) {
	accountA := uuid.New()
	accountB := uuid.New()

	messages := []*outbox.Message{
		testOutboxMessage(t, 1, accountA, 0),
		testOutboxMessage(t, 2, accountB, 0),
		testOutboxMessage(t, 3, accountA, 0),
		testOutboxMessage(t, 4, accountB, 0),
		testOutboxMessage(t, 5, accountA, 0),
	}

	mockOutboxRepo := &MockOutboxRepo{}
	mockOutboxRepo.On("GetPending", mock.Anything, 10).Return(messages, nil).Once()

	recorder := &orderRecordingPublisher{delay: time.Millisecond}
	poller := newTestPoller(t, mockOutboxRepo, recorder)

	err := poller.processPendingMessages(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3, 5}, recorder.seen[accountA])
	assert.Equal(t, []int64{2, 4}, recorder.seen[accountB])
	mockOutboxRepo.AssertExpectations(t)
}

func TestPoller_Start(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockPublisher := &MockEventPublisher{}

	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	poolCfg := &config.WorkerPoolConfig{Size: 2}

	poller, err := NewPoller(cfg, poolCfg, mockOutboxRepo, mockPublisher, slog.Default())
	require.NoError(t, err)
	defer poller.Shutdown()

	mockOutboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}

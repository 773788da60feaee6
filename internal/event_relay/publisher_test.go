package event_relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/outbox"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockMessagePublisher for testing
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestKafkaEventPublisher_PublishEvent(t *testing.T) {
	logger := slog.Default()

	accountID := uuid.New()
	entry := ledger.NewCompletedEntry(accountID, shared.EntryTypeCommission, 5000, 20000, ledger.Classification{
		Level:       1,
		Description: "level 1 referral commission",
	}, "corr-1")
	entryJSON, err := json.Marshal(entry)
	assert.NoError(t, err)

	message := &outbox.Message{
		ID:            1,
		TransactionID: entry.TransactionID,
		AccountID:     accountID,
		Payload:       entryJSON,
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}

	tests := []struct {
		name          string
		message       *outbox.Message
		setupMocks    func(*MockOutboxRepo, *MockMessagePublisher, *MockDeadLetterPublisher)
		expectedError string
	}{
		{
			name:    "successful publish keyed by account",
			message: message,
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockMessagePublisher, dlq *MockDeadLetterPublisher) {
				producer.On("Publish", mock.Anything, accountID.String(), mock.MatchedBy(func(e *ledger.Entry) bool {
					return e.TransactionID == entry.TransactionID && e.Amount == 5000
				})).Return(nil).Once()

				outboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
		},
		{
			name: "poison payload diverted to DLQ",
			message: &outbox.Message{
				ID:            2,
				TransactionID: entry.TransactionID,
				AccountID:     accountID,
				Payload:       []byte("invalid json"),
				Status:        shared.OutboxStatusPending,
				CreatedAt:     time.Now(),
			},
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockMessagePublisher, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, entry.TransactionID.String(), []byte("invalid json"), "unmarshal_failed").Return(nil).Once()

				outboxRepo.On("UpdateStatus", mock.Anything, int64(2), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			expectedError: "unmarshal payload",
		},
		{
			name:    "producer failure leaves message pending",
			message: message,
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockMessagePublisher, dlq *MockDeadLetterPublisher) {
				producer.On("Publish", mock.Anything, accountID.String(), mock.Anything).Return(errors.New("kafka down")).Once()
			},
			expectedError: "failed to publish ledger event",
		},
		{
			name:    "status update failure after publish",
			message: message,
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockMessagePublisher, dlq *MockDeadLetterPublisher) {
				producer.On("Publish", mock.Anything, accountID.String(), mock.Anything).Return(nil).Once()

				outboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(errors.New("db error")).Once()
			},
			expectedError: "failed to mark outbox",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo := &MockOutboxRepo{}
			mockProducer := &MockMessagePublisher{}
			mockDLQ := &MockDeadLetterPublisher{}
			publisher := NewKafkaEventPublisher(mockOutboxRepo, mockProducer, mockDLQ, logger)

			tt.setupMocks(mockOutboxRepo, mockProducer, mockDLQ)

			err := publisher.PublishEvent(context.Background(), tt.message)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockProducer.AssertExpectations(t)
			mockDLQ.AssertExpectations(t)
		})
	}

	t.Run("poison payload with DLQ disabled", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		publisher := NewKafkaEventPublisher(mockOutboxRepo, mockProducer, nil, logger)

		poison := &outbox.Message{
			ID:            3,
			TransactionID: uuid.New(),
			AccountID:     accountID,
			Payload:       []byte("{broken"),
			Status:        shared.OutboxStatusPending,
			CreatedAt:     time.Now(),
		}

		mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(3), shared.OutboxStatusFailedToPublish).Return(nil).Once()

		err := publisher.PublishEvent(context.Background(), poison)
		assert.Error(t, err)
		mockOutboxRepo.AssertExpectations(t)
		mockProducer.AssertNotCalled(t, "Publish")
	})
}

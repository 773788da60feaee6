package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/outbox"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutboxMessage() *outbox.Message {
	return &outbox.Message{
		TransactionID: uuid.New(),
		AccountID:     uuid.New(),
		Payload:       json.RawMessage(`{"amount":5000}`),
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	msg := testOutboxMessage()

	query := `
		INSERT INTO ledger_outbox \(transaction_id, account_id, payload, status, attempts, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)
		RETURNING id
	`

	t.Run("success assigns generated id", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(msg.TransactionID, msg.AccountID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		err := repo.Create(ctx, msg)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate transaction id", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(msg.TransactionID, msg.AccountID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, msg)
		var dup outbox.ErrDuplicateMessage
		assert.ErrorAs(t, err, &dup)
		assert.Equal(t, msg.TransactionID, dup.TransactionID)
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT id, transaction_id, account_id, payload, status, attempts, created_at, last_attempt_at
		FROM ledger_outbox
		WHERE status = \$1
		ORDER BY created_at ASC
		LIMIT \$2
	`

	t.Run("returns batch in creation order", func(t *testing.T) {
		first := testOutboxMessage()
		second := testOutboxMessage()
		rows := pgxmock.NewRows([]string{"id", "transaction_id", "account_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
			AddRow(int64(1), first.TransactionID, first.AccountID, []byte(first.Payload), first.Status, first.Attempts, first.CreatedAt, (*time.Time)(nil)).
			AddRow(int64(2), second.TransactionID, second.AccountID, []byte(second.Payload), second.Status, second.Attempts, second.CreatedAt, (*time.Time)(nil))

		mock.ExpectQuery(query).
			WithArgs(shared.OutboxStatusPending, 10).
			WillReturnRows(rows)

		messages, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, int64(1), messages[0].ID)
		assert.Equal(t, first.TransactionID, messages[0].TransactionID)
	})

	t.Run("empty batch", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(shared.OutboxStatusPending, 10).
			WillReturnRows(pgxmock.NewRows([]string{"id", "transaction_id", "account_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}))

		messages, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE ledger_outbox
		SET status = \$1, last_attempt_at = \$2
		WHERE id = \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, 1, shared.OutboxStatusProcessed)
		assert.NoError(t, err)
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(99)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 99, shared.OutboxStatusProcessed)
		assert.ErrorIs(t, err, outbox.ErrMessageNotFound{ID: 99})
	})
}

func TestOutboxRepository_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE ledger_outbox
		SET attempts = attempts \+ 1, last_attempt_at = \$1
		WHERE id = \$2
	`

	mock.ExpectExec(query).
		WithArgs(pgxmock.AnyArg(), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.IncrementAttempts(ctx, 1)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_Delete(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	query := `
		DELETE FROM ledger_outbox
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(int64(1)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(ctx, 1))
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(int64(99)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(ctx, 99), outbox.ErrMessageNotFound{ID: 99})
	})
}

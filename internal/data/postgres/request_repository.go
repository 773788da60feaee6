package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/request"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RequestRepository implements the request.Repository interface for PostgreSQL
type RequestRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRequestRepository creates a new PostgreSQL financial request repository
func NewRequestRepository(logger *slog.Logger, db *persistence.PostgresDB) request.Repository {
	return &RequestRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *RequestRepository) WithTx(tx pgx.Tx) request.Repository {
	return &RequestRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const requestColumns = `id, account_id, kind, amount, fee, plan_id, method, proof_ref, status, admin_id, admin_notes, reject_reason, external_ref, expires_at, created_at, processed_at`

// Create stores a new pending request
func (r *RequestRepository) Create(ctx context.Context, req *request.Request) error {
	query := `
		INSERT INTO financial_requests (id, account_id, kind, amount, fee, plan_id, method, proof_ref, status, admin_id, admin_notes, reject_reason, external_ref, expires_at, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.querier.Exec(ctx, query,
		req.ID,
		req.AccountID,
		req.Kind,
		req.Amount,
		req.Fee,
		req.PlanID,
		req.Method,
		req.ProofRef,
		req.Status,
		req.AdminID,
		req.AdminNotes,
		req.RejectReason,
		req.ExternalRef,
		req.ExpiresAt,
		req.CreatedAt,
		req.ProcessedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create financial request", "id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to create financial request: %w", err)
	}

	return nil
}

// GetByID retrieves a request by its ID regardless of status
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM financial_requests
		WHERE id = $1
	`

	req, err := r.scanRequest(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrRequestNotFound{RequestID: id}
		}
		r.logger.Error("Failed to get financial request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get financial request: %w", err)
	}

	return req, nil
}

// LockPending locks the request row for processing. The pending-status
// filter is the idempotency gate: an already-terminal request is reported
// as not found and classified by the caller.
func (r *RequestRepository) LockPending(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM financial_requests
		WHERE id = $1 AND status = $2
		FOR UPDATE
	`

	req, err := r.scanRequest(r.querier.QueryRow(ctx, query, id, shared.RequestStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrRequestNotFound{RequestID: id}
		}
		r.logger.Error("Failed to lock pending request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock pending request: %w", err)
	}

	return req, nil
}

// Update persists a request after a state transition or annotation
func (r *RequestRepository) Update(ctx context.Context, req *request.Request) error {
	query := `
		UPDATE financial_requests
		SET status = $1, admin_id = $2, admin_notes = $3, reject_reason = $4, external_ref = $5, proof_ref = $6, processed_at = $7
		WHERE id = $8
	`

	result, err := r.querier.Exec(ctx, query,
		req.Status,
		req.AdminID,
		req.AdminNotes,
		req.RejectReason,
		req.ExternalRef,
		req.ProofRef,
		req.ProcessedAt,
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update financial request", "id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to update financial request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return request.ErrRequestNotFound{RequestID: req.ID}
	}

	return nil
}

// GetByAccountID retrieves paginated requests for an account, newest first
func (r *RequestRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*request.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM financial_requests
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get requests by account", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get requests by account: %w", err)
	}
	defer rows.Close()

	return r.collectRequests(rows)
}

// GetByStatus retrieves paginated requests in a given status, oldest first
// so admin review queues drain in submission order.
func (r *RequestRepository) GetByStatus(ctx context.Context, status shared.RequestStatus, limit, offset int) ([]*request.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM financial_requests
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get requests by status", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to get requests by status: %w", err)
	}
	defer rows.Close()

	return r.collectRequests(rows)
}

func (r *RequestRepository) collectRequests(rows pgx.Rows) ([]*request.Request, error) {
	var requests []*request.Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			r.logger.Error("Failed to scan financial request", "error", err)
			return nil, fmt.Errorf("failed to scan financial request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over financial requests: %w", err)
	}

	return requests, nil
}

func (r *RequestRepository) scanRequest(row pgx.Row) (*request.Request, error) {
	var req request.Request
	err := row.Scan(
		&req.ID,
		&req.AccountID,
		&req.Kind,
		&req.Amount,
		&req.Fee,
		&req.PlanID,
		&req.Method,
		&req.ProofRef,
		&req.Status,
		&req.AdminID,
		&req.AdminNotes,
		&req.RejectReason,
		&req.ExternalRef,
		&req.ExpiresAt,
		&req.CreatedAt,
		&req.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

package request

import (
	"context"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines financial request persistence operations
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// LockPending locks the request row for approval processing. The
	// pending-status filter in this query is the sole idempotency gate:
	// a request that is already terminal is never returned.
	LockPending(ctx context.Context, id uuid.UUID) (*Request, error)

	Update(ctx context.Context, req *Request) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Request, error)
	GetByStatus(ctx context.Context, status shared.RequestStatus, limit, offset int) ([]*Request, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrRequestNotFound indicates no request exists with the given ID
type ErrRequestNotFound struct {
	RequestID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "financial request not found: " + e.RequestID.String()
}

// Is matches any ErrRequestNotFound when the target carries a nil ID
func (e ErrRequestNotFound) Is(target error) bool {
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}

// ErrRequestConflict indicates the request exists but is already terminal,
// so the attempted transition would re-apply a processed request.
type ErrRequestConflict struct {
	RequestID uuid.UUID
	Status    shared.RequestStatus
}

func (e ErrRequestConflict) Error() string {
	return "financial request " + e.RequestID.String() + " already processed: " + string(e.Status)
}

// Is matches any ErrRequestConflict when the target carries a nil ID
func (e ErrRequestConflict) Is(target error) bool {
	t, ok := target.(ErrRequestConflict)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}

package affiliate

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages affiliate stats persistence
type Repository interface {
	Create(ctx context.Context, stats *Stats) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Stats, error)
	Update(ctx context.Context, stats *Stats) error

	// LockForUpdate acquires a pessimistic lock for rollup mutation
	LockForUpdate(ctx context.Context, accountID uuid.UUID) (*Stats, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrStatsNotFound indicates a missing affiliate rollup
type ErrStatsNotFound struct {
	AccountID uuid.UUID
}

func (e ErrStatsNotFound) Error() string {
	return "affiliate stats not found for account: " + e.AccountID.String()
}

// Is matches any ErrStatsNotFound when the target carries a nil ID
func (e ErrStatsNotFound) Is(target error) bool {
	t, ok := target.(ErrStatsNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

package plan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrAmountOutOfRange = errors.New("amount outside plan bounds")

// Plan holds the numeric fields of an investment plan that feed return and
// commission calculations. Catalog copy (names, colors, marketing text)
// lives elsewhere and is out of scope here.
type Plan struct {
	ID           uuid.UUID       `json:"id"`
	MinAmount    int64           `json:"min_amount"` // Stored in cents/minor units
	MaxAmount    int64           `json:"max_amount"`
	ReturnRate   decimal.Decimal `json:"return_rate"` // Percent per day
	DurationDays int             `json:"duration_days"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Duration is the subscription lifetime the plan grants on activation
func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// Accepts checks the amount against the plan's bounds. A zero MaxAmount
// means the plan is uncapped.
func (p *Plan) Accepts(amount int64) error {
	if amount < p.MinAmount {
		return ErrAmountOutOfRange
	}
	if p.MaxAmount > 0 && amount > p.MaxAmount {
		return ErrAmountOutOfRange
	}
	return nil
}

// Repository defines plan lookup operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	ListActive(ctx context.Context) ([]*Plan, error)
}

// ErrPlanNotFound indicates missing plan
type ErrPlanNotFound struct {
	PlanID uuid.UUID
}

func (e ErrPlanNotFound) Error() string {
	return "investment plan not found: " + e.PlanID.String()
}

// Is matches any ErrPlanNotFound when the target carries a nil ID
func (e ErrPlanNotFound) Is(target error) bool {
	t, ok := target.(ErrPlanNotFound)
	if !ok {
		return false
	}
	if t.PlanID == uuid.Nil {
		return true
	}
	return e.PlanID == t.PlanID
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PlanRepository implements the plan.Repository interface for PostgreSQL.
// Plans are read-mostly; there is no write path here.
type PlanRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPlanRepository creates a new PostgreSQL plan repository
func NewPlanRepository(logger *slog.Logger, db *persistence.PostgresDB) plan.Repository {
	return &PlanRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a plan by its ID
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	query := `
		SELECT id, min_amount, max_amount, return_rate, duration_days, active, created_at
		FROM investment_plans
		WHERE id = $1
	`

	var p plan.Plan
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.MinAmount,
		&p.MaxAmount,
		&p.ReturnRate,
		&p.DurationDays,
		&p.Active,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, plan.ErrPlanNotFound{PlanID: id}
		}
		r.logger.Error("Failed to get investment plan", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get investment plan: %w", err)
	}

	return &p, nil
}

// ListActive retrieves all plans currently open for subscription
func (r *PlanRepository) ListActive(ctx context.Context) ([]*plan.Plan, error) {
	query := `
		SELECT id, min_amount, max_amount, return_rate, duration_days, active, created_at
		FROM investment_plans
		WHERE active = TRUE
		ORDER BY min_amount ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active investment plans", "error", err)
		return nil, fmt.Errorf("failed to list active investment plans: %w", err)
	}
	defer rows.Close()

	var plans []*plan.Plan
	for rows.Next() {
		var p plan.Plan
		err := rows.Scan(
			&p.ID,
			&p.MinAmount,
			&p.MaxAmount,
			&p.ReturnRate,
			&p.DurationDays,
			&p.Active,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment plan: %w", err)
		}
		plans = append(plans, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over investment plans: %w", err)
	}

	return plans, nil
}

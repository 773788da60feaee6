// Package postgres provides PostgreSQL implementations of the domain
// repositories. All balance-bearing rows live here; writes participate in
// the caller's transaction scope via WithTx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so balance mutations are
// atomic with the ledger writes that describe them.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const accountColumns = `id, owner_name, email, referral_code, referrer_id, balance, total_commissions, total_earnings, active, custom_rates, plan_id, plan_activated_at, plan_expires_at, version, created_at, updated_at`

// Create stores a new account. Email and referral code uniqueness is
// enforced by database constraints.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, owner_name, email, referral_code, referrer_id, balance, total_commissions, total_earnings, active, custom_rates, plan_id, plan_activated_at, plan_expires_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	customRates, err := marshalRates(acc.CustomRates)
	if err != nil {
		return fmt.Errorf("failed to encode custom rates: %w", err)
	}

	_, err = r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerName,
		acc.Email,
		acc.ReferralCode,
		acc.ReferrerID,
		acc.Balance,
		acc.TotalCommissions,
		acc.TotalEarnings,
		acc.Active,
		customRates,
		acc.PlanID,
		acc.PlanActivatedAt,
		acc.PlanExpiresAt,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByEmail retrieves an account by email, returning nil when absent
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by email", "email", email, "error", err)
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return acc, nil
}

// GetByReferralCode resolves a referral code to its owning account
func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE referral_code = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrUnknownReferralCode{Code: code}
		}
		r.logger.Error("Failed to get account by referral code", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}

	return acc, nil
}

// Update persists an account using optimistic locking on the version column
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET owner_name = $1, email = $2, balance = $3, total_commissions = $4, total_earnings = $5, active = $6, custom_rates = $7, plan_id = $8, plan_activated_at = $9, plan_expires_at = $10, version = $11, updated_at = $12
		WHERE id = $13 AND version = $14
	`

	customRates, err := marshalRates(acc.CustomRates)
	if err != nil {
		return fmt.Errorf("failed to encode custom rates: %w", err)
	}

	result, err := r.querier.Exec(ctx, query,
		acc.OwnerName,
		acc.Email,
		acc.Balance,
		acc.TotalCommissions,
		acc.TotalEarnings,
		acc.Active,
		customRates,
		acc.PlanID,
		acc.PlanActivatedAt,
		acc.PlanExpiresAt,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account row. Every
// concurrent approval that shares an ancestor serializes on this lock.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	var customRates []byte
	err := row.Scan(
		&acc.ID,
		&acc.OwnerName,
		&acc.Email,
		&acc.ReferralCode,
		&acc.ReferrerID,
		&acc.Balance,
		&acc.TotalCommissions,
		&acc.TotalEarnings,
		&acc.Active,
		&customRates,
		&acc.PlanID,
		&acc.PlanActivatedAt,
		&acc.PlanExpiresAt,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(customRates) > 0 {
		if err := json.Unmarshal(customRates, &acc.CustomRates); err != nil {
			return nil, fmt.Errorf("failed to decode custom rates: %w", err)
		}
	}

	return &acc, nil
}

// marshalRates encodes the per-account rate override as JSONB, NULL when unset
func marshalRates(rates []decimal.Decimal) ([]byte, error) {
	if len(rates) == 0 {
		return nil, nil
	}
	return json.Marshal(rates)
}

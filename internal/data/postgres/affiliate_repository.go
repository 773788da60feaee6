package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AffiliateRepository implements the affiliate.Repository interface for
// PostgreSQL. The per-level maps are stored as JSONB columns.
type AffiliateRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAffiliateRepository creates a new PostgreSQL affiliate stats repository
func NewAffiliateRepository(logger *slog.Logger, db *persistence.PostgresDB) affiliate.Repository {
	return &AffiliateRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *AffiliateRepository) WithTx(tx pgx.Tx) affiliate.Repository {
	return &AffiliateRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const statsColumns = `account_id, total_referrals, direct_referrals, level_counts, total_commissions, available_commissions, withdrawn_commissions, level_earnings, created_at, updated_at`

// Create stores a fresh rollup for a newly registered account
func (r *AffiliateRepository) Create(ctx context.Context, stats *affiliate.Stats) error {
	query := `
		INSERT INTO affiliate_stats (account_id, total_referrals, direct_referrals, level_counts, total_commissions, available_commissions, withdrawn_commissions, level_earnings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	levelCounts, levelEarnings, err := marshalLevelMaps(stats)
	if err != nil {
		return err
	}

	_, err = r.querier.Exec(ctx, query,
		stats.AccountID,
		stats.TotalReferrals,
		stats.DirectReferrals,
		levelCounts,
		stats.TotalCommissions,
		stats.AvailableCommissions,
		stats.WithdrawnCommissions,
		levelEarnings,
		stats.CreatedAt,
		stats.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create affiliate stats", "account_id", stats.AccountID.String(), "error", err)
		return fmt.Errorf("failed to create affiliate stats: %w", err)
	}

	return nil
}

// GetByAccountID retrieves the rollup for an account
func (r *AffiliateRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*affiliate.Stats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM affiliate_stats
		WHERE account_id = $1
	`

	stats, err := r.scanStats(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, affiliate.ErrStatsNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to get affiliate stats", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get affiliate stats: %w", err)
	}

	return stats, nil
}

// Update persists a mutated rollup
func (r *AffiliateRepository) Update(ctx context.Context, stats *affiliate.Stats) error {
	query := `
		UPDATE affiliate_stats
		SET total_referrals = $1, direct_referrals = $2, level_counts = $3, total_commissions = $4, available_commissions = $5, withdrawn_commissions = $6, level_earnings = $7, updated_at = $8
		WHERE account_id = $9
	`

	levelCounts, levelEarnings, err := marshalLevelMaps(stats)
	if err != nil {
		return err
	}

	result, err := r.querier.Exec(ctx, query,
		stats.TotalReferrals,
		stats.DirectReferrals,
		levelCounts,
		stats.TotalCommissions,
		stats.AvailableCommissions,
		stats.WithdrawnCommissions,
		levelEarnings,
		stats.UpdatedAt,
		stats.AccountID,
	)
	if err != nil {
		r.logger.Error("Failed to update affiliate stats", "account_id", stats.AccountID.String(), "error", err)
		return fmt.Errorf("failed to update affiliate stats: %w", err)
	}

	if result.RowsAffected() == 0 {
		return affiliate.ErrStatsNotFound{AccountID: stats.AccountID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the rollup row
func (r *AffiliateRepository) LockForUpdate(ctx context.Context, accountID uuid.UUID) (*affiliate.Stats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM affiliate_stats
		WHERE account_id = $1
		FOR UPDATE
	`

	stats, err := r.scanStats(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, affiliate.ErrStatsNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to lock affiliate stats for update", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock affiliate stats for update: %w", err)
	}

	return stats, nil
}

func (r *AffiliateRepository) scanStats(row pgx.Row) (*affiliate.Stats, error) {
	var stats affiliate.Stats
	var levelCounts, levelEarnings []byte
	err := row.Scan(
		&stats.AccountID,
		&stats.TotalReferrals,
		&stats.DirectReferrals,
		&levelCounts,
		&stats.TotalCommissions,
		&stats.AvailableCommissions,
		&stats.WithdrawnCommissions,
		&levelEarnings,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	stats.LevelCounts, err = unmarshalIntMap(levelCounts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode level counts: %w", err)
	}
	stats.LevelEarnings, err = unmarshalInt64Map(levelEarnings)
	if err != nil {
		return nil, fmt.Errorf("failed to decode level earnings: %w", err)
	}

	return &stats, nil
}

// JSON objects key by string; the domain maps key by level number.

func marshalLevelMaps(stats *affiliate.Stats) ([]byte, []byte, error) {
	counts := make(map[string]int, len(stats.LevelCounts))
	for level, n := range stats.LevelCounts {
		counts[strconv.Itoa(level)] = n
	}
	earnings := make(map[string]int64, len(stats.LevelEarnings))
	for level, amount := range stats.LevelEarnings {
		earnings[strconv.Itoa(level)] = amount
	}

	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode level counts: %w", err)
	}
	earningsJSON, err := json.Marshal(earnings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode level earnings: %w", err)
	}
	return countsJSON, earningsJSON, nil
}

func unmarshalIntMap(data []byte) (map[int]int, error) {
	out := make(map[int]int)
	if len(data) == 0 {
		return out, nil
	}
	raw := make(map[string]int)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		level, err := strconv.Atoi(k)
		if err != nil {
			return nil, err
		}
		out[level] = v
	}
	return out, nil
}

func unmarshalInt64Map(data []byte) (map[int]int64, error) {
	out := make(map[int]int64)
	if len(data) == 0 {
		return out, nil
	}
	raw := make(map[string]int64)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		level, err := strconv.Atoi(k)
		if err != nil {
			return nil, err
		}
		out[level] = v
	}
	return out, nil
}

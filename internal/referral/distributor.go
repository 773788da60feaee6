package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/outbox"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxRunner executes a function inside a database transaction scope
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// LevelDetail is the per-ancestor breakdown of one distribution
type LevelDetail struct {
	Level         int             `json:"level"`
	AccountID     uuid.UUID       `json:"account_id"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        int64           `json:"amount"`
	Paid          bool            `json:"paid"`
	SkipReason    string          `json:"skip_reason,omitempty"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
}

// DistributionResult is the structured breakdown returned for audit/display
type DistributionResult struct {
	SourceAccountID uuid.UUID     `json:"source_account_id"`
	Principal       int64         `json:"principal"`
	LevelsVisited   int           `json:"levels_visited"`
	LevelsPaid      int           `json:"levels_paid"`
	TotalPaid       int64         `json:"total_paid"`
	Levels          []LevelDetail `json:"levels"`
}

// PartialDistributionError reports a level write that failed after earlier
// levels had already been paid. Paid levels are not rolled back: the Result
// carries what succeeded so manual reconciliation is possible.
type PartialDistributionError struct {
	Result      *DistributionResult
	FailedLevel int
	Err         error
}

func (e *PartialDistributionError) Error() string {
	return fmt.Sprintf("commission distribution failed at level %d after %d levels paid: %v",
		e.FailedLevel, e.Result.LevelsPaid, e.Err)
}

func (e *PartialDistributionError) Unwrap() error {
	return e.Err
}

// Skip reasons recorded on unpaid levels
const (
	SkipReasonInactive = "referrer inactive"
	SkipReasonZeroRate = "zero rate at level"
)

// Distributor orchestrates chain resolution, rate lookup and per-ancestor
// ledger writes. Each level is one atomic transaction scope: the ancestor's
// balance, its affiliate rollup and the outbox event commit together or not
// at all. Cross-level atomicity is deliberately not provided; a failure at
// level k surfaces as PartialDistributionError and leaves levels 1..k-1 paid.
type Distributor struct {
	txRunner TxRunner
	resolver *ChainResolver
	accounts account.Repository
	stats    affiliate.Repository
	outbox   outbox.Repository
	entries  ledger.Repository
	rates    RateTable
	maxDepth int
	logger   *slog.Logger
}

// NewDistributor creates a distribution engine. The rate table and depth cap
// are injected values so tests can supply deterministic schedules.
func NewDistributor(
	txRunner TxRunner,
	resolver *ChainResolver,
	accounts account.Repository,
	stats affiliate.Repository,
	outboxRepo outbox.Repository,
	entries ledger.Repository,
	rates RateTable,
	maxDepth int,
	logger *slog.Logger,
) *Distributor {
	if maxDepth < 1 {
		maxDepth = rates.Levels()
	}
	return &Distributor{
		txRunner: txRunner,
		resolver: resolver,
		accounts: accounts,
		stats:    stats,
		outbox:   outboxRepo,
		entries:  entries,
		rates:    rates,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// MaxDepth returns the traversal cap the engine was configured with
func (d *Distributor) MaxDepth() int {
	return d.maxDepth
}

// Distribute walks the source account's referral chain and pays each
// eligible ancestor its level's percentage of the principal. Levels are
// processed strictly in order, one at a time: a shared ancestor receiving
// commissions from concurrent sources serializes on its own row lock.
func (d *Distributor) Distribute(ctx context.Context, sourceID uuid.UUID, principal int64, description, correlationID string) (*DistributionResult, error) {
	logger := d.logger
	if correlationID != "" {
		logger = d.logger.With("correlation_id", correlationID)
	}

	if principal <= 0 {
		return nil, account.ErrInvalidAmount
	}

	chain, err := d.resolver.Resolve(ctx, sourceID, d.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referral chain: %w", err)
	}

	result := &DistributionResult{
		SourceAccountID: sourceID,
		Principal:       principal,
		Levels:          make([]LevelDetail, 0, len(chain)),
	}

	for _, link := range chain {
		result.LevelsVisited++
		detail := LevelDetail{
			Level:     link.Level,
			AccountID: link.Account.ID,
		}

		if !link.Account.Active {
			// Skip payment but keep walking: the level counter has already
			// advanced through this ancestor.
			detail.SkipReason = SkipReasonInactive
			result.Levels = append(result.Levels, detail)
			logger.Info("Skipping inactive ancestor",
				"source_account_id", sourceID.String(),
				"ancestor_id", link.Account.ID.String(),
				"level", link.Level,
			)
			continue
		}

		rate := d.rates.rateFor(link.Level, link.Account.CustomRates)
		amount := CommissionAmount(principal, rate)
		detail.Rate = rate
		detail.Amount = amount

		if amount <= 0 {
			detail.SkipReason = SkipReasonZeroRate
			result.Levels = append(result.Levels, detail)
			continue
		}

		entry, err := d.payLevel(ctx, link, amount, sourceID, description, correlationID)
		if errors.Is(err, account.ErrAccountInactive) {
			// Deactivated between chain resolution and the row lock: treat
			// exactly like an ancestor that was inactive all along.
			detail.SkipReason = SkipReasonInactive
			detail.Paid = false
			result.Levels = append(result.Levels, detail)
			continue
		}
		if err != nil {
			logger.Error("Commission level write failed",
				"source_account_id", sourceID.String(),
				"ancestor_id", link.Account.ID.String(),
				"level", link.Level,
				"levels_paid", result.LevelsPaid,
				"error", err,
			)
			result.Levels = append(result.Levels, detail)
			return result, &PartialDistributionError{
				Result:      result,
				FailedLevel: link.Level,
				Err:         err,
			}
		}

		detail.Paid = true
		detail.TransactionID = &entry.TransactionID
		result.Levels = append(result.Levels, detail)
		result.LevelsPaid++
		result.TotalPaid += amount

		logger.Info("Commission paid",
			"source_account_id", sourceID.String(),
			"ancestor_id", link.Account.ID.String(),
			"level", link.Level,
			"amount", amount,
			"transaction_id", entry.TransactionID.String(),
		)
	}

	return result, nil
}

// Preview computes the breakdown a real distribution would produce for a
// hypothetical amount, performing zero writes.
func (d *Distributor) Preview(ctx context.Context, sourceID uuid.UUID, principal int64) (*DistributionResult, error) {
	if principal <= 0 {
		return nil, account.ErrInvalidAmount
	}

	chain, err := d.resolver.Resolve(ctx, sourceID, d.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referral chain: %w", err)
	}

	result := &DistributionResult{
		SourceAccountID: sourceID,
		Principal:       principal,
		Levels:          make([]LevelDetail, 0, len(chain)),
	}

	for _, link := range chain {
		result.LevelsVisited++
		detail := LevelDetail{
			Level:     link.Level,
			AccountID: link.Account.ID,
		}

		if !link.Account.Active {
			detail.SkipReason = SkipReasonInactive
			result.Levels = append(result.Levels, detail)
			continue
		}

		rate := d.rates.rateFor(link.Level, link.Account.CustomRates)
		amount := CommissionAmount(principal, rate)
		detail.Rate = rate
		detail.Amount = amount
		if amount <= 0 {
			detail.SkipReason = SkipReasonZeroRate
		} else {
			detail.Paid = true
			result.LevelsPaid++
			result.TotalPaid += amount
		}
		result.Levels = append(result.Levels, detail)
	}

	return result, nil
}

// payLevel applies one ancestor's commission atomically: balance credit,
// affiliate rollup and outbox event in a single transaction scope, followed
// by the completed ledger entry once the transaction has committed.
func (d *Distributor) payLevel(ctx context.Context, link ChainLink, amount int64, sourceID uuid.UUID, description, correlationID string) (*ledger.Entry, error) {
	var entry *ledger.Entry

	err := d.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountsTx := d.accounts.WithTx(tx)
		statsTx := d.stats.WithTx(tx)
		outboxTx := d.outbox.WithTx(tx)

		ancestor, err := accountsTx.LockForUpdate(ctx, link.Account.ID)
		if err != nil {
			return fmt.Errorf("failed to lock ancestor %s: %w", link.Account.ID.String(), err)
		}
		if !ancestor.Active {
			// Deactivated between chain resolution and the row lock.
			return account.ErrAccountInactive
		}

		balanceBefore := ancestor.Balance
		if err := ancestor.CreditCommission(amount); err != nil {
			return err
		}
		if err := accountsTx.Update(ctx, ancestor); err != nil {
			return err
		}

		stats, err := statsTx.LockForUpdate(ctx, ancestor.ID)
		if err != nil {
			if !errors.Is(err, affiliate.ErrStatsNotFound{}) {
				return err
			}
			stats = affiliate.NewStats(ancestor.ID)
			if err := statsTx.Create(ctx, stats); err != nil {
				return err
			}
		}
		if err := stats.AddCommission(link.Level, amount); err != nil {
			return err
		}
		if err := statsTx.Update(ctx, stats); err != nil {
			return err
		}

		entry = ledger.NewCompletedEntry(ancestor.ID, shared.EntryTypeCommission, amount, balanceBefore, ledger.Classification{
			Level:           link.Level,
			SourceAccountID: &sourceID,
			Description:     description,
		}, correlationID)

		msg, err := outbox.NewMessage(entry)
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return outboxTx.Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	// The balance mutation is committed; the audit entry follows. A failure
	// here is surfaced (the event relay can still reconstruct the entry from
	// the outbox row).
	if err := d.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("balance committed but ledger write failed for %s: %w", entry.TransactionID.String(), err)
	}

	return entry, nil
}

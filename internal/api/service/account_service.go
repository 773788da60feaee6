package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/referral"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	txRunner referral.TxRunner
	accounts account.Repository
	stats    affiliate.Repository
	plans    plan.Repository
	entries  ledger.Repository
	resolver *referral.ChainResolver
	maxDepth int
}

// NewAccountService creates a new account service. maxDepth bounds the
// upward stats walk performed at registration.
func NewAccountService(
	txRunner referral.TxRunner,
	accounts account.Repository,
	stats affiliate.Repository,
	plans plan.Repository,
	entries ledger.Repository,
	resolver *referral.ChainResolver,
	maxDepth int,
) AccountService {
	return &AccountServiceImpl{
		txRunner: txRunner,
		accounts: accounts,
		stats:    stats,
		plans:    plans,
		entries:  entries,
		resolver: resolver,
		maxDepth: maxDepth,
	}
}

// Register creates the account, its empty affiliate rollup, and bumps the
// referral counters of every ancestor up the chain in one transaction.
func (s *AccountServiceImpl) Register(ctx context.Context, ownerName, email, referralCode string) (*account.Account, error) {
	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, account.ErrAccountNotFound{}) {
		return nil, err
	}
	if existing != nil {
		return nil, account.ErrDuplicateEmail{Email: email}
	}

	var referrer *account.Account
	if referralCode != "" {
		referrer, err = s.accounts.GetByReferralCode(ctx, referralCode)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return nil, account.ErrUnknownReferralCode{Code: referralCode}
			}
			return nil, err
		}
	}

	var referrerID *uuid.UUID
	if referrer != nil {
		referrerID = &referrer.ID
	}

	acc, err := account.NewAccount(ownerName, email, newReferralCode(), referrerID)
	if err != nil {
		return nil, err
	}

	// The new account's ancestors are its referrer at level 1, then the
	// referrer's own chain shifted down one level.
	var ancestors []referral.ChainLink
	if referrer != nil {
		ancestors = append(ancestors, referral.ChainLink{Account: referrer, Level: 1})
		if s.maxDepth > 1 {
			upstream, err := s.resolver.Resolve(ctx, referrer.ID, s.maxDepth-1)
			if err != nil {
				return nil, err
			}
			for _, link := range upstream {
				ancestors = append(ancestors, referral.ChainLink{Account: link.Account, Level: link.Level + 1})
			}
		}
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountsTx := s.accounts.WithTx(tx)
		statsTx := s.stats.WithTx(tx)

		if err := accountsTx.Create(ctx, acc); err != nil {
			return err
		}
		if err := statsTx.Create(ctx, affiliate.NewStats(acc.ID)); err != nil {
			return err
		}

		for _, link := range ancestors {
			stats, err := statsTx.LockForUpdate(ctx, link.Account.ID)
			if err != nil {
				if !errors.Is(err, affiliate.ErrStatsNotFound{}) {
					return err
				}
				stats = affiliate.NewStats(link.Account.ID)
				if err := statsTx.Create(ctx, stats); err != nil {
					return err
				}
			}
			if err := stats.RecordReferral(link.Level); err != nil {
				return err
			}
			if err := statsTx.Update(ctx, stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return acc, nil
}

// GetAccountByID retrieves an account by its ID, returns ErrAccountNotFound if not found
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// GetStats retrieves the affiliate rollup for an account
func (s *AccountServiceImpl) GetStats(ctx context.Context, accountID uuid.UUID) (*affiliate.Stats, error) {
	return s.stats.GetByAccountID(ctx, accountID)
}

// GetTransactionsByAccountID retrieves paginated ledger entries for an account
func (s *AccountServiceImpl) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	entries, err := s.entries.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.entries.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListPlans returns the investment plans currently open for subscription
func (s *AccountServiceImpl) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	return s.plans.ListActive(ctx)
}

// newReferralCode derives a short shareable code. Uniqueness is enforced by
// the database index; the keyspace makes collisions negligible.
func newReferralCode() string {
	id := uuid.New()
	return strings.ToUpper(fmt.Sprintf("%x", id[:])[:8])
}

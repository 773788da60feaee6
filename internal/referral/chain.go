package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/google/uuid"
)

// ChainLink is one ancestor in a referral chain. Level 1 is the direct
// referrer of the account the walk started from.
type ChainLink struct {
	Account *account.Account
	Level   int
}

// ChainResolver walks the referrer pointers upward. The walk is a pure
// read: it never mutates anything.
type ChainResolver struct {
	accounts account.Repository
	logger   *slog.Logger
}

// NewChainResolver creates a resolver over the given account store
func NewChainResolver(accounts account.Repository, logger *slog.Logger) *ChainResolver {
	return &ChainResolver{
		accounts: accounts,
		logger:   logger,
	}
}

// Resolve returns the ordered ancestor chain of the given account, up to
// maxDepth levels. Inactive ancestors are included: the level counter
// advances through them, and eligibility is the caller's concern.
//
// The referrer pointer is fixed at creation so the graph is acyclic by
// construction, but the loop is hard-bounded at maxDepth anyway to tolerate
// corrupted data without spinning.
func (r *ChainResolver) Resolve(ctx context.Context, accountID uuid.UUID, maxDepth int) ([]ChainLink, error) {
	if maxDepth < 1 {
		return nil, nil
	}

	start, err := r.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chain start: %w", err)
	}

	chain := make([]ChainLink, 0, maxDepth)
	next := start.ReferrerID
	for level := 1; level <= maxDepth && next != nil; level++ {
		ancestor, err := r.accounts.GetByID(ctx, *next)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				// Dangling referrer pointer. Stop the walk rather than fail:
				// levels below the break remain valid.
				r.logger.Warn("Referral chain broken by missing ancestor",
					"start_account_id", accountID.String(),
					"missing_account_id", next.String(),
					"level", level,
				)
				break
			}
			return nil, fmt.Errorf("failed to load ancestor at level %d: %w", level, err)
		}

		chain = append(chain, ChainLink{Account: ancestor, Level: level})
		next = ancestor.ReferrerID
	}

	return chain, nil
}

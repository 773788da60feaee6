package service

import (
	"context"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/request"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountService defines the interface for account and affiliate operations
type AccountService interface {
	// Register creates a new account, optionally attached to a referrer by
	// their referral code, and seeds its affiliate rollup.
	// Returns ErrDuplicateEmail or ErrUnknownReferralCode on bad input.
	Register(ctx context.Context, ownerName, email, referralCode string) (*account.Account, error)

	// GetAccountByID retrieves an account by its ID
	// Returns ErrAccountNotFound if the account doesn't exist
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// GetStats retrieves the affiliate rollup for an account
	GetStats(ctx context.Context, accountID uuid.UUID) (*affiliate.Stats, error)

	// GetTransactionsByAccountID retrieves paginated ledger entries for an account
	// Returns entries, total count, and any error
	GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)

	// ListPlans returns the investment plans currently open for subscription
	ListPlans(ctx context.Context) ([]*plan.Plan, error)
}

// RequestService defines the interface for financial request submission
type RequestService interface {
	// SubmitDeposit creates a pending deposit request with a payment window.
	// Plan bounds are checked up front so obviously invalid requests never
	// reach the admin queue; the authoritative check re-runs at approval.
	SubmitDeposit(ctx context.Context, accountID uuid.UUID, amount, fee int64, planID *uuid.UUID, method string) (*request.Request, error)

	// SubmitWithdrawal creates a pending withdrawal request. The balance is
	// not reserved; it is re-checked under lock at approval time.
	SubmitWithdrawal(ctx context.Context, accountID uuid.UUID, kind shared.RequestKind, amount int64, method string) (*request.Request, error)

	// GetRequestByID retrieves a request by its ID
	GetRequestByID(ctx context.Context, id uuid.UUID) (*request.Request, error)

	// GetRequestsByAccountID retrieves paginated requests for an account, newest first
	GetRequestsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*request.Request, error)

	// GetRequestsByStatus retrieves paginated requests in a lifecycle state,
	// oldest first so admin queues drain in submission order
	GetRequestsByStatus(ctx context.Context, status shared.RequestStatus, page, perPage int) ([]*request.Request, error)
}

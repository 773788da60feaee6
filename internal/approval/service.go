// Package approval implements the lifecycle gate for financial requests.
// Every balance mutation in the system happens synchronously inside one of
// the transitions defined here; there is no background worker touching money.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/outbox"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/request"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/referral"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DepositApproval is the outcome of a completed deposit approval
type DepositApproval struct {
	RequestID     uuid.UUID                    `json:"request_id"`
	NewBalance    int64                        `json:"new_balance"`
	PlanActivated bool                         `json:"plan_activated"`
	Commission    *referral.DistributionResult `json:"commission,omitempty"`
}

// WithdrawalApproval is the outcome of a completed withdrawal approval
type WithdrawalApproval struct {
	RequestID  uuid.UUID `json:"request_id"`
	NewBalance int64     `json:"new_balance"`
}

// Service drives the approval state machine. Transitions re-read and lock
// the request row immediately before mutating; the pending-status filter in
// that lookup is the idempotency gate that makes double-approval a conflict.
type Service struct {
	txRunner    referral.TxRunner
	requests    request.Repository
	accounts    account.Repository
	stats       affiliate.Repository
	plans       plan.Repository
	outbox      outbox.Repository
	entries     ledger.Repository
	distributor *referral.Distributor
	logger      *slog.Logger
}

// NewService creates the approval service
func NewService(
	txRunner referral.TxRunner,
	requests request.Repository,
	accounts account.Repository,
	stats affiliate.Repository,
	plans plan.Repository,
	outboxRepo outbox.Repository,
	entries ledger.Repository,
	distributor *referral.Distributor,
	logger *slog.Logger,
) *Service {
	return &Service{
		txRunner:    txRunner,
		requests:    requests,
		accounts:    accounts,
		stats:       stats,
		plans:       plans,
		outbox:      outboxRepo,
		entries:     entries,
		distributor: distributor,
		logger:      logger,
	}
}

// ApproveDeposit transitions a pending deposit to COMPLETED: credits the
// requester's balance through a ledger write, activates the referenced
// investment plan if any, then distributes referral commissions on the
// principal (amount net of platform fee).
//
// A PartialDistributionError after the requester's balance has been credited
// is surfaced to the caller, but the deposit stays COMPLETED and the already
// paid ancestor levels stay paid; no compensating rollback is attempted.
func (s *Service) ApproveDeposit(ctx context.Context, requestID, adminID uuid.UUID, notes, correlationID string) (*DepositApproval, error) {
	logger := s.logger
	if correlationID != "" {
		logger = s.logger.With("correlation_id", correlationID)
	}

	if err := s.expireIfDue(ctx, requestID); err != nil {
		return nil, err
	}

	var (
		req           *request.Request
		entry         *ledger.Entry
		newBalance    int64
		planActivated bool
	)

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		requestsTx := s.requests.WithTx(tx)
		accountsTx := s.accounts.WithTx(tx)
		outboxTx := s.outbox.WithTx(tx)

		var err error
		req, err = s.lockPending(ctx, requestsTx, requestID)
		if err != nil {
			return err
		}
		if req.Kind != shared.RequestKindDeposit {
			return ValidationError{Reason: "request is not a deposit"}
		}

		acct, err := accountsTx.LockForUpdate(ctx, req.AccountID)
		if err != nil {
			return err
		}

		var activatedPlan *plan.Plan
		if req.PlanID != nil {
			activatedPlan, err = s.plans.GetByID(ctx, *req.PlanID)
			if err != nil {
				return err
			}
			if err := activatedPlan.Accepts(req.Amount); err != nil {
				return ValidationError{Reason: fmt.Sprintf("deposit amount outside plan bounds: %v", err)}
			}
		}

		balanceBefore := acct.Balance
		if err := acct.Credit(req.Amount); err != nil {
			return err
		}
		if activatedPlan != nil {
			acct.ActivatePlan(activatedPlan.ID, activatedPlan.Duration())
			planActivated = true
		}
		if err := accountsTx.Update(ctx, acct); err != nil {
			return err
		}

		if err := req.Complete(adminID, notes, ""); err != nil {
			return err
		}
		if err := requestsTx.Update(ctx, req); err != nil {
			return err
		}

		entry = ledger.NewCompletedEntry(acct.ID, shared.EntryTypeDeposit, req.Amount, balanceBefore, ledger.Classification{
			PlanID:      req.PlanID,
			RequestID:   &req.ID,
			Description: "deposit approved",
		}, correlationID)

		msg, err := outbox.NewMessage(entry)
		if err != nil {
			return err
		}
		if err := outboxTx.Create(ctx, msg); err != nil {
			return err
		}

		newBalance = acct.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Deposit approved",
		"request_id", requestID.String(),
		"account_id", req.AccountID.String(),
		"amount", req.Amount,
		"new_balance", newBalance,
	)

	if err := s.entries.Create(ctx, entry); err != nil {
		// The balance mutation is committed; the audit entry is recoverable
		// from the outbox row, but the caller must know.
		return nil, fmt.Errorf("deposit committed but ledger write failed for request %s: %w", requestID.String(), err)
	}

	result := &DepositApproval{
		RequestID:     requestID,
		NewBalance:    newBalance,
		PlanActivated: planActivated,
	}

	commission, distErr := s.distributor.Distribute(ctx, req.AccountID, req.Principal(), "referral commission on investment deposit", correlationID)
	result.Commission = commission
	if distErr != nil {
		// The deposit stays COMPLETED and paid levels stay paid; the error
		// carries the per-level breakdown for manual reconciliation.
		return result, distErr
	}

	return result, nil
}

// ApproveWithdrawal transitions a pending withdrawal to COMPLETED, debiting
// the requester's balance. The balance is re-checked under the row lock at
// approval time; the value submitted with the request is never trusted.
// Commission withdrawals additionally move the amount from available to
// withdrawn in the requester's affiliate rollup. No commission distribution.
func (s *Service) ApproveWithdrawal(ctx context.Context, requestID, adminID uuid.UUID, notes, externalRef, correlationID string) (*WithdrawalApproval, error) {
	logger := s.logger
	if correlationID != "" {
		logger = s.logger.With("correlation_id", correlationID)
	}

	if err := s.expireIfDue(ctx, requestID); err != nil {
		return nil, err
	}

	var (
		req        *request.Request
		entry      *ledger.Entry
		newBalance int64
	)

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		requestsTx := s.requests.WithTx(tx)
		accountsTx := s.accounts.WithTx(tx)
		statsTx := s.stats.WithTx(tx)
		outboxTx := s.outbox.WithTx(tx)

		var err error
		req, err = s.lockPending(ctx, requestsTx, requestID)
		if err != nil {
			return err
		}
		if req.Kind != shared.RequestKindWithdrawal && req.Kind != shared.RequestKindCommissionWithdrawal {
			return ValidationError{Reason: "request is not a withdrawal"}
		}

		acct, err := accountsTx.LockForUpdate(ctx, req.AccountID)
		if err != nil {
			return err
		}

		balanceBefore := acct.Balance
		if err := acct.Debit(req.Amount); err != nil {
			return err // account.ErrInsufficientBalance aborts before any mutation persists
		}
		if err := accountsTx.Update(ctx, acct); err != nil {
			return err
		}

		if req.Kind == shared.RequestKindCommissionWithdrawal {
			stats, err := statsTx.LockForUpdate(ctx, acct.ID)
			if err != nil {
				return err
			}
			if err := stats.WithdrawCommissions(req.Amount); err != nil {
				return err
			}
			if err := statsTx.Update(ctx, stats); err != nil {
				return err
			}
		}

		if err := req.Complete(adminID, notes, externalRef); err != nil {
			return err
		}
		if err := requestsTx.Update(ctx, req); err != nil {
			return err
		}

		entry = ledger.NewCompletedEntry(acct.ID, shared.EntryTypeWithdrawal, req.Amount, balanceBefore, ledger.Classification{
			RequestID:   &req.ID,
			Description: "withdrawal approved",
		}, correlationID)

		msg, err := outbox.NewMessage(entry)
		if err != nil {
			return err
		}
		if err := outboxTx.Create(ctx, msg); err != nil {
			return err
		}

		newBalance = acct.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Withdrawal approved",
		"request_id", requestID.String(),
		"account_id", req.AccountID.String(),
		"amount", req.Amount,
		"new_balance", newBalance,
	)

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("withdrawal committed but ledger write failed for request %s: %w", requestID.String(), err)
	}

	return &WithdrawalApproval{RequestID: requestID, NewBalance: newBalance}, nil
}

// Reject transitions a pending request to REJECTED. The reason is required
// and persisted; balances are untouched.
func (s *Service) Reject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (*request.Request, error) {
	if reason == "" {
		return nil, ValidationError{Reason: "a rejection reason is required"}
	}
	if err := s.expireIfDue(ctx, requestID); err != nil {
		return nil, err
	}

	var req *request.Request
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		requestsTx := s.requests.WithTx(tx)

		var err error
		req, err = s.lockPending(ctx, requestsTx, requestID)
		if err != nil {
			return err
		}
		if err := req.Reject(adminID, reason); err != nil {
			return err
		}
		return requestsTx.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request rejected",
		"request_id", requestID.String(),
		"admin_id", adminID.String(),
		"reason", reason,
	)
	return req, nil
}

// Cancel transitions a still-pending request to CANCELLED. Only the
// requester may cancel their own request; balances are untouched.
func (s *Service) Cancel(ctx context.Context, requestID, requesterID uuid.UUID) (*request.Request, error) {
	if err := s.expireIfDue(ctx, requestID); err != nil {
		return nil, err
	}

	var req *request.Request
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		requestsTx := s.requests.WithTx(tx)

		var err error
		req, err = s.lockPending(ctx, requestsTx, requestID)
		if err != nil {
			return err
		}
		if err := req.Cancel(requesterID); err != nil {
			return err
		}
		return requestsTx.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request cancelled", "request_id", requestID.String(), "account_id", requesterID.String())
	return req, nil
}

// PreviewCommissions is a read-only projection of what a distribution for
// the hypothetical amount would pay. Zero writes.
func (s *Service) PreviewCommissions(ctx context.Context, accountID uuid.UUID, amount int64) (*referral.DistributionResult, error) {
	if amount <= 0 {
		return nil, ValidationError{Reason: "preview amount must be positive"}
	}
	return s.distributor.Preview(ctx, accountID, amount)
}

// lockPending locates and locks the pending request. A request that exists
// but is no longer pending is a conflict, not a missing row. A pending
// request whose payment window has elapsed is reported as a conflict; the
// EXPIRED transition itself is persisted by expireIfDue so it survives the
// rollback this conflict triggers.
func (s *Service) lockPending(ctx context.Context, requestsTx request.Repository, requestID uuid.UUID) (*request.Request, error) {
	req, err := requestsTx.LockPending(ctx, requestID)
	if err != nil {
		if errors.Is(err, request.ErrRequestNotFound{}) {
			existing, lookupErr := requestsTx.GetByID(ctx, requestID)
			if lookupErr != nil {
				return nil, request.ErrRequestNotFound{RequestID: requestID}
			}
			return nil, request.ErrRequestConflict{RequestID: requestID, Status: existing.Status}
		}
		return nil, err
	}

	if req.IsExpired(time.Now()) {
		return nil, request.ErrRequestConflict{RequestID: requestID, Status: shared.RequestStatusExpired}
	}

	return req, nil
}

// expireIfDue lazily persists the pending-to-EXPIRED transition for a
// request whose payment window has elapsed. Runs in its own transaction
// scope before any approval work so the transition commits even when the
// caller's transaction subsequently rolls back on the conflict.
func (s *Service) expireIfDue(ctx context.Context, requestID uuid.UUID) error {
	return s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		requestsTx := s.requests.WithTx(tx)

		req, err := requestsTx.LockPending(ctx, requestID)
		if err != nil {
			if errors.Is(err, request.ErrRequestNotFound{}) {
				return nil // Missing or terminal: classification happens later
			}
			return err
		}

		now := time.Now()
		if !req.IsExpired(now) {
			return nil
		}
		if err := req.Expire(now); err != nil {
			return err
		}
		if err := requestsTx.Update(ctx, req); err != nil {
			return err
		}
		s.logger.Info("Request expired lazily", "request_id", requestID.String())
		return nil
	})
}

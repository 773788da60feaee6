package request

import (
	"errors"
	"time"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultPaymentWindow is how long a deposit request waits for proof of
// payment before it is eligible for lazy expiry.
const DefaultPaymentWindow = 24 * time.Hour

var (
	ErrInvalidAmount    = errors.New("request amount must be positive")
	ErrInvalidFee       = errors.New("fee cannot be negative or exceed the amount")
	ErrAlreadyTerminal  = errors.New("request is already in a terminal state")
	ErrNotPending       = errors.New("request is not pending")
	ErrNotRequester     = errors.New("only the requester may cancel their own request")
	ErrReasonRequired   = errors.New("a rejection reason is required")
	ErrNotExpirable     = errors.New("request has no payment window to expire")
	ErrWindowNotElapsed = errors.New("payment window has not elapsed")
)

// Request is the user-facing object an admin approves or rejects. Once a
// terminal status is reached the row is immutable except for the admin
// annotation fields.
type Request struct {
	ID           uuid.UUID            `json:"id"`
	AccountID    uuid.UUID            `json:"account_id"`
	Kind         shared.RequestKind   `json:"kind"`
	Amount       int64                `json:"amount"` // Stored in cents/minor units
	Fee          int64                `json:"fee"`    // Platform fee, excluded from commission principal
	PlanID       *uuid.UUID           `json:"plan_id,omitempty"`
	Method       string               `json:"method"`
	ProofRef     string               `json:"proof_ref,omitempty"`
	Status       shared.RequestStatus `json:"status"`
	AdminID      *uuid.UUID           `json:"admin_id,omitempty"`
	AdminNotes   string               `json:"admin_notes,omitempty"`
	RejectReason string               `json:"reject_reason,omitempty"`
	ExternalRef  string               `json:"external_ref,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	ProcessedAt  *time.Time           `json:"processed_at,omitempty"`
}

// NewDeposit creates a pending deposit request with a payment window
func NewDeposit(accountID uuid.UUID, amount, fee int64, planID *uuid.UUID, method string, window time.Duration) (*Request, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if fee < 0 || fee >= amount {
		return nil, ErrInvalidFee
	}
	if window <= 0 {
		window = DefaultPaymentWindow
	}

	now := time.Now()
	expires := now.Add(window)
	return &Request{
		ID:        uuid.New(),
		AccountID: accountID,
		Kind:      shared.RequestKindDeposit,
		Amount:    amount,
		Fee:       fee,
		PlanID:    planID,
		Method:    method,
		Status:    shared.RequestStatusPending,
		ExpiresAt: &expires,
		CreatedAt: now,
	}, nil
}

// NewWithdrawal creates a pending withdrawal request. The balance check
// happens at approval time, not here: the submitted balance is never trusted.
func NewWithdrawal(accountID uuid.UUID, kind shared.RequestKind, amount int64, method string) (*Request, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if kind != shared.RequestKindWithdrawal && kind != shared.RequestKindCommissionWithdrawal {
		kind = shared.RequestKindWithdrawal
	}

	return &Request{
		ID:        uuid.New(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Method:    method,
		Status:    shared.RequestStatusPending,
		CreatedAt: time.Now(),
	}, nil
}

// Principal is the amount that feeds commission distribution: the deposited
// amount net of the platform fee.
func (r *Request) Principal() int64 {
	return r.Amount - r.Fee
}

// Complete transitions the request to COMPLETED, recording the acting admin
func (r *Request) Complete(adminID uuid.UUID, notes, externalRef string) error {
	if r.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	now := time.Now()
	r.Status = shared.RequestStatusCompleted
	r.AdminID = &adminID
	r.AdminNotes = notes
	r.ExternalRef = externalRef
	r.ProcessedAt = &now
	return nil
}

// Reject transitions the request to REJECTED with a mandatory reason
func (r *Request) Reject(adminID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if r.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	now := time.Now()
	r.Status = shared.RequestStatusRejected
	r.AdminID = &adminID
	r.RejectReason = reason
	r.ProcessedAt = &now
	return nil
}

// Cancel transitions a still-pending request to CANCELLED. Only the
// requester may cancel their own request.
func (r *Request) Cancel(requesterID uuid.UUID) error {
	if r.AccountID != requesterID {
		return ErrNotRequester
	}
	if r.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if r.Status != shared.RequestStatusPending {
		return ErrNotPending
	}

	now := time.Now()
	r.Status = shared.RequestStatusCancelled
	r.ProcessedAt = &now
	return nil
}

// Expire transitions a pending deposit whose payment window has elapsed.
// Expiry is evaluated lazily when the request is next touched.
func (r *Request) Expire(now time.Time) error {
	if r.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if r.ExpiresAt == nil {
		return ErrNotExpirable
	}
	if now.Before(*r.ExpiresAt) {
		return ErrWindowNotElapsed
	}

	r.Status = shared.RequestStatusExpired
	r.ProcessedAt = &now
	return nil
}

// IsExpired reports whether a pending request's payment window has elapsed
func (r *Request) IsExpired(now time.Time) bool {
	return r.Status == shared.RequestStatusPending && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Annotate updates the admin notes. Allowed even after a terminal state.
func (r *Request) Annotate(notes string) {
	r.AdminNotes = notes
}

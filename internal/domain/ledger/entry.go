package ledger

import (
	"time"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Classification carries the free-form audit metadata attached to an entry.
// Commission entries record the referral level and the investing downline
// account the commission originated from.
type Classification struct {
	Level           int        `json:"level,omitempty" bson:"level,omitempty"`
	SourceAccountID *uuid.UUID `json:"source_account_id,omitempty" bson:"source_account_id,omitempty"`
	PlanID          *uuid.UUID `json:"plan_id,omitempty" bson:"plan_id,omitempty"`
	RequestID       *uuid.UUID `json:"request_id,omitempty" bson:"request_id,omitempty"`
	Description     string     `json:"description,omitempty" bson:"description,omitempty"`
}

// Entry is one immutable record of a balance-affecting event, carrying the
// before/after balance snapshot taken at the moment of completion.
//
// Invariant: BalanceAfter == BalanceBefore + amount for credits, and
// BalanceAfter == BalanceBefore - amount for debits.
type Entry struct {
	TransactionID  uuid.UUID          `json:"transaction_id" bson:"transaction_id"`
	AccountID      uuid.UUID          `json:"account_id" bson:"account_id"`
	Type           shared.EntryType   `json:"type" bson:"type"`
	Amount         int64              `json:"amount" bson:"amount"` // Stored in cents/minor units
	Status         shared.EntryStatus `json:"status" bson:"status"`
	BalanceBefore  int64              `json:"balance_before" bson:"balance_before"`
	BalanceAfter   int64              `json:"balance_after" bson:"balance_after"`
	Classification Classification     `json:"classification" bson:"classification"`
	CorrelationID  string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	FailureReason  string             `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	ProcessedAt    *time.Time         `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// NewCompletedEntry builds an entry for a mutation that has already been
// applied to the account balance, snapshotting both sides of the change.
func NewCompletedEntry(accountID uuid.UUID, entryType shared.EntryType, amount, balanceBefore int64, class Classification, correlationID string) *Entry {
	now := time.Now().UTC()
	balanceAfter := balanceBefore + amount
	if !entryType.IsCredit() {
		balanceAfter = balanceBefore - amount
	}

	return &Entry{
		TransactionID:  uuid.New(),
		AccountID:      accountID,
		Type:           entryType,
		Amount:         amount,
		Status:         shared.EntryStatusCompleted,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   balanceAfter,
		Classification: class,
		CorrelationID:  correlationID,
		CreatedAt:      now,
		ProcessedAt:    &now,
		CompletedAt:    &now,
	}
}

// SignedAmount returns the amount with the sign implied by the entry type
func (e *Entry) SignedAmount() int64 {
	if e.Type.IsCredit() {
		return e.Amount
	}
	return -e.Amount
}

// Reconciles reports whether the before/after snapshot is internally consistent
func (e *Entry) Reconciles() bool {
	return e.BalanceAfter == e.BalanceBefore+e.SignedAmount()
}

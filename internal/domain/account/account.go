package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrEmptyOwnerName      = errors.New("owner name cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrAccountInactive     = errors.New("account is deactivated")
)

// Account represents a participant's balance-holding identity record.
// ReferrerID is fixed at creation and never reparented; the field defines
// a forest of referral trees walked upward by the chain resolver.
type Account struct {
	ID               uuid.UUID         `json:"id"`
	OwnerName        string            `json:"owner_name"`
	Email            string            `json:"email"`
	ReferralCode     string            `json:"referral_code"`
	ReferrerID       *uuid.UUID        `json:"referrer_id,omitempty"`
	Balance          int64             `json:"balance"` // Stored in cents/minor units
	TotalCommissions int64             `json:"total_commissions"`
	TotalEarnings    int64             `json:"total_earnings"`
	Active           bool              `json:"active"`
	CustomRates      []decimal.Decimal `json:"custom_rates,omitempty"` // Per-level override, empty means use schedule
	PlanID           *uuid.UUID        `json:"plan_id,omitempty"`
	PlanActivatedAt  *time.Time        `json:"plan_activated_at,omitempty"`
	PlanExpiresAt    *time.Time        `json:"plan_expires_at,omitempty"`
	Version          int               `json:"version"` // For optimistic locking
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewAccount creates a new active account. The referrer reference is
// permanent: there is no API to change it after this point.
func NewAccount(ownerName, email, referralCode string, referrerID *uuid.UUID) (*Account, error) {
	if ownerName == "" {
		return nil, ErrEmptyOwnerName
	}
	if email == "" {
		return nil, ErrEmptyEmail
	}

	now := time.Now()
	return &Account{
		ID:           uuid.New(),
		OwnerName:    ownerName,
		Email:        email,
		ReferralCode: referralCode,
		ReferrerID:   referrerID,
		Balance:      0,
		Active:       true,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Credit adds the specified amount to the account balance
func (a *Account) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance += amount
	a.touch()
	return nil
}

// Debit subtracts the specified amount, refusing to drive the balance negative
func (a *Account) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance < amount {
		return ErrInsufficientBalance
	}

	a.Balance -= amount
	a.touch()
	return nil
}

// CreditCommission credits a referral commission and rolls it into the
// account's lifetime totals in the same mutation.
func (a *Account) CreditCommission(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance += amount
	a.TotalCommissions += amount
	a.TotalEarnings += amount
	a.touch()
	return nil
}

// CanWithdraw checks if the account has sufficient funds for a withdrawal
func (a *Account) CanWithdraw(amount int64) bool {
	return a.Balance >= amount
}

// ActivatePlan binds an investment plan subscription to the account
func (a *Account) ActivatePlan(planID uuid.UUID, duration time.Duration) {
	now := time.Now()
	expires := now.Add(duration)
	a.PlanID = &planID
	a.PlanActivatedAt = &now
	a.PlanExpiresAt = &expires
	a.touch()
}

// Deactivate soft-disables the account. Deactivated accounts keep their
// place in referral chains but earn no further commissions.
func (a *Account) Deactivate() {
	a.Active = false
	a.touch()
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now()
	a.Version++
}

package affiliate

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidLevel             = errors.New("referral level must be positive")
	ErrInvalidCommissionAmount  = errors.New("commission amount must be positive")
	ErrInsufficientCommissions  = errors.New("insufficient available commissions")
	ErrNegativeWithdrawalAmount = errors.New("withdrawal amount must be positive")
)

// Stats is the denormalized affiliate rollup for one account. Amounts are
// cents/minor units; the level maps are keyed by referral level (1 = direct).
//
// Invariant: the sum of LevelEarnings equals TotalCommissions after every
// distribution, and TotalCommissions == AvailableCommissions + WithdrawnCommissions.
type Stats struct {
	AccountID            uuid.UUID     `json:"account_id"`
	TotalReferrals       int           `json:"total_referrals"`
	DirectReferrals      int           `json:"direct_referrals"`
	LevelCounts          map[int]int   `json:"level_counts"`
	TotalCommissions     int64         `json:"total_commissions"`
	AvailableCommissions int64         `json:"available_commissions"`
	WithdrawnCommissions int64         `json:"withdrawn_commissions"`
	LevelEarnings        map[int]int64 `json:"level_earnings"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// NewStats creates an empty rollup for a freshly registered account
func NewStats(accountID uuid.UUID) *Stats {
	now := time.Now()
	return &Stats{
		AccountID:     accountID,
		LevelCounts:   make(map[int]int),
		LevelEarnings: make(map[int]int64),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddCommission records a paid commission at the given level
func (s *Stats) AddCommission(level int, amount int64) error {
	if level < 1 {
		return ErrInvalidLevel
	}
	if amount <= 0 {
		return ErrInvalidCommissionAmount
	}

	if s.LevelEarnings == nil {
		s.LevelEarnings = make(map[int]int64)
	}
	s.TotalCommissions += amount
	s.AvailableCommissions += amount
	s.LevelEarnings[level] += amount
	s.UpdatedAt = time.Now()
	return nil
}

// RecordReferral counts a newly registered downline account at the given level
func (s *Stats) RecordReferral(level int) error {
	if level < 1 {
		return ErrInvalidLevel
	}

	if s.LevelCounts == nil {
		s.LevelCounts = make(map[int]int)
	}
	s.TotalReferrals++
	if level == 1 {
		s.DirectReferrals++
	}
	s.LevelCounts[level]++
	s.UpdatedAt = time.Now()
	return nil
}

// WithdrawCommissions moves the amount from available to withdrawn
func (s *Stats) WithdrawCommissions(amount int64) error {
	if amount <= 0 {
		return ErrNegativeWithdrawalAmount
	}
	if s.AvailableCommissions < amount {
		return ErrInsufficientCommissions
	}

	s.AvailableCommissions -= amount
	s.WithdrawnCommissions += amount
	s.UpdatedAt = time.Now()
	return nil
}

// EarningsSum returns the sum of all per-level earnings. Used by tests and
// reconciliation checks against TotalCommissions.
func (s *Stats) EarningsSum() int64 {
	var sum int64
	for _, v := range s.LevelEarnings {
		sum += v
	}
	return sum
}

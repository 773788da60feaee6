// Package referral implements the referral commission core: upward chain
// resolution, the level-indexed rate table, and the distribution engine that
// turns an approved investment deposit into per-ancestor commission payments.
package referral

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Schedule names the built-in rate tables. Two tables exist historically
// with different top-level rates; which one applies is an explicit
// configuration choice, never inferred.
const (
	ScheduleDefault  = "default"
	ScheduleExtended = "extended"
)

// RateTable is a fixed, level-indexed schedule of commission percentages.
// Level 1 is the direct referrer. Levels beyond the table yield zero.
type RateTable struct {
	levels []decimal.Decimal
}

// NewRateTable builds a table from ordered per-level percentages
func NewRateTable(levels []decimal.Decimal) RateTable {
	cp := make([]decimal.Decimal, len(levels))
	copy(cp, levels)
	return RateTable{levels: cp}
}

// DefaultRateTable is the 5-level schedule: 10/5/3/2/1 percent
func DefaultRateTable() RateTable {
	return NewRateTable([]decimal.Decimal{
		decimal.NewFromInt(10),
		decimal.NewFromInt(5),
		decimal.NewFromInt(3),
		decimal.NewFromInt(2),
		decimal.NewFromInt(1),
	})
}

// ExtendedRateTable is the 15-level schedule with a smaller top rate and a
// long half-percent tail: 5/2/2/2/2/1/1/1/1/1/0.5x5 percent.
func ExtendedRateTable() RateTable {
	half := decimal.NewFromFloat(0.5)
	levels := []decimal.Decimal{decimal.NewFromInt(5)}
	for i := 0; i < 4; i++ {
		levels = append(levels, decimal.NewFromInt(2))
	}
	for i := 0; i < 5; i++ {
		levels = append(levels, decimal.NewFromInt(1))
	}
	for i := 0; i < 5; i++ {
		levels = append(levels, half)
	}
	return NewRateTable(levels)
}

// TableForSchedule resolves a named schedule to its rate table
func TableForSchedule(name string) (RateTable, error) {
	switch strings.ToLower(name) {
	case "", ScheduleDefault:
		return DefaultRateTable(), nil
	case ScheduleExtended:
		return ExtendedRateTable(), nil
	default:
		return RateTable{}, fmt.Errorf("unknown commission schedule: %q", name)
	}
}

// ParseRates parses a comma-separated percentage list, e.g. "10,5,3,2,1"
func ParseRates(s string) (RateTable, error) {
	parts := strings.Split(s, ",")
	levels := make([]decimal.Decimal, 0, len(parts))
	for i, p := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return RateTable{}, fmt.Errorf("invalid rate at level %d: %w", i+1, err)
		}
		if d.IsNegative() {
			return RateTable{}, fmt.Errorf("negative rate at level %d: %s", i+1, d.String())
		}
		levels = append(levels, d)
	}
	return NewRateTable(levels), nil
}

// Rate returns the percentage for a 1-indexed level, zero beyond the table
func (t RateTable) Rate(level int) decimal.Decimal {
	if level < 1 || level > len(t.levels) {
		return decimal.Zero
	}
	return t.levels[level-1]
}

// Levels returns the number of levels the table defines
func (t RateTable) Levels() int {
	return len(t.levels)
}

// rateFor applies per-account overrides: a non-empty override list takes
// precedence over the table for the levels it covers.
func (t RateTable) rateFor(level int, overrides []decimal.Decimal) decimal.Decimal {
	if level >= 1 && level <= len(overrides) {
		return overrides[level-1]
	}
	if len(overrides) > 0 {
		// An override list shorter than the level means zero, not fallback:
		// custom schedules replace the table wholesale for that account.
		return decimal.Zero
	}
	return t.Rate(level)
}

// CommissionAmount computes principal x rate% in minor units, truncating
// any sub-cent remainder.
func CommissionAmount(principal int64, rate decimal.Decimal) int64 {
	if principal <= 0 || !rate.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(principal).Mul(rate).Div(decimal.NewFromInt(100)).IntPart()
}

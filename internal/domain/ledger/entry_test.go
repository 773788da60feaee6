package ledger

import (
	"testing"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompletedEntry(t *testing.T) {
	accountID := uuid.New()
	sourceID := uuid.New()

	t.Run("commission credit", func(t *testing.T) {
		entry := NewCompletedEntry(accountID, shared.EntryTypeCommission, 10000, 50000, Classification{
			Level:           2,
			SourceAccountID: &sourceID,
			Description:     "plan purchase",
		}, "corr-1")

		assert.NotEqual(t, uuid.Nil, entry.TransactionID)
		assert.Equal(t, shared.EntryStatusCompleted, entry.Status)
		assert.Equal(t, int64(50000), entry.BalanceBefore)
		assert.Equal(t, int64(60000), entry.BalanceAfter)
		assert.Equal(t, 2, entry.Classification.Level)
		assert.Equal(t, sourceID, *entry.Classification.SourceAccountID)
		assert.Equal(t, "corr-1", entry.CorrelationID)
		require.NotNil(t, entry.CompletedAt)
		assert.True(t, entry.Reconciles())
	})

	t.Run("withdrawal debit", func(t *testing.T) {
		entry := NewCompletedEntry(accountID, shared.EntryTypeWithdrawal, 30000, 50000, Classification{}, "")

		assert.Equal(t, int64(20000), entry.BalanceAfter)
		assert.Equal(t, int64(-30000), entry.SignedAmount())
		assert.True(t, entry.Reconciles())
	})
}

func TestEntry_Reconciles(t *testing.T) {
	entry := NewCompletedEntry(uuid.New(), shared.EntryTypeDeposit, 1000, 0, Classification{}, "")
	require.True(t, entry.Reconciles())

	// A tampered snapshot no longer reconciles.
	entry.BalanceAfter += 1
	assert.False(t, entry.Reconciles())
}

func TestEntryType_IsCredit(t *testing.T) {
	assert.True(t, shared.EntryTypeDeposit.IsCredit())
	assert.True(t, shared.EntryTypeCommission.IsCredit())
	assert.True(t, shared.EntryTypeEarning.IsCredit())
	assert.True(t, shared.EntryTypeBonus.IsCredit())
	assert.True(t, shared.EntryTypeRefund.IsCredit())
	assert.False(t, shared.EntryTypeWithdrawal.IsCredit())
}

package shared

// EntryType classifies a ledger entry by the financial event that produced it
type EntryType string

const (
	EntryTypeDeposit    EntryType = "DEPOSIT"
	EntryTypeWithdrawal EntryType = "WITHDRAWAL"
	EntryTypeCommission EntryType = "COMMISSION"
	EntryTypeEarning    EntryType = "EARNING"
	EntryTypeBonus      EntryType = "BONUS"
	EntryTypeRefund     EntryType = "REFUND"
)

// IsCredit reports whether the entry type increases the account balance.
// Everything except withdrawals is a credit.
func (t EntryType) IsCredit() bool {
	return t != EntryTypeWithdrawal
}

// EntryStatus defines ledger entry processing states
type EntryStatus string

const (
	EntryStatusPending    EntryStatus = "PENDING"
	EntryStatusProcessing EntryStatus = "PROCESSING"
	EntryStatusCompleted  EntryStatus = "COMPLETED"
	EntryStatusFailed     EntryStatus = "FAILED"
	EntryStatusCancelled  EntryStatus = "CANCELLED"
	EntryStatusRejected   EntryStatus = "REJECTED"
)

// RequestKind defines the flavors of user-submitted financial requests
type RequestKind string

const (
	RequestKindDeposit              RequestKind = "DEPOSIT"
	RequestKindWithdrawal           RequestKind = "WITHDRAWAL"
	RequestKindCommissionWithdrawal RequestKind = "COMMISSION_WITHDRAWAL"
)

// EntryType maps a request kind to the ledger entry type written on approval
func (k RequestKind) EntryType() EntryType {
	switch k {
	case RequestKindDeposit:
		return EntryTypeDeposit
	case RequestKindWithdrawal, RequestKindCommissionWithdrawal:
		return EntryTypeWithdrawal
	default:
		return EntryType(k)
	}
}

// RequestStatus defines the lifecycle states of a financial request
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusProcessing RequestStatus = "PROCESSING"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
	RequestStatusRejected   RequestStatus = "REJECTED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
	RequestStatusExpired    RequestStatus = "EXPIRED"
)

// IsTerminal reports whether no further state transitions are allowed.
// Terminal requests are immutable except for admin annotation fields.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusRejected, RequestStatusCancelled, RequestStatusExpired:
		return true
	}
	return false
}

// OutboxStatus defines event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

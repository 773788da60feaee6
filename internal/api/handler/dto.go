package handler

import (
	"time"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/request"
)

// RegisterAccountRequest represents a request to register a new account
type RegisterAccountRequest struct {
	OwnerName    string `json:"owner_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID               string `json:"id"`
	OwnerName        string `json:"owner_name"`
	Email            string `json:"email"`
	ReferralCode     string `json:"referral_code"`
	ReferrerID       string `json:"referrer_id,omitempty"`
	Balance          int64  `json:"balance"`
	TotalCommissions int64  `json:"total_commissions"`
	TotalEarnings    int64  `json:"total_earnings"`
	Active           bool   `json:"active"`
	PlanID           string `json:"plan_id,omitempty"`
	PlanExpiresAt    string `json:"plan_expires_at,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// StatsResponse represents an affiliate rollup in API responses
type StatsResponse struct {
	AccountID            string        `json:"account_id"`
	TotalReferrals       int           `json:"total_referrals"`
	DirectReferrals      int           `json:"direct_referrals"`
	LevelCounts          map[int]int   `json:"level_counts"`
	TotalCommissions     int64         `json:"total_commissions"`
	AvailableCommissions int64         `json:"available_commissions"`
	WithdrawnCommissions int64         `json:"withdrawn_commissions"`
	LevelEarnings        map[int]int64 `json:"level_earnings"`
}

// CreateRequestRequest represents a request to submit a financial request
type CreateRequestRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	Kind      string `json:"kind" binding:"required,oneof=DEPOSIT WITHDRAWAL COMMISSION_WITHDRAWAL"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Fee       int64  `json:"fee" binding:"min=0"`
	PlanID    string `json:"plan_id,omitempty"`
	Method    string `json:"method" binding:"required"`
}

// RequestResponse represents a financial request in API responses
type RequestResponse struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	Kind         string `json:"kind"`
	Amount       int64  `json:"amount"`
	Fee          int64  `json:"fee"`
	PlanID       string `json:"plan_id,omitempty"`
	Method       string `json:"method"`
	Status       string `json:"status"`
	AdminNotes   string `json:"admin_notes,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`
	ExternalRef  string `json:"external_ref,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	CreatedAt    string `json:"created_at"`
	ProcessedAt  string `json:"processed_at,omitempty"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	Level         int    `json:"level,omitempty"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// PlanResponse represents an investment plan in API responses
type PlanResponse struct {
	ID           string `json:"id"`
	MinAmount    int64  `json:"min_amount"`
	MaxAmount    int64  `json:"max_amount"`
	ReturnRate   string `json:"return_rate"`
	DurationDays int    `json:"duration_days"`
}

// ApproveRequestRequest carries the admin decision payload for approval
type ApproveRequestRequest struct {
	AdminID     string `json:"admin_id" binding:"required,uuid"`
	Notes       string `json:"notes,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
}

// RejectRequestRequest carries the admin decision payload for rejection
type RejectRequestRequest struct {
	AdminID string `json:"admin_id" binding:"required,uuid"`
	Reason  string `json:"reason" binding:"required"`
}

// CancelRequestRequest identifies the requester cancelling their own request
type CancelRequestRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:               acc.ID.String(),
		OwnerName:        acc.OwnerName,
		Email:            acc.Email,
		ReferralCode:     acc.ReferralCode,
		Balance:          acc.Balance,
		TotalCommissions: acc.TotalCommissions,
		TotalEarnings:    acc.TotalEarnings,
		Active:           acc.Active,
		CreatedAt:        acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        acc.UpdatedAt.Format(time.RFC3339),
	}
	if acc.ReferrerID != nil {
		resp.ReferrerID = acc.ReferrerID.String()
	}
	if acc.PlanID != nil {
		resp.PlanID = acc.PlanID.String()
	}
	if acc.PlanExpiresAt != nil {
		resp.PlanExpiresAt = acc.PlanExpiresAt.Format(time.RFC3339)
	}
	return resp
}

func mapStatsToResponse(st *affiliate.Stats) StatsResponse {
	return StatsResponse{
		AccountID:            st.AccountID.String(),
		TotalReferrals:       st.TotalReferrals,
		DirectReferrals:      st.DirectReferrals,
		LevelCounts:          st.LevelCounts,
		TotalCommissions:     st.TotalCommissions,
		AvailableCommissions: st.AvailableCommissions,
		WithdrawnCommissions: st.WithdrawnCommissions,
		LevelEarnings:        st.LevelEarnings,
	}
}

func mapRequestToResponse(req *request.Request) RequestResponse {
	resp := RequestResponse{
		ID:           req.ID.String(),
		AccountID:    req.AccountID.String(),
		Kind:         string(req.Kind),
		Amount:       req.Amount,
		Fee:          req.Fee,
		Method:       req.Method,
		Status:       string(req.Status),
		AdminNotes:   req.AdminNotes,
		RejectReason: req.RejectReason,
		ExternalRef:  req.ExternalRef,
		CreatedAt:    req.CreatedAt.Format(time.RFC3339),
	}
	if req.PlanID != nil {
		resp.PlanID = req.PlanID.String()
	}
	if req.ExpiresAt != nil {
		resp.ExpiresAt = req.ExpiresAt.Format(time.RFC3339)
	}
	if req.ProcessedAt != nil {
		resp.ProcessedAt = req.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}

func mapEntryToResponse(entry *ledger.Entry) TransactionResponse {
	return TransactionResponse{
		TransactionID: entry.TransactionID.String(),
		AccountID:     entry.AccountID.String(),
		Type:          string(entry.Type),
		Amount:        entry.Amount,
		Status:        string(entry.Status),
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Level:         entry.Classification.Level,
		Description:   entry.Classification.Description,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
}

func mapPlanToResponse(p *plan.Plan) PlanResponse {
	return PlanResponse{
		ID:           p.ID.String(),
		MinAmount:    p.MinAmount,
		MaxAmount:    p.MaxAmount,
		ReturnRate:   p.ReturnRate.String(),
		DurationDays: p.DurationDays,
	}
}

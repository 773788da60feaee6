package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/api/service"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/approval"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles HTTP requests for account and affiliate operations
type AccountHandler struct {
	accountService  service.AccountService
	approvalService *approval.Service
	logger          *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService, approvalService *approval.Service) *AccountHandler {
	return &AccountHandler{
		accountService:  accountService,
		approvalService: approvalService,
		logger:          logger,
	}
}

// Register handles registration of a new account, resolving the optional
// referral code to a referrer
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.Register(c.Request.Context(), req.OwnerName, req.Email, req.ReferralCode)
	if err != nil {
		var dupEmail account.ErrDuplicateEmail
		if errors.As(err, &dupEmail) {
			h.logger.Warn("Attempt to register account with duplicate email", "email", dupEmail.Email)
			RespondConflict(c, "Account with this email already exists")
			return
		}
		var unknownCode account.ErrUnknownReferralCode
		if errors.As(err, &unknownCode) {
			RespondBadRequest(c, "Unknown referral code")
			return
		}
		h.logger.Error("Failed to register account", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// GetStats retrieves the affiliate rollup for an account
func (h *AccountHandler) GetStats(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	stats, err := h.accountService.GetStats(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, affiliate.ErrStatsNotFound{}) {
			RespondNotFound(c, "Affiliate stats not found")
			return
		}
		h.logger.Error("Failed to get affiliate stats", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapStatsToResponse(stats))
}

// GetTransactions retrieves paginated ledger entries for an account
func (h *AccountHandler) GetTransactions(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.accountService.GetTransactionsByAccountID(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account transactions", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, 200, responses, pagination.Page, pagination.PerPage, int(total))
}

// PreviewCommissions computes the commission breakdown a deposit of the given
// amount would distribute, without writing anything
func (h *AccountHandler) PreviewCommissions(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount <= 0 {
		RespondBadRequest(c, "amount must be a positive integer in minor units")
		return
	}

	result, err := h.approvalService.PreviewCommissions(c.Request.Context(), id, amount)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		var validationErr approval.ValidationError
		if errors.As(err, &validationErr) {
			RespondBadRequest(c, validationErr.Reason)
			return
		}
		h.logger.Error("Failed to preview commissions", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, result)
}

// ListPlans returns the investment plans open for subscription
func (h *AccountHandler) ListPlans(c *gin.Context) {
	plans, err := h.accountService.ListPlans(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list investment plans", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		responses = append(responses, mapPlanToResponse(p))
	}
	RespondOK(c, responses)
}

// parseIDParam parses the :id path parameter, responding 400 on failure
func parseIDParam(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Error("Invalid ID parameter", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

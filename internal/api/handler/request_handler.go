package handler

import (
	"errors"
	"log/slog"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/api/service"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/approval"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/request"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestHandler handles HTTP requests for financial request submission
type RequestHandler struct {
	requestService  service.RequestService
	approvalService *approval.Service
	logger          *slog.Logger
}

// NewRequestHandler creates a new financial request handler
func NewRequestHandler(logger *slog.Logger, requestService service.RequestService, approvalService *approval.Service) *RequestHandler {
	return &RequestHandler{
		requestService:  requestService,
		approvalService: approvalService,
		logger:          logger,
	}
}

// Create handles submission of a new financial request
func (h *RequestHandler) Create(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var planID *uuid.UUID
	if req.PlanID != "" {
		parsed, err := uuid.Parse(req.PlanID)
		if err != nil {
			RespondBadRequest(c, "Invalid plan ID")
			return
		}
		planID = &parsed
	}

	var created *request.Request
	switch shared.RequestKind(req.Kind) {
	case shared.RequestKindDeposit:
		created, err = h.requestService.SubmitDeposit(c.Request.Context(), accountID, req.Amount, req.Fee, planID, req.Method)
	case shared.RequestKindWithdrawal, shared.RequestKindCommissionWithdrawal:
		created, err = h.requestService.SubmitWithdrawal(c.Request.Context(), accountID, shared.RequestKind(req.Kind), req.Amount, req.Method)
	default:
		RespondBadRequest(c, "Unknown request kind")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Account not found")
		case errors.Is(err, plan.ErrPlanNotFound{}):
			RespondNotFound(c, "Investment plan not found")
		case errors.Is(err, account.ErrAccountInactive):
			RespondUnprocessable(c, "ACCOUNT_INACTIVE", "Account is deactivated")
		case errors.Is(err, plan.ErrAmountOutOfRange):
			RespondBadRequest(c, "Amount outside plan bounds")
		case errors.Is(err, request.ErrInvalidAmount), errors.Is(err, request.ErrInvalidFee):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to create financial request", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapRequestToResponse(created))
}

// GetByID retrieves a financial request by its ID
func (h *RequestHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	req, err := h.requestService.GetRequestByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, request.ErrRequestNotFound{}) {
			RespondNotFound(c, "Financial request not found")
			return
		}
		h.logger.Error("Failed to get financial request", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRequestToResponse(req))
}

// GetByAccountID retrieves paginated requests submitted by an account
func (h *RequestHandler) GetByAccountID(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	requests, err := h.requestService.GetRequestsByAccountID(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list requests for account", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]RequestResponse, 0, len(requests))
	for _, req := range requests {
		responses = append(responses, mapRequestToResponse(req))
	}
	RespondOK(c, responses)
}

// Cancel lets the requester withdraw their own still-pending request
func (h *RequestHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var body CancelRequestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	requesterID, err := uuid.Parse(body.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	req, err := h.approvalService.Cancel(c.Request.Context(), id, requesterID)
	if err != nil {
		respondStateMachineError(c, h.logger, err)
		return
	}

	RespondOK(c, mapRequestToResponse(req))
}

// respondStateMachineError maps approval state machine errors to HTTP statuses
func respondStateMachineError(c *gin.Context, logger *slog.Logger, err error) {
	var validationErr approval.ValidationError
	switch {
	case errors.Is(err, request.ErrRequestNotFound{}):
		RespondNotFound(c, "Financial request not found")
	case errors.Is(err, request.ErrRequestConflict{}):
		RespondConflict(c, err.Error())
	case errors.Is(err, request.ErrNotRequester):
		RespondConflict(c, "Only the requester may cancel their own request")
	case errors.Is(err, account.ErrInsufficientBalance):
		RespondUnprocessable(c, "INSUFFICIENT_BALANCE", "Account balance is insufficient")
	case errors.As(err, &validationErr):
		RespondBadRequest(c, validationErr.Reason)
	default:
		logger.Error("Request transition failed", "error", err)
		RespondInternalError(c)
	}
}

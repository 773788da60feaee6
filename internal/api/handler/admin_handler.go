package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/api/middleware"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/api/service"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/approval"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/request"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/referral"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles the admin approval queue endpoints
type AdminHandler struct {
	requestService  service.RequestService
	approvalService *approval.Service
	logger          *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, requestService service.RequestService, approvalService *approval.Service) *AdminHandler {
	return &AdminHandler{
		requestService:  requestService,
		approvalService: approvalService,
		logger:          logger,
	}
}

// Approve completes a pending request. The request's kind decides whether
// the deposit or withdrawal path runs; a re-approval attempt returns 409.
func (h *AdminHandler) Approve(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var body ApproveRequestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	adminID, err := uuid.Parse(body.AdminID)
	if err != nil {
		RespondBadRequest(c, "Invalid admin ID")
		return
	}

	req, err := h.requestService.GetRequestByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, request.ErrRequestNotFound{}) {
			RespondNotFound(c, "Financial request not found")
			return
		}
		h.logger.Error("Failed to load request for approval", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	correlationID := middleware.GetCorrelationID(c)

	switch req.Kind {
	case shared.RequestKindDeposit:
		result, err := h.approvalService.ApproveDeposit(c.Request.Context(), id, adminID, body.Notes, correlationID)
		if err != nil {
			var partial *referral.PartialDistributionError
			if errors.As(err, &partial) {
				// The deposit is committed and some levels are paid; the caller
				// needs the breakdown, not a retry.
				h.logger.Error("Commission distribution partially failed",
					"request_id", id.String(),
					"failed_level", partial.FailedLevel,
					"levels_paid", partial.Result.LevelsPaid,
				)
				RespondWithErrorDetails(c, http.StatusInternalServerError,
					"PARTIAL_DISTRIBUTION",
					"Deposit approved but commission distribution failed partway",
					partial.Result,
				)
				return
			}
			if errors.Is(err, affiliate.ErrStatsNotFound{}) {
				h.logger.Error("Affiliate rollup missing during approval", "request_id", id.String(), "error", err)
				RespondInternalError(c)
				return
			}
			respondStateMachineError(c, h.logger, err)
			return
		}
		RespondOK(c, result)

	case shared.RequestKindWithdrawal, shared.RequestKindCommissionWithdrawal:
		result, err := h.approvalService.ApproveWithdrawal(c.Request.Context(), id, adminID, body.Notes, body.ExternalRef, correlationID)
		if err != nil {
			if errors.Is(err, affiliate.ErrInsufficientCommissions) {
				RespondUnprocessable(c, "INSUFFICIENT_COMMISSIONS", "Available commissions are insufficient")
				return
			}
			respondStateMachineError(c, h.logger, err)
			return
		}
		RespondOK(c, result)

	default:
		RespondBadRequest(c, "Unknown request kind")
	}
}

// Reject transitions a pending request to REJECTED with a mandatory reason
func (h *AdminHandler) Reject(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var body RejectRequestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	adminID, err := uuid.Parse(body.AdminID)
	if err != nil {
		RespondBadRequest(c, "Invalid admin ID")
		return
	}

	req, err := h.approvalService.Reject(c.Request.Context(), id, adminID, body.Reason)
	if err != nil {
		respondStateMachineError(c, h.logger, err)
		return
	}

	RespondOK(c, mapRequestToResponse(req))
}

// Queue lists requests in a lifecycle state, oldest first
func (h *AdminHandler) Queue(c *gin.Context) {
	status := shared.RequestStatus(c.DefaultQuery("status", string(shared.RequestStatusPending)))

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	requests, err := h.requestService.GetRequestsByStatus(c.Request.Context(), status, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list request queue", "status", string(status), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]RequestResponse, 0, len(requests))
	for _, req := range requests {
		responses = append(responses, mapRequestToResponse(req))
	}
	RespondOK(c, responses)
}

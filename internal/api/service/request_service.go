package service

import (
	"context"
	"time"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/request"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// RequestServiceImpl implements the RequestService interface
type RequestServiceImpl struct {
	requests      request.Repository
	accounts      account.Repository
	plans         plan.Repository
	paymentWindow time.Duration
}

// NewRequestService creates a new financial request service
func NewRequestService(
	requests request.Repository,
	accounts account.Repository,
	plans plan.Repository,
	paymentWindow time.Duration,
) RequestService {
	return &RequestServiceImpl{
		requests:      requests,
		accounts:      accounts,
		plans:         plans,
		paymentWindow: paymentWindow,
	}
}

// SubmitDeposit creates a pending deposit request with a payment window
func (s *RequestServiceImpl) SubmitDeposit(ctx context.Context, accountID uuid.UUID, amount, fee int64, planID *uuid.UUID, method string) (*request.Request, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.Active {
		return nil, account.ErrAccountInactive
	}

	if planID != nil {
		p, err := s.plans.GetByID(ctx, *planID)
		if err != nil {
			return nil, err
		}
		if err := p.Accepts(amount); err != nil {
			return nil, err
		}
	}

	req, err := request.NewDeposit(accountID, amount, fee, planID, method, s.paymentWindow)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// SubmitWithdrawal creates a pending withdrawal request without reserving funds
func (s *RequestServiceImpl) SubmitWithdrawal(ctx context.Context, accountID uuid.UUID, kind shared.RequestKind, amount int64, method string) (*request.Request, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.Active {
		return nil, account.ErrAccountInactive
	}

	req, err := request.NewWithdrawal(accountID, kind, amount, method)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// GetRequestByID retrieves a request by its ID
func (s *RequestServiceImpl) GetRequestByID(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	return s.requests.GetByID(ctx, id)
}

// GetRequestsByAccountID retrieves paginated requests for an account
func (s *RequestServiceImpl) GetRequestsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*request.Request, error) {
	offset := (page - 1) * perPage
	return s.requests.GetByAccountID(ctx, accountID, perPage, offset)
}

// GetRequestsByStatus retrieves paginated requests in a lifecycle state
func (s *RequestServiceImpl) GetRequestsByStatus(ctx context.Context, status shared.RequestStatus, page, perPage int) ([]*request.Request, error) {
	offset := (page - 1) * perPage
	return s.requests.GetByStatus(ctx, status, perPage, offset)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/request"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/shared"
)

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req *request.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*request.Request), args.Error(1)
}

func (m *MockRequestRepository) LockPending(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*request.Request), args.Error(1)
}

func (m *MockRequestRepository) Update(ctx context.Context, req *request.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRequestRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*request.Request, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*request.Request), args.Error(1)
}

func (m *MockRequestRepository) GetByStatus(ctx context.Context, status shared.RequestStatus, limit, offset int) ([]*request.Request, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*request.Request), args.Error(1)
}

func (m *MockRequestRepository) WithTx(tx pgx.Tx) request.Repository {
	return m
}

func newRequestFixture(t *testing.T) (*MockRequestRepository, *MockAccountRepository, *MockPlanRepository, RequestService) {
	t.Helper()
	requests := new(MockRequestRepository)
	accounts := new(MockAccountRepository)
	plans := new(MockPlanRepository)
	svc := NewRequestService(requests, accounts, plans, 24*time.Hour)
	return requests, accounts, plans, svc
}

func activeTestAccount(t *testing.T) *account.Account {
	t.Helper()
	acc, err := account.NewAccount("Alice", "alice@example.com", "ALICE123", nil)
	require.NoError(t, err)
	return acc
}

func TestRequestServiceImpl_SubmitDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success with plan", func(t *testing.T) {
		requests, accounts, plans, svc := newRequestFixture(t)

		acc := activeTestAccount(t)
		p := &plan.Plan{ID: uuid.New(), MinAmount: 50000, MaxAmount: 1000000, Active: true}

		accounts.On("GetByID", ctx, acc.ID).Return(acc, nil).Once()
		plans.On("GetByID", ctx, p.ID).Return(p, nil).Once()
		requests.On("Create", ctx, mock.MatchedBy(func(r *request.Request) bool {
			return r.AccountID == acc.ID &&
				r.Kind == shared.RequestKindDeposit &&
				r.Amount == 100000 &&
				r.Status == shared.RequestStatusPending &&
				r.ExpiresAt != nil
		})).Return(nil).Once()

		req, err := svc.SubmitDeposit(ctx, acc.ID, 100000, 2500, &p.ID, "bank_transfer")
		require.NoError(t, err)
		assert.Equal(t, shared.RequestStatusPending, req.Status)
		require.NotNil(t, req.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), *req.ExpiresAt, time.Minute)
		requests.AssertExpectations(t)
	})

	t.Run("AmountBelowPlanMinimum", func(t *testing.T) {
		requests, accounts, plans, svc := newRequestFixture(t)

		acc := activeTestAccount(t)
		p := &plan.Plan{ID: uuid.New(), MinAmount: 50000, Active: true}

		accounts.On("GetByID", ctx, acc.ID).Return(acc, nil).Once()
		plans.On("GetByID", ctx, p.ID).Return(p, nil).Once()

		_, err := svc.SubmitDeposit(ctx, acc.ID, 10000, 0, &p.ID, "bank_transfer")
		require.Error(t, err)
		assert.ErrorIs(t, err, plan.ErrAmountOutOfRange)
		requests.AssertNotCalled(t, "Create")
	})

	t.Run("InactiveAccount", func(t *testing.T) {
		requests, accounts, _, svc := newRequestFixture(t)

		acc := activeTestAccount(t)
		acc.Deactivate()
		accounts.On("GetByID", ctx, acc.ID).Return(acc, nil).Once()

		_, err := svc.SubmitDeposit(ctx, acc.ID, 100000, 0, nil, "bank_transfer")
		require.Error(t, err)
		assert.ErrorIs(t, err, account.ErrAccountInactive)
		requests.AssertNotCalled(t, "Create")
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		_, accounts, _, svc := newRequestFixture(t)

		id := uuid.New()
		accounts.On("GetByID", ctx, id).Return(nil, account.ErrAccountNotFound{AccountID: id}).Once()

		_, err := svc.SubmitDeposit(ctx, id, 100000, 0, nil, "bank_transfer")
		require.Error(t, err)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
	})
}

func TestRequestServiceImpl_SubmitWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		requests, accounts, _, svc := newRequestFixture(t)

		acc := activeTestAccount(t)
		accounts.On("GetByID", ctx, acc.ID).Return(acc, nil).Once()
		requests.On("Create", ctx, mock.MatchedBy(func(r *request.Request) bool {
			return r.Kind == shared.RequestKindCommissionWithdrawal &&
				r.Amount == 5000 &&
				r.ExpiresAt == nil
		})).Return(nil).Once()

		req, err := svc.SubmitWithdrawal(ctx, acc.ID, shared.RequestKindCommissionWithdrawal, 5000, "bank_transfer")
		require.NoError(t, err)
		assert.Equal(t, shared.RequestStatusPending, req.Status)
		requests.AssertExpectations(t)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		requests, accounts, _, svc := newRequestFixture(t)

		acc := activeTestAccount(t)
		accounts.On("GetByID", ctx, acc.ID).Return(acc, nil).Once()

		_, err := svc.SubmitWithdrawal(ctx, acc.ID, shared.RequestKindWithdrawal, 0, "bank_transfer")
		require.Error(t, err)
		requests.AssertNotCalled(t, "Create")
	})
}

func TestRequestServiceImpl_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("GetRequestsByAccountID paginates", func(t *testing.T) {
		requests, _, _, svc := newRequestFixture(t)

		accountID := uuid.New()
		expected := []*request.Request{{ID: uuid.New(), AccountID: accountID}}
		requests.On("GetByAccountID", ctx, accountID, 10, 30).Return(expected, nil).Once()

		got, err := svc.GetRequestsByAccountID(ctx, accountID, 4, 10)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
		requests.AssertExpectations(t)
	})

	t.Run("GetRequestsByStatus paginates", func(t *testing.T) {
		requests, _, _, svc := newRequestFixture(t)

		expected := []*request.Request{{ID: uuid.New(), Status: shared.RequestStatusPending}}
		requests.On("GetByStatus", ctx, shared.RequestStatusPending, 20, 0).Return(expected, nil).Once()

		got, err := svc.GetRequestsByStatus(ctx, shared.RequestStatusPending, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
		requests.AssertExpectations(t)
	})

	t.Run("GetRequestByID not found", func(t *testing.T) {
		requests, _, _, svc := newRequestFixture(t)

		id := uuid.New()
		requests.On("GetByID", ctx, id).Return(nil, request.ErrRequestNotFound{RequestID: id}).Once()

		_, err := svc.GetRequestByID(ctx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, request.ErrRequestNotFound{})
	})
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/account"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/affiliate"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/ledger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/domain/plan"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, ownerName, email, referralCode string) (*account.Account, error) {
	args := m.Called(ctx, ownerName, email, referralCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetStats(ctx context.Context, accountID uuid.UUID) (*affiliate.Stats, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*affiliate.Stats), args.Error(1)
}

func (m *MockAccountService) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountService) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*plan.Plan), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	return r
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var topLevel Response
	require.NoError(t, json.Unmarshal(body, &topLevel))
	require.NotNil(t, topLevel.Data)

	dataBytes, err := json.Marshal(topLevel.Data)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(dataBytes, &out))
	return out
}

func TestAccountHandler_Register(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		expected, err := account.NewAccount("John Doe", "john@example.com", "JOHN1234", nil)
		require.NoError(t, err)
		mockService.On("Register", mock.Anything, "John Doe", "john@example.com", "").Return(expected, nil)

		router := setupTestRouter()
		router.POST("/accounts", handler.Register)

		reqBody := RegisterAccountRequest{
			OwnerName: "John Doe",
			Email:     "john@example.com",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		responseBody := decodeData[AccountResponse](t, rr.Body.Bytes())
		assert.Equal(t, expected.ID.String(), responseBody.ID)
		assert.Equal(t, expected.OwnerName, responseBody.OwnerName)
		assert.Equal(t, expected.Email, responseBody.Email)
		assert.Equal(t, expected.ReferralCode, responseBody.ReferralCode)
		assert.True(t, responseBody.Active)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		router := setupTestRouter()
		router.POST("/accounts", handler.Register)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`{"invalid`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingEmailFailsValidation", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		router := setupTestRouter()
		router.POST("/accounts", handler.Register)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`{"owner_name":"No Email"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Register")
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		mockService.On("Register", mock.Anything, "Jane Doe", "jane@example.com", "").
			Return(nil, account.ErrDuplicateEmail{Email: "jane@example.com"})

		router := setupTestRouter()
		router.POST("/accounts", handler.Register)

		jsonBody, _ := json.Marshal(RegisterAccountRequest{OwnerName: "Jane Doe", Email: "jane@example.com"})
		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("UnknownReferralCode", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		mockService.On("Register", mock.Anything, "Jane Doe", "jane@example.com", "NOPE").
			Return(nil, account.ErrUnknownReferralCode{Code: "NOPE"})

		router := setupTestRouter()
		router.POST("/accounts", handler.Register)

		jsonBody, _ := json.Marshal(RegisterAccountRequest{OwnerName: "Jane Doe", Email: "jane@example.com", ReferralCode: "NOPE"})
		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		mockService.On("Register", mock.Anything, "Jane Doe", "jane@example.com", "").
			Return(nil, errors.New("service unavailable"))

		router := setupTestRouter()
		router.POST("/accounts", handler.Register)

		jsonBody, _ := json.Marshal(RegisterAccountRequest{OwnerName: "Jane Doe", Email: "jane@example.com"})
		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestAccountHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		expected, err := account.NewAccount("John Doe", "john@example.com", "JOHN1234", nil)
		require.NoError(t, err)
		mockService.On("GetAccountByID", mock.Anything, expected.ID).Return(expected, nil)

		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+expected.ID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		responseBody := decodeData[AccountResponse](t, rr.Body.Bytes())
		assert.Equal(t, expected.ID.String(), responseBody.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		id := uuid.New()
		mockService.On("GetAccountByID", mock.Anything, id).Return(nil, account.ErrAccountNotFound{AccountID: id})

		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetAccountByID")
	})
}

func TestAccountHandler_GetStats(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		accountID := uuid.New()
		stats := affiliate.NewStats(accountID)
		require.NoError(t, stats.RecordReferral(1))
		require.NoError(t, stats.AddCommission(1, 2500))
		mockService.On("GetStats", mock.Anything, accountID).Return(stats, nil)

		router := setupTestRouter()
		router.GET("/accounts/:id/stats", handler.GetStats)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+accountID.String()+"/stats", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		responseBody := decodeData[StatsResponse](t, rr.Body.Bytes())
		assert.Equal(t, accountID.String(), responseBody.AccountID)
		assert.Equal(t, 1, responseBody.DirectReferrals)
		assert.Equal(t, int64(2500), responseBody.AvailableCommissions)
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		id := uuid.New()
		mockService.On("GetStats", mock.Anything, id).Return(nil, affiliate.ErrStatsNotFound{AccountID: id})

		router := setupTestRouter()
		router.GET("/accounts/:id/stats", handler.GetStats)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+id.String()+"/stats", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestAccountHandler_GetTransactions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("SuccessWithPagination", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		accountID := uuid.New()
		entries := []*ledger.Entry{
			ledger.NewCompletedEntry(accountID, "COMMISSION", 5000, 0, ledger.Classification{Level: 2}, ""),
		}
		mockService.On("GetTransactionsByAccountID", mock.Anything, accountID, 2, 5).Return(entries, int64(11), nil)

		router := setupTestRouter()
		router.GET("/accounts/:id/transactions", handler.GetTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+accountID.String()+"/transactions?page=2&per_page=5", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevel Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevel))
		require.NotNil(t, topLevel.Meta)
		assert.Equal(t, 2, topLevel.Meta.Page)
		assert.Equal(t, 5, topLevel.Meta.PerPage)
		assert.Equal(t, 11, topLevel.Meta.TotalItems)
		assert.Equal(t, 3, topLevel.Meta.TotalPages)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService, nil)

		router := setupTestRouter()
		router.GET("/accounts/:id/transactions", handler.GetTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+uuid.NewString()+"/transactions?page=0", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetTransactionsByAccountID")
	})
}

func TestAccountHandler_ListPlans(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	mockService := new(MockAccountService)
	handler := NewAccountHandler(logger, mockService, nil)

	plans := []*plan.Plan{{ID: uuid.New(), MinAmount: 50000, MaxAmount: 1000000, DurationDays: 30, Active: true}}
	mockService.On("ListPlans", mock.Anything).Return(plans, nil)

	router := setupTestRouter()
	router.GET("/plans", handler.ListPlans)

	req, _ := http.NewRequest(http.MethodGet, "/plans", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	responseBody := decodeData[[]PlanResponse](t, rr.Body.Bytes())
	require.Len(t, responseBody, 1)
	assert.Equal(t, plans[0].ID.String(), responseBody[0].ID)
	assert.Equal(t, int64(50000), responseBody[0].MinAmount)
	mockService.AssertExpectations(t)
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// ---- mock implementations ----

type mockTransactionCommander struct {
	addFn func(cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error)
}

func (m *mockTransactionCommander) AddTransaction(_ context.Context, cmd cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error) {
	if m.addFn != nil {
		return m.addFn(cmd)
	}
	return nil, decimal.Zero, fmt.Errorf("not configured")
}

type mockTransactionQuerier struct {
	listFn func(cqrs.ListTransactionsQuery) ([]models.Transaction, error)
}

func (m *mockTransactionQuerier) ListTransactions(_ context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newTransactionTestRouter(cmds TransactionCommander, qrys TransactionQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTransactionHandler(cmds, qrys)
	v1 := r.Group("/v1/accounts/:accountId/transactions")
	v1.POST("", h.AddTransaction)
	v1.GET("", h.ListTransactions)
	return r
}

func doRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- test data ----

var aTestTransaction = &models.Transaction{
	ID: "tx-001", AccountID: "acc-001",
	Amount: decimal.NewFromInt(100), Type: models.TransactionCredit,
	Description: "Initial credit", Status: models.StatusCompleted,
	CreatedAt: time.Now(),
}

func aValidAddBody() map[string]interface{} {
	return map[string]interface{}{"amount": "100", "type": "credit", "description": "Initial credit"}
}

// ---- tests ----

func TestAddTransactionHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		addFn          func(cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error)
		expectedStatus int
	}{
		{
			name: "success - add transaction",
			body: aValidAddBody(),
			addFn: func(cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error) {
				return aTestTransaction, decimal.NewFromInt(100), nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing fields",
			body:           map[string]interface{}{"amount": "100"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unrecognized type",
			body:           map[string]interface{}{"amount": "100", "type": "transfer", "description": "x"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - non-positive amount",
			body: map[string]interface{}{"amount": "-5", "type": "debit", "description": "x"},
			addFn: func(cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error) {
				return nil, decimal.Zero, apperr.Invalid("amount must be greater than zero")
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not found - unknown account",
			body: aValidAddBody(),
			addFn: func(cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error) {
				return nil, decimal.Zero, apperr.NotFound("account not found")
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "bad gateway - committed but unpropagated",
			body: aValidAddBody(),
			addFn: func(cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error) {
				return aTestTransaction, decimal.NewFromInt(100),
					apperr.Transient("transaction recorded but event propagation failed", fmt.Errorf("bus down"))
			},
			expectedStatus: http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTransactionTestRouter(&mockTransactionCommander{addFn: tt.addFn}, &mockTransactionQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/accounts/acc-001/transactions", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestAddTransactionHandlerReturnsIDOnTransient(t *testing.T) {
	router := newTransactionTestRouter(&mockTransactionCommander{
		addFn: func(cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error) {
			return aTestTransaction, decimal.NewFromInt(100),
				apperr.Transient("transaction recorded but event propagation failed", fmt.Errorf("bus down"))
		},
	}, &mockTransactionQuerier{})

	w := doRequest(router, http.MethodPost, "/v1/accounts/acc-001/transactions", aValidAddBody())

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["transactionId"] != aTestTransaction.ID {
		t.Fatalf("expected committed transaction id in response, got %v", resp)
	}
}

func TestListTransactionsHandler(t *testing.T) {
	tests := []struct {
		name           string
		listFn         func(cqrs.ListTransactionsQuery) ([]models.Transaction, error)
		expectedStatus int
	}{
		{
			name: "success",
			listFn: func(cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
				return []models.Transaction{*aTestTransaction}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found - unknown account",
			listFn: func(cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
				return nil, apperr.NotFound("account not found")
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTransactionTestRouter(&mockTransactionCommander{}, &mockTransactionQuerier{listFn: tt.listFn})
			w := doRequest(router, http.MethodGet, "/v1/accounts/acc-001/transactions", nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

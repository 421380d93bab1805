package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-service/internal/domain"
	"ledger-service/internal/errors"
	"ledger-service/internal/service"
)

type fakeAccountService struct {
	created *service.CreateAccountRequest
	account *domain.AccountWithBalance
	err     error
}

func (f *fakeAccountService) CreateAccount(_ context.Context, req *service.CreateAccountRequest) (*domain.AccountWithBalance, error) {
	f.created = req
	return f.account, f.err
}

func (f *fakeAccountService) GetAccount(_ context.Context, accountID int64) (*domain.AccountWithBalance, error) {
	if f.err != nil {
		return nil, f.err
	}
	account := *f.account
	account.ID = accountID
	return &account, nil
}

type fakeTransactionService struct {
	transfer   *service.TransferRequest
	deposit    *service.DepositRequest
	withdrawal *service.WithdrawalRequest
	tx         *domain.Transaction
	err        error
}

func (f *fakeTransactionService) Transfer(_ context.Context, req *service.TransferRequest) (*domain.Transaction, error) {
	f.transfer = req
	return f.tx, f.err
}

func (f *fakeTransactionService) Deposit(_ context.Context, req *service.DepositRequest) (*domain.Transaction, error) {
	f.deposit = req
	return f.tx, f.err
}

func (f *fakeTransactionService) Withdraw(_ context.Context, req *service.WithdrawalRequest) (*domain.Transaction, error) {
	f.withdrawal = req
	return f.tx, f.err
}

func (f *fakeTransactionService) GetTransaction(_ context.Context, id int64) (*domain.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	tx := *f.tx
	tx.ID = id
	return &tx, nil
}

func newRouter(accounts AccountService, transactions TransactionService) *mux.Router {
	ah := NewAccountHandler(accounts)
	th := NewTransactionHandler(transactions)

	router := mux.NewRouter()
	router.HandleFunc("/accounts", ah.CreateAccount).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{account_id}", ah.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/transfers", th.Transfer).Methods(http.MethodPost)
	router.HandleFunc("/deposits", th.Deposit).Methods(http.MethodPost)
	router.HandleFunc("/withdrawals", th.Withdraw).Methods(http.MethodPost)
	router.HandleFunc("/transactions/{transaction_id}", th.GetTransaction).Methods(http.MethodGet)
	return router
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "response has no error object: %v", body)
	return e["code"].(string)
}

func sampleTransaction() *domain.Transaction {
	amount := decimal.RequireFromString("40.5")
	return &domain.Transaction{
		ID:        10,
		Type:      domain.TransactionTypeTransfer,
		Status:    domain.TransactionStatusCompleted,
		Amount:    amount,
		Currency:  "USD",
		CreatedAt: time.Now(),
		Entries: []domain.LedgerEntry{
			{ID: 1, TransactionID: 10, AccountID: 1, EntryType: domain.EntryTypeDebit, Amount: amount},
			{ID: 2, TransactionID: 10, AccountID: 2, EntryType: domain.EntryTypeCredit, Amount: amount},
		},
	}
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		accounts := &fakeAccountService{account: &domain.AccountWithBalance{
			Account: domain.Account{ID: 7, UserID: "user-1", AccountType: "checking", Currency: "USD", Status: "active"},
			Balance: decimal.Zero,
		}}
		router := newRouter(accounts, &fakeTransactionService{})

		rec, body := do(t, router, http.MethodPost, "/accounts", map[string]string{
			"user_id":      "user-1",
			"account_type": "checking",
			"currency":     "USD",
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, float64(7), data["id"])
		assert.Equal(t, "0", data["current_balance"])
		assert.Equal(t, "user-1", accounts.created.UserID)
	})

	t.Run("validation failure", func(t *testing.T) {
		accounts := &fakeAccountService{}
		router := newRouter(accounts, &fakeTransactionService{})

		rec, body := do(t, router, http.MethodPost, "/accounts", map[string]string{
			"user_id":  "user-1",
			"currency": "XYZ",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", errorCode(t, body))
		assert.Nil(t, accounts.created)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newRouter(&fakeAccountService{}, &fakeTransactionService{})

		rec, body := do(t, router, http.MethodPost, "/accounts", "{not json")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", errorCode(t, body))
	})

	t.Run("duplicate", func(t *testing.T) {
		accounts := &fakeAccountService{err: errors.ErrDuplicateAccount}
		router := newRouter(accounts, &fakeTransactionService{})

		rec, body := do(t, router, http.MethodPost, "/accounts", map[string]string{
			"user_id":      "user-1",
			"account_type": "checking",
			"currency":     "USD",
		})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "duplicate_account", errorCode(t, body))
	})
}

func TestAccountHandler_GetAccount(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		accounts := &fakeAccountService{account: &domain.AccountWithBalance{
			Account: domain.Account{Currency: "USD", Status: "active"},
			Balance: decimal.RequireFromString("59.75"),
		}}
		router := newRouter(accounts, &fakeTransactionService{})

		rec, body := do(t, router, http.MethodGet, "/accounts/3", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, float64(3), data["id"])
		assert.Equal(t, "59.75", data["current_balance"])
	})

	t.Run("non numeric id", func(t *testing.T) {
		router := newRouter(&fakeAccountService{}, &fakeTransactionService{})

		rec, body := do(t, router, http.MethodGet, "/accounts/abc", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", errorCode(t, body))
	})

	t.Run("not found", func(t *testing.T) {
		router := newRouter(&fakeAccountService{err: errors.ErrAccountNotFound}, &fakeTransactionService{})

		rec, body := do(t, router, http.MethodGet, "/accounts/99", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "account_not_found", errorCode(t, body))
	})
}

func TestTransactionHandler_Transfer(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		transactions := &fakeTransactionService{tx: sampleTransaction()}
		router := newRouter(&fakeAccountService{}, transactions)
		key := uuid.New()

		rec, body := do(t, router, http.MethodPost, "/transfers", map[string]interface{}{
			"source_account_id":      1,
			"destination_account_id": 2,
			"amount":                 "40.50",
			"currency":               "USD",
			"idempotency_key":        key.String(),
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "completed", data["status"])
		assert.Equal(t, "40.5", data["amount"])
		assert.Len(t, data["entries"], 2)

		require.NotNil(t, transactions.transfer)
		assert.True(t, transactions.transfer.Amount.Equal(decimal.RequireFromString("40.5")))
		assert.Equal(t, key, *transactions.transfer.IdempotencyKey)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		transactions := &fakeTransactionService{err: errors.ErrInsufficientFunds.WithDetails("account 1 has 60.0000 USD available, requested 1000")}
		router := newRouter(&fakeAccountService{}, transactions)

		rec, body := do(t, router, http.MethodPost, "/transfers", map[string]interface{}{
			"source_account_id":      1,
			"destination_account_id": 2,
			"amount":                 "1000",
			"currency":               "USD",
		})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "insufficient_funds", errorCode(t, body))
		assert.Contains(t, body["error"].(map[string]interface{})["details"], "60.0000")
	})

	t.Run("rejected input", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]interface{}
			code string
		}{
			{"amount not a number", map[string]interface{}{"source_account_id": 1, "destination_account_id": 2, "amount": "ten", "currency": "USD"}, "invalid_amount"},
			{"amount at column limit", map[string]interface{}{"source_account_id": 1, "destination_account_id": 2, "amount": "1e15", "currency": "USD"}, "invalid_amount"},
			{"amount beyond column limit", map[string]interface{}{"source_account_id": 1, "destination_account_id": 2, "amount": "1e20", "currency": "USD"}, "invalid_amount"},
			{"amount with huge exponent", map[string]interface{}{"source_account_id": 1, "destination_account_id": 2, "amount": "1e200000000", "currency": "USD"}, "invalid_amount"},
			{"amount string too long", map[string]interface{}{"source_account_id": 1, "destination_account_id": 2, "amount": "1" + strings.Repeat("0", 40), "currency": "USD"}, "invalid_input"},
			{"missing source", map[string]interface{}{"destination_account_id": 2, "amount": "10", "currency": "USD"}, "invalid_input"},
			{"bad idempotency key", map[string]interface{}{"source_account_id": 1, "destination_account_id": 2, "amount": "10", "currency": "USD", "idempotency_key": "nope"}, "invalid_input"},
			{"unknown field", map[string]interface{}{"source_account_id": 1, "destination_account_id": 2, "amount": "10", "currency": "USD", "extra": true}, "invalid_input"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				transactions := &fakeTransactionService{}
				router := newRouter(&fakeAccountService{}, transactions)

				rec, body := do(t, router, http.MethodPost, "/transfers", tt.body)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, tt.code, errorCode(t, body))
				assert.Nil(t, transactions.transfer)
			})
		}
	})

	t.Run("internal errors hide their cause", func(t *testing.T) {
		transactions := &fakeTransactionService{err: context.DeadlineExceeded}
		router := newRouter(&fakeAccountService{}, transactions)

		rec, body := do(t, router, http.MethodPost, "/transfers", map[string]interface{}{
			"source_account_id":      1,
			"destination_account_id": 2,
			"amount":                 "1",
			"currency":               "USD",
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal_error", errorCode(t, body))
		assert.NotContains(t, rec.Body.String(), "deadline")
	})
}

func TestTransactionHandler_DepositAndWithdraw(t *testing.T) {
	description := "atm"

	t.Run("deposit", func(t *testing.T) {
		transactions := &fakeTransactionService{tx: sampleTransaction()}
		router := newRouter(&fakeAccountService{}, transactions)

		rec, _ := do(t, router, http.MethodPost, "/deposits", map[string]interface{}{
			"destination_account_id": 5,
			"amount":                 "100.00",
			"currency":               "EUR",
			"description":            description,
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, transactions.deposit)
		assert.Equal(t, int64(5), transactions.deposit.AccountID)
		assert.Equal(t, "EUR", transactions.deposit.Currency)
		assert.Equal(t, description, *transactions.deposit.Description)
		assert.Nil(t, transactions.deposit.IdempotencyKey)
	})

	t.Run("withdrawal currency mismatch", func(t *testing.T) {
		transactions := &fakeTransactionService{err: errors.ErrCurrencyMismatch}
		router := newRouter(&fakeAccountService{}, transactions)

		rec, body := do(t, router, http.MethodPost, "/withdrawals", map[string]interface{}{
			"source_account_id": 5,
			"amount":            "1",
			"currency":          "USD",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "currency_mismatch", errorCode(t, body))
		assert.Equal(t, int64(5), transactions.withdrawal.AccountID)
	})
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		router := newRouter(&fakeAccountService{}, &fakeTransactionService{tx: sampleTransaction()})

		rec, body := do(t, router, http.MethodGet, "/transactions/10", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, float64(10), data["id"])
		assert.Equal(t, "transfer", data["type"])
	})

	t.Run("not found", func(t *testing.T) {
		router := newRouter(&fakeAccountService{}, &fakeTransactionService{err: errors.ErrTransactionNotFound})

		rec, body := do(t, router, http.MethodGet, "/transactions/11", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "transaction_not_found", errorCode(t, body))
	})
}

package handler

import (
	"context"
	"net/http"

	"ledger-service/internal/domain"
	"ledger-service/internal/service"
)

type TransactionService interface {
	Transfer(ctx context.Context, req *service.TransferRequest) (*domain.Transaction, error)
	Deposit(ctx context.Context, req *service.DepositRequest) (*domain.Transaction, error)
	Withdraw(ctx context.Context, req *service.WithdrawalRequest) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
}

type TransactionHandler struct {
	transactionService TransactionService
}

func NewTransactionHandler(transactionService TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

type TransferRequest struct {
	SourceAccountID      int64   `json:"source_account_id" validate:"required,gt=0"`
	DestinationAccountID int64   `json:"destination_account_id" validate:"required,gt=0"`
	Amount               string  `json:"amount" validate:"required,max=32"`
	Currency             string  `json:"currency" validate:"required,iso4217"`
	Description          *string `json:"description,omitempty" validate:"omitempty,max=255"`
	IdempotencyKey       string  `json:"idempotency_key,omitempty" validate:"omitempty,uuid"`
}

type DepositRequest struct {
	DestinationAccountID int64   `json:"destination_account_id" validate:"required,gt=0"`
	Amount               string  `json:"amount" validate:"required,max=32"`
	Currency             string  `json:"currency" validate:"required,iso4217"`
	Description          *string `json:"description,omitempty" validate:"omitempty,max=255"`
	IdempotencyKey       string  `json:"idempotency_key,omitempty" validate:"omitempty,uuid"`
}

type WithdrawalRequest struct {
	SourceAccountID int64   `json:"source_account_id" validate:"required,gt=0"`
	Amount          string  `json:"amount" validate:"required,max=32"`
	Currency        string  `json:"currency" validate:"required,iso4217"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=255"`
	IdempotencyKey  string  `json:"idempotency_key,omitempty" validate:"omitempty,uuid"`
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	idempotencyKey, err := parseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.transactionService.Transfer(r.Context(), &service.TransferRequest{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               amount,
		Currency:             req.Currency,
		Description:          req.Description,
		IdempotencyKey:       idempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	idempotencyKey, err := parseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.transactionService.Deposit(r.Context(), &service.DepositRequest{
		AccountID:      req.DestinationAccountID,
		Amount:         amount,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawalRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	idempotencyKey, err := parseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.transactionService.Withdraw(r.Context(), &service.WithdrawalRequest{
		AccountID:      req.SourceAccountID,
		Amount:         amount,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, err := pathID(r, "transaction_id")
	if err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.transactionService.GetTransaction(r.Context(), transactionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transaction)
}

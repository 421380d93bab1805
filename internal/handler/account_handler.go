package handler

import (
	"context"
	"net/http"

	"ledger-service/internal/domain"
	"ledger-service/internal/service"
)

type AccountService interface {
	CreateAccount(ctx context.Context, req *service.CreateAccountRequest) (*domain.AccountWithBalance, error)
	GetAccount(ctx context.Context, accountID int64) (*domain.AccountWithBalance, error)
}

type AccountHandler struct {
	accountService AccountService
}

func NewAccountHandler(accountService AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	UserID      string `json:"user_id" validate:"required,max=50"`
	AccountType string `json:"account_type" validate:"required,max=20"`
	Currency    string `json:"currency" validate:"required,iso4217"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), &service.CreateAccountRequest{
		UserID:      req.UserID,
		AccountType: req.AccountType,
		Currency:    req.Currency,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "account_id")
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"ledger-service/internal/domain"
	"ledger-service/internal/errors"
	"ledger-service/internal/repository"
)

type AccountService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewAccountService(store *repository.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

type CreateAccountRequest struct {
	UserID      string
	AccountType string
	Currency    string
}

func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*domain.AccountWithBalance, error) {
	s.logger.Info("Creating account", "user_id", req.UserID, "currency", req.Currency)

	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.AccountType) == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "user_id and account_type are required")
	}
	if len(req.Currency) != 3 {
		return nil, errors.NewAppError(errors.InvalidInput, "currency must be a 3-letter code")
	}

	account := &domain.Account{
		UserID:      req.UserID,
		AccountType: req.AccountType,
		Currency:    strings.ToUpper(req.Currency),
		Status:      domain.AccountStatusActive,
	}

	if err := s.store.Account().CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created successfully", "account_id", account.ID)
	return &domain.AccountWithBalance{Account: *account, Balance: decimal.Zero}, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID int64) (*domain.AccountWithBalance, error) {
	s.logger.Info("Getting account", "account_id", accountID)

	if accountID <= 0 {
		return nil, errors.ErrInvalidAccountID
	}

	account, err := s.store.Account().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := BalanceOf(ctx, s.store.Ledger(), accountID)
	if err != nil {
		s.logger.Error("Failed to compute balance", "account_id", accountID, "error", err)
		return nil, errors.Internal(err)
	}

	return &domain.AccountWithBalance{Account: *account, Balance: balance}, nil
}

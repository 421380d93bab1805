package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const AccountStatusActive = "active"

type Account struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	AccountType string    `json:"account_type"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// AccountWithBalance pairs an account with its balance derived from the ledger.
type AccountWithBalance struct {
	Account
	Balance decimal.Decimal `json:"current_balance"`
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id int64) (*Account, error)
	// LockAccounts row-locks every account in ascending id order and returns them keyed by id.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*Account, error)
}

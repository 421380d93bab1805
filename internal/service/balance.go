package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger-service/internal/domain"
)

// BalanceOf derives the balance of accountID from its ledger entries. The
// result is only stable if the caller holds the account's row lock in the same
// transaction ledger is bound to.
func BalanceOf(ctx context.Context, ledger domain.LedgerRepository, accountID int64) (decimal.Decimal, error) {
	entries, err := ledger.ListEntriesByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := domain.Balance(entries)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of account %d: %w", accountID, err)
	}
	return balance, nil
}

package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// LedgerEntry is one side of a transaction's effect on one account. Amount is
// always positive; the direction is carried by EntryType.
type LedgerEntry struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	EntryType     EntryType       `json:"entry_type"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

type LedgerRepository interface {
	CreateEntry(ctx context.Context, entry *LedgerEntry) error
	ListEntriesByAccount(ctx context.Context, accountID int64) ([]LedgerEntry, error)
	ListEntriesByTransaction(ctx context.Context, transactionID int64) ([]LedgerEntry, error)
}

// Balance folds entries into a signed balance: credits add, debits subtract.
func Balance(entries []LedgerEntry) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, e := range entries {
		switch e.EntryType {
		case EntryTypeCredit:
			balance = balance.Add(e.Amount)
		case EntryTypeDebit:
			balance = balance.Sub(e.Amount)
		default:
			return decimal.Zero, fmt.Errorf("entry %d has unknown type %q", e.ID, e.EntryType)
		}
	}
	return balance, nil
}

// ValidateEntries checks that entries have the shape required by txType and
// that each side sums to amount.
func ValidateEntries(txType TransactionType, amount decimal.Decimal, entries []LedgerEntry) error {
	debits, credits := decimal.Zero, decimal.Zero
	var nDebits, nCredits int

	for _, e := range entries {
		if !e.Amount.IsPositive() {
			return fmt.Errorf("entry for account %d has non-positive amount %s", e.AccountID, e.Amount)
		}
		switch e.EntryType {
		case EntryTypeDebit:
			debits = debits.Add(e.Amount)
			nDebits++
		case EntryTypeCredit:
			credits = credits.Add(e.Amount)
			nCredits++
		default:
			return fmt.Errorf("entry for account %d has unknown type %q", e.AccountID, e.EntryType)
		}
	}

	switch txType {
	case TransactionTypeTransfer:
		if nDebits != 1 || nCredits != 1 {
			return fmt.Errorf("transfer needs one debit and one credit, got %d and %d", nDebits, nCredits)
		}
		if !debits.Equal(credits) {
			return fmt.Errorf("transfer is unbalanced: debits %s, credits %s", debits, credits)
		}
		if !debits.Equal(amount) {
			return fmt.Errorf("entries total %s, transaction amount %s", debits, amount)
		}
	case TransactionTypeDeposit:
		if nDebits != 0 || nCredits != 1 {
			return fmt.Errorf("deposit needs exactly one credit, got %d debits and %d credits", nDebits, nCredits)
		}
		if !credits.Equal(amount) {
			return fmt.Errorf("entries total %s, transaction amount %s", credits, amount)
		}
	case TransactionTypeWithdrawal:
		if nDebits != 1 || nCredits != 0 {
			return fmt.Errorf("withdrawal needs exactly one debit, got %d debits and %d credits", nDebits, nCredits)
		}
		if !debits.Equal(amount) {
			return fmt.Errorf("entries total %s, transaction amount %s", debits, amount)
		}
	default:
		return fmt.Errorf("unknown transaction type %q", txType)
	}

	return nil
}

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

const (
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// AmountScale is the number of fractional digits stored for every amount.
const AmountScale = 4

type Transaction struct {
	ID             int64           `json:"id"`
	Type           TransactionType `json:"type"`
	Status         string          `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    *string         `json:"description,omitempty"`
	IdempotencyKey *uuid.UUID      `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Entries        []LedgerEntry   `json:"entries,omitempty"`
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByID(ctx context.Context, id int64) (*Transaction, error)
	// GetTransactionByIdempotencyKey returns nil, nil when no transaction carries the key.
	GetTransactionByIdempotencyKey(ctx context.Context, key uuid.UUID) (*Transaction, error)
}

// AmountIntegerDigits is the number of integer digits NUMERIC(19,4) can hold.
const AmountIntegerDigits = 15

// ValidAmount reports whether amount is strictly positive and fits
// NUMERIC(19,4). Magnitude is judged from the coefficient and exponent, so an
// input such as 1e200000000 is never expanded.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}

	digits := amount.NumDigits()
	exp := int(amount.Exponent())
	if digits+exp > AmountIntegerDigits {
		return false
	}
	// Excess fractional digits beyond the coefficient length cannot all be zeros.
	if exp < -AmountScale && -exp-AmountScale > digits {
		return false
	}
	return amount.Equal(amount.Truncate(AmountScale))
}

package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger-service/internal/domain"
	"ledger-service/internal/errors"
	"ledger-service/internal/repository"
)

type WriteParams struct {
	Type           domain.TransactionType
	Currency       string
	Amount         decimal.Decimal
	Description    *string
	IdempotencyKey *uuid.UUID
	Entries        []domain.LedgerEntry
}

// LedgerWriter persists a transaction and its entries as one atomic unit. It
// checks only that the entries are well formed; business rules belong to the
// caller.
type LedgerWriter struct {
	logger *slog.Logger
}

func NewLedgerWriter(logger *slog.Logger) *LedgerWriter {
	return &LedgerWriter{logger: logger}
}

// Write inserts the transaction row with status completed followed by every
// entry. When store is already inside a transaction the rows join it.
func (w *LedgerWriter) Write(ctx context.Context, store *repository.Store, params WriteParams) (*domain.Transaction, error) {
	if err := domain.ValidateEntries(params.Type, params.Amount, params.Entries); err != nil {
		w.logger.Error("Refusing malformed ledger write", "type", params.Type, "error", err)
		return nil, errors.ErrInternal
	}

	transaction := &domain.Transaction{
		Type:           params.Type,
		Status:         domain.TransactionStatusCompleted,
		Amount:         params.Amount,
		Currency:       params.Currency,
		Description:    params.Description,
		IdempotencyKey: params.IdempotencyKey,
	}

	err := store.WithTransaction(ctx, func(tx *repository.Store) error {
		if err := tx.Transaction().CreateTransaction(ctx, transaction); err != nil {
			return err
		}

		entries := make([]domain.LedgerEntry, len(params.Entries))
		copy(entries, params.Entries)
		for i := range entries {
			entries[i].TransactionID = transaction.ID
			if err := tx.Ledger().CreateEntry(ctx, &entries[i]); err != nil {
				return err
			}
		}
		transaction.Entries = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

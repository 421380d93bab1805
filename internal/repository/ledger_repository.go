package repository

import (
	"context"
	"log/slog"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/errors"
)

const entryColumns = `id, transaction_id, account_id, entry_type, amount, created_at`

type ledgerRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewLedgerRepository(db SQLExecutor, logger *slog.Logger) domain.LedgerRepository {
	return &ledgerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ledgerRepository) CreateEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (transaction_id, account_id, entry_type, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		entry.TransactionID,
		entry.AccountID,
		string(entry.EntryType),
		entry.Amount.String(),
		now,
	).Scan(&entry.ID)

	if err != nil {
		r.logger.Error("Failed to create ledger entry",
			"transaction_id", entry.TransactionID,
			"account_id", entry.AccountID,
			"entry_type", entry.EntryType,
			"error", err)
		return errors.ErrInternal
	}

	entry.CreatedAt = now
	return nil
}

func (r *ledgerRepository) ListEntriesByAccount(ctx context.Context, accountID int64) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE account_id = $1 ORDER BY id`

	return r.listEntries(ctx, query, accountID)
}

func (r *ledgerRepository) ListEntriesByTransaction(ctx context.Context, transactionID int64) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE transaction_id = $1 ORDER BY id`

	return r.listEntries(ctx, query, transactionID)
}

func (r *ledgerRepository) listEntries(ctx context.Context, query string, arg int64) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		r.logger.Error("Failed to query ledger entries", "arg", arg, "error", err)
		return nil, errors.ErrInternal
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var entryType string
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &entryType, &e.Amount, &e.CreatedAt); err != nil {
			r.logger.Error("Failed to scan ledger entry", "arg", arg, "error", err)
			return nil, errors.ErrInternal
		}
		e.EntryType = domain.EntryType(entryType)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Failed to iterate ledger entries", "arg", arg, "error", err)
		return nil, errors.ErrInternal
	}

	return entries, nil
}

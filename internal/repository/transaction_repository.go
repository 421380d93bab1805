package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledger-service/internal/domain"
	"ledger-service/internal/errors"
)

const transactionColumns = `id, type, status, amount, currency, description, idempotency_key, created_at`

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(type, status, amount, currency, description, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now().UTC()

	// Handle optional idempotency key
	var idempotencyKey sql.NullString
	if tx.IdempotencyKey != nil {
		idempotencyKey = sql.NullString{String: tx.IdempotencyKey.String(), Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		string(tx.Type),
		tx.Status,
		tx.Amount.String(),
		tx.Currency,
		nullString(tx.Description),
		idempotencyKey,
		now,
	).Scan(&tx.ID)

	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok && constraint == "idx_transactions_idempotency_key" {
			r.logger.Warn("Duplicate idempotency key", "idempotency_key", idempotencyKey.String)
			return errors.ErrDuplicateTransaction
		}
		r.logger.Error("Failed to create transaction",
			"type", tx.Type,
			"amount", tx.Amount,
			"currency", tx.Currency,
			"error", err)
		return errors.ErrInternal
	}

	tx.CreatedAt = now
	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID, "type", tx.Type)
	return nil
}

func (r *transactionRepository) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := r.scanTransaction(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, errors.ErrTransactionNotFound.WithDetailsf("transaction %d does not exist", id)
	}
	return tx, nil
}

func (r *transactionRepository) GetTransactionByIdempotencyKey(ctx context.Context, key uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`

	return r.scanTransaction(ctx, query, key.String())
}

func (r *transactionRepository) scanTransaction(ctx context.Context, query string, arg interface{}) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var txType string
	var description, idempotencyKey sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&transaction.ID,
		&txType,
		&transaction.Status,
		&transaction.Amount,
		&transaction.Currency,
		&description,
		&idempotencyKey,
		&transaction.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction", "arg", arg, "error", err)
		return nil, errors.ErrInternal
	}

	transaction.Type = domain.TransactionType(txType)
	if description.Valid {
		transaction.Description = &description.String
	}

	// Parse optional idempotency key
	if idempotencyKey.Valid {
		key, err := uuid.Parse(idempotencyKey.String)
		if err != nil {
			r.logger.Error("Failed to parse idempotency key", "transaction_id", transaction.ID, "error", err)
			return nil, errors.ErrInternal
		}
		transaction.IdempotencyKey = &key
	}

	return &transaction, nil
}

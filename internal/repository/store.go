package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"ledger-service/internal/domain"
	"ledger-service/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	db       *sql.DB
	tx       *sql.Tx
	executor SQLExecutor
	logger   *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		executor: db,
		logger:   logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.InTransaction(), s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// Ledger returns a LedgerRepository using the current executor
func (s *Store) Ledger() domain.LedgerRepository {
	return NewLedgerRepository(s.executor, s.logger)
}

// InTransaction reports whether the store is bound to an open database transaction.
func (s *Store) InTransaction() bool {
	return s.tx != nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.ErrCannotBeginTransaction
	}
	return s.db.PingContext(ctx)
}

// WithTransaction executes fn within a database transaction. A store that is
// already inside a transaction runs fn in that same transaction, so callers
// compose into one atomic unit. Any error or panic from fn rolls back.
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) error {
	if s.InTransaction() {
		return fn(s)
	}
	if s.db == nil {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return errors.ErrCannotBeginTransaction
	}

	txStore := &Store{
		db:       s.db,
		tx:       tx,
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return errors.ErrInternal
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/errors"
)

const accountColumns = `id, user_id, account_type, currency, status, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	inTx   bool
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, inTx bool, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		inTx:   inTx,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (user_id, account_type, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	if account.Status == "" {
		account.Status = domain.AccountStatusActive
	}

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		account.UserID,
		account.AccountType,
		account.Currency,
		account.Status,
		now,
		now,
	).Scan(&account.ID)

	if err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			r.logger.Warn("Duplicate account creation attempt",
				"user_id", account.UserID, "currency", account.Currency)
			return errors.ErrDuplicateAccount.WithDetailsf(
				"user %q already has a %s account", account.UserID, account.Currency)
		}
		r.logger.Error("Failed to create account", "user_id", account.UserID, "error", err)
		return errors.ErrInternal
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return r.scanAccount(ctx, query, id)
}

// LockAccounts takes the row locks in ascending id order whatever order the
// caller names them in, so two operations over the same accounts always queue
// on the same first row instead of deadlocking.
func (r *accountRepository) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	if !r.inTx {
		return nil, errors.ErrLockOutsideTransaction
	}

	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	accounts := make(map[int64]*domain.Account, len(ordered))
	for _, id := range ordered {
		account, err := r.scanAccount(ctx, query, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = account
	}

	r.logger.Debug("Accounts locked", "account_ids", ordered)
	return accounts, nil
}

func (r *accountRepository) scanAccount(ctx context.Context, query string, id int64) (*domain.Account, error) {
	var account domain.Account

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.AccountType,
		&account.Currency,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_id", id)
			return nil, errors.ErrAccountNotFound.WithDetailsf("account %d does not exist", id)
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.ErrInternal
	}

	return &account, nil
}

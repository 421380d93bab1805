package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
)

var (
	accountCols     = []string{"id", "user_id", "account_type", "currency", "status", "created_at", "updated_at"}
	entryCols       = []string{"id", "transaction_id", "account_id", "entry_type", "amount", "created_at"}
	transactionCols = []string{"id", "type", "status", "amount", "currency", "description", "idempotency_key", "created_at"}
)

const (
	lockQuery         = `FROM accounts WHERE id = \$1 FOR UPDATE`
	entriesByAccount  = `FROM ledger_entries WHERE account_id = \$1`
	entriesByTx       = `FROM ledger_entries WHERE transaction_id = \$1`
	insertTransaction = `INSERT INTO transactions`
	insertEntry       = `INSERT INTO ledger_entries`
	transactionByKey  = `FROM transactions WHERE idempotency_key = \$1`
	transactionByID   = `FROM transactions WHERE id = \$1`
	accountByID       = `FROM accounts WHERE id = \$1`
	insertAccount     = `INSERT INTO accounts`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockStore(t *testing.T) (*repository.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repository.NewStore(db, discardLogger()), mock
}

func accountRow(id int64, currency, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(accountCols).AddRow(id, "user", "checking", currency, status, now, now)
}

func balanceRows(accountID int64, credits ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(entryCols)
	for i, amount := range credits {
		rows.AddRow(int64(i+1), int64(i+1), accountID, "credit", amount, time.Now())
	}
	return rows
}

func idRow(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*domain.Transaction
	contexts  []context.Context
	err       error
}

func (p *fakePublisher) PublishTransaction(ctx context.Context, tx *domain.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, tx)
	p.contexts = append(p.contexts, ctx)
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger-service/internal/domain"
	"ledger-service/internal/errors"
	"ledger-service/internal/repository"
)

// EventPublisher is notified of every transaction after it commits.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, tx *domain.Transaction) error
}

type TransactionService struct {
	store     *repository.Store
	writer    *LedgerWriter
	publisher EventPublisher
	logger    *slog.Logger
}

// NewTransactionService builds the engine. publisher may be nil.
func NewTransactionService(store *repository.Store, publisher EventPublisher, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		writer:    NewLedgerWriter(logger),
		publisher: publisher,
		logger:    logger,
	}
}

type TransferRequest struct {
	SourceAccountID      int64
	DestinationAccountID int64
	Amount               decimal.Decimal
	Currency             string
	Description          *string
	IdempotencyKey       *uuid.UUID
}

type DepositRequest struct {
	AccountID      int64
	Amount         decimal.Decimal
	Currency       string
	Description    *string
	IdempotencyKey *uuid.UUID
}

type WithdrawalRequest struct {
	AccountID      int64
	Amount         decimal.Decimal
	Currency       string
	Description    *string
	IdempotencyKey *uuid.UUID
}

// movement is one money-movement operation: a debit side, a credit side, or both.
type movement struct {
	txType         domain.TransactionType
	debitAccount   int64
	creditAccount  int64
	amount         decimal.Decimal
	currency       string
	description    *string
	idempotencyKey *uuid.UUID
}

func (m *movement) accountIDs() []int64 {
	var ids []int64
	if m.debitAccount != 0 {
		ids = append(ids, m.debitAccount)
	}
	if m.creditAccount != 0 {
		ids = append(ids, m.creditAccount)
	}
	return ids
}

// matches reports whether tx records the same movement as m.
func (m *movement) matches(tx *domain.Transaction) bool {
	if !tx.Amount.Equal(m.amount) || tx.Currency != m.currency {
		return false
	}

	want := m.entries()
	if len(tx.Entries) != len(want) {
		return false
	}
	for _, w := range want {
		found := false
		for _, e := range tx.Entries {
			if e.AccountID == w.AccountID && e.EntryType == w.EntryType && e.Amount.Equal(w.Amount) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *movement) entries() []domain.LedgerEntry {
	var entries []domain.LedgerEntry
	if m.debitAccount != 0 {
		entries = append(entries, domain.LedgerEntry{AccountID: m.debitAccount, EntryType: domain.EntryTypeDebit, Amount: m.amount})
	}
	if m.creditAccount != 0 {
		entries = append(entries, domain.LedgerEntry{AccountID: m.creditAccount, EntryType: domain.EntryTypeCredit, Amount: m.amount})
	}
	return entries
}

func (s *TransactionService) Transfer(ctx context.Context, req *TransferRequest) (*domain.Transaction, error) {
	if err := validateAccountID(req.SourceAccountID); err != nil {
		return nil, err
	}
	if err := validateAccountID(req.DestinationAccountID); err != nil {
		return nil, err
	}
	if req.SourceAccountID == req.DestinationAccountID {
		return nil, errors.ErrSameAccountTransfer
	}

	return s.execute(ctx, &movement{
		txType:         domain.TransactionTypeTransfer,
		debitAccount:   req.SourceAccountID,
		creditAccount:  req.DestinationAccountID,
		amount:         req.Amount,
		currency:       req.Currency,
		description:    req.Description,
		idempotencyKey: req.IdempotencyKey,
	})
}

func (s *TransactionService) Deposit(ctx context.Context, req *DepositRequest) (*domain.Transaction, error) {
	if err := validateAccountID(req.AccountID); err != nil {
		return nil, err
	}

	return s.execute(ctx, &movement{
		txType:         domain.TransactionTypeDeposit,
		creditAccount:  req.AccountID,
		amount:         req.Amount,
		currency:       req.Currency,
		description:    req.Description,
		idempotencyKey: req.IdempotencyKey,
	})
}

func (s *TransactionService) Withdraw(ctx context.Context, req *WithdrawalRequest) (*domain.Transaction, error) {
	if err := validateAccountID(req.AccountID); err != nil {
		return nil, err
	}

	return s.execute(ctx, &movement{
		txType:         domain.TransactionTypeWithdrawal,
		debitAccount:   req.AccountID,
		amount:         req.Amount,
		currency:       req.Currency,
		description:    req.Description,
		idempotencyKey: req.IdempotencyKey,
	})
}

// GetTransaction returns a transaction together with its ledger entries.
func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	if id <= 0 {
		return nil, errors.NewAppError(errors.InvalidInput, "transaction ID must be positive")
	}

	tx, err := s.store.Transaction().GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.Ledger().ListEntriesByTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	tx.Entries = entries
	return tx, nil
}

// execute runs m through lock, validate and write inside one database
// transaction. Nothing is written unless every check passes, and any failure
// rolls the whole transaction back.
func (s *TransactionService) execute(ctx context.Context, m *movement) (*domain.Transaction, error) {
	if !domain.ValidAmount(m.amount) {
		return nil, errors.ErrInvalidAmount.WithDetailsf(
			"amount must be positive with at most %d integer and %d decimal digits",
			domain.AmountIntegerDigits, domain.AmountScale)
	}
	m.currency = strings.ToUpper(m.currency)
	if len(m.currency) != 3 {
		return nil, errors.NewAppError(errors.InvalidInput, "currency must be a 3-letter code")
	}

	s.logger.Info("Processing transaction",
		"type", m.txType,
		"debit_account_id", m.debitAccount,
		"credit_account_id", m.creditAccount,
		"amount", m.amount,
		"currency", m.currency)

	if m.idempotencyKey != nil {
		existing, err := s.findByIdempotencyKey(ctx, m)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	var created *domain.Transaction
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		accounts, err := tx.Account().LockAccounts(ctx, m.accountIDs()...)
		if err != nil {
			return err
		}

		for _, id := range m.accountIDs() {
			account := accounts[id]
			if !account.IsActive() {
				return errors.ErrAccountInactive.WithDetailsf("account %d is %s", id, account.Status)
			}
			if account.Currency != m.currency {
				return errors.ErrCurrencyMismatch.WithDetailsf(
					"account %d holds %s, requested %s", id, account.Currency, m.currency)
			}
		}

		if m.debitAccount != 0 {
			balance, err := BalanceOf(ctx, tx.Ledger(), m.debitAccount)
			if err != nil {
				return err
			}
			if balance.LessThan(m.amount) {
				return errors.ErrInsufficientFunds.WithDetailsf(
					"account %d has %s %s available, requested %s",
					m.debitAccount, balance.StringFixed(domain.AmountScale), m.currency, m.amount)
			}
		}

		created, err = s.writer.Write(ctx, tx, WriteParams{
			Type:           m.txType,
			Currency:       m.currency,
			Amount:         m.amount,
			Description:    m.description,
			IdempotencyKey: m.idempotencyKey,
			Entries:        m.entries(),
		})
		return err
	})

	if err != nil {
		// A concurrent request with the same key won the unique index.
		if m.idempotencyKey != nil && stderrors.Is(err, errors.ErrDuplicateTransaction) {
			existing, lookupErr := s.findByIdempotencyKey(ctx, m)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, s.fail(m, err)
	}

	s.logger.Info("Transaction completed",
		"transaction_id", created.ID,
		"type", created.Type,
		"amount", created.Amount,
		"currency", created.Currency)

	s.publish(ctx, created)
	return created, nil
}

func (s *TransactionService) findByIdempotencyKey(ctx context.Context, m *movement) (*domain.Transaction, error) {
	existing, err := s.store.Transaction().GetTransactionByIdempotencyKey(ctx, *m.idempotencyKey)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.Type != m.txType {
		return nil, errors.ErrDuplicateTransaction.WithDetailsf(
			"idempotency key already used by %s transaction %d", existing.Type, existing.ID)
	}

	entries, err := s.store.Ledger().ListEntriesByTransaction(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	existing.Entries = entries

	if !m.matches(existing) {
		s.logger.Warn("Idempotency key reused with different parameters",
			"idempotency_key", *m.idempotencyKey,
			"transaction_id", existing.ID)
		return nil, errors.ErrDuplicateTransaction.WithDetailsf(
			"idempotency key already used by transaction %d with different accounts, amount or currency", existing.ID)
	}

	s.logger.Info("Returning existing transaction for idempotency key",
		"idempotency_key", *m.idempotencyKey,
		"transaction_id", existing.ID)
	return existing, nil
}

func (s *TransactionService) fail(m *movement, err error) error {
	appErr := errors.Internal(err)
	if appErr.IsInternal() {
		s.logger.Error("Transaction failed", "type", m.txType, "error", err)
	} else {
		s.logger.Warn("Transaction rejected", "type", m.txType, "code", appErr.Code, "details", appErr.Details)
	}
	return appErr
}

func (s *TransactionService) publish(ctx context.Context, tx *domain.Transaction) {
	if s.publisher == nil {
		return
	}
	// Already committed, so the event outlives a cancelled request.
	if err := s.publisher.PublishTransaction(context.WithoutCancel(ctx), tx); err != nil {
		s.logger.Error("Failed to publish transaction event", "transaction_id", tx.ID, "error", err)
	}
}

func validateAccountID(id int64) error {
	if id <= 0 {
		return errors.ErrInvalidAccountID.WithDetailsf("account ID %d", id)
	}
	return nil
}

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	AccountNotFound      ErrorCode = "account_not_found"
	TransactionNotFound  ErrorCode = "transaction_not_found"
	DuplicateAccount     ErrorCode = "duplicate_account"
	DuplicateTransaction ErrorCode = "duplicate_transaction"
	CurrencyMismatch     ErrorCode = "currency_mismatch"
	InsufficientFunds    ErrorCode = "insufficient_funds"
	AccountInactive      ErrorCode = "account_inactive"
	InvalidAmount        ErrorCode = "invalid_amount"
	InvalidInput         ErrorCode = "invalid_input"
	InvalidAccountID     ErrorCode = "invalid_account_id"
	SameAccountTransfer  ErrorCode = "same_account_transfer"
	InternalError        ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *AppError with the same code, so sentinels
// match their detailed copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e carrying details; e itself is left untouched.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithDetailsf is WithDetails with formatting.
func (e *AppError) WithDetailsf(format string, args ...interface{}) *AppError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// HTTPStatus maps the error code to the status the API responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound, TransactionNotFound:
		return http.StatusNotFound
	case DuplicateAccount, DuplicateTransaction:
		return http.StatusConflict
	case InsufficientFunds, AccountInactive:
		return http.StatusForbidden
	case CurrencyMismatch, InvalidAmount, InvalidInput, InvalidAccountID, SameAccountTransfer:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsInternal reports whether e represents an unexpected failure.
func (e *AppError) IsInternal() bool {
	return e.Code == InternalError
}

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Internal wraps any error into the detail-free internal error returned to callers.
// Errors that already are *AppError pass through unchanged.
func Internal(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal
}

// Predefined errors for common cases
var (
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrTransactionNotFound    = NewAppError(TransactionNotFound, "transaction not found")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists for this user and currency")
	ErrDuplicateTransaction   = NewAppError(DuplicateTransaction, "transaction already processed")
	ErrCurrencyMismatch       = NewAppError(CurrencyMismatch, "currency mismatch")
	ErrInsufficientFunds      = NewAppError(InsufficientFunds, "insufficient funds")
	ErrAccountInactive        = NewAppError(AccountInactive, "account is not active")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be positive with at most 4 decimal places")
	ErrInvalidAccountID       = NewAppError(InvalidAccountID, "invalid account ID")
	ErrSameAccountTransfer    = NewAppError(SameAccountTransfer, "cannot transfer to the same account")
	ErrCannotBeginTransaction = NewAppError(InternalError, "cannot begin transaction")
	ErrLockOutsideTransaction = NewAppError(InternalError, "account locks require an open transaction")
	ErrInternal               = NewAppError(InternalError, "an unexpected error occurred")
)

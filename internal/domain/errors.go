package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a transfer failure for HTTP mapping and callers that
// need machine-checkable outcomes.
type ErrorKind string

const (
	KindUnauthorized      ErrorKind = "unauthorized"
	KindNotFound          ErrorKind = "not_found"
	KindValidation        ErrorKind = "validation"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindInternal          ErrorKind = "internal"
)

// Error is a classified domain failure. The Kind is stable; the Message is
// for humans.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E constructs a classified error with a formatted message.
func E(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or KindInternal when err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Common sentinel failures of the transfer core.
var (
	ErrInsufficientFunds   = E(KindInsufficientFunds, "insufficient funds")
	ErrInvalidRoute        = E(KindValidation, "transfer between these wallet types is not supported")
	ErrWalletNotFound      = E(KindNotFound, "wallet not found")
	ErrUserNotFound        = E(KindNotFound, "user not found")
	ErrTransactionNotFound = E(KindNotFound, "transaction not found")
)

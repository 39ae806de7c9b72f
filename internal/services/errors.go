package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors, matched with errors.Is. Every structured error below unwraps to one of them.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrIntegrity         = errors.New("integrity violation")
)

// ValidationError reports a missing or invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func missing(field string) error {
	return &ValidationError{Field: field, Message: "field is required"}
}

// NotFoundError reports an id that does not resolve to an active record.
type NotFoundError struct {
	Kind string // "account", "transaction", "tiers", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientFundsError is returned when a transfer source cannot cover the amount.
type InsufficientFundsError struct {
	AccountID string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: available %s, requested %s",
		e.AccountID, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// IntegrityError reports a broken internal invariant, such as a transfer missing one leg.
type IntegrityError struct {
	Message string
}

func (e *IntegrityError) Error() string { return e.Message }

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// ErrorKind names the error category for API responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrIntegrity):
		return "integrity_error"
	}
	return "internal_error"
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientFunds)
}

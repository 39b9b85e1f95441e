package debtbook

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("debtbook: not found")
	ErrAlreadyExists = errors.New("debtbook: already exists")
	ErrInvalidInput  = errors.New("debtbook: invalid input")
	ErrUnauthorized  = errors.New("debtbook: unauthorized")

	// Counterparty errors
	ErrCounterpartyNotFound = errors.New("debtbook: counterparty not found")
	ErrInvalidKind          = errors.New("debtbook: invalid counterparty kind")

	// Debt and payment errors
	ErrDebtNotFound        = errors.New("debtbook: debt not found")
	ErrInvalidAmount       = errors.New("debtbook: invalid amount")
	ErrOverpaymentRejected = errors.New("debtbook: payment exceeds remaining balance")
	ErrAlreadySettled      = errors.New("debtbook: debt already settled")
	ErrConflict            = errors.New("debtbook: concurrent update conflict")

	// Store errors
	ErrStoreClosed     = errors.New("debtbook: store is closed")
	ErrMigrationFailed = errors.New("debtbook: migration failed")
)

// ValidationError represents a validation failure with details.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("debtbook: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "debtbook: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("debtbook: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDebtNotFound) ||
		errors.Is(err, ErrCounterpartyNotFound)
}

// IsRejected returns true if a payment was refused because of the debt's
// current balance or status. Persisted state is unchanged in that case.
func IsRejected(err error) bool {
	return errors.Is(err, ErrOverpaymentRejected) ||
		errors.Is(err, ErrAlreadySettled)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All ledger error values in one place. Domain packages wrap these with
  additional context and match them with errors.Is().
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrTransactionNotFound is returned when reversing an unknown transaction.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNegativeAmount is returned when appending a transaction with a
	// negative amount. Direction is expressed by the transaction type.
	ErrNegativeAmount = errors.New("transaction amount must not be negative")

	// ErrInsufficientBalance is returned when a withdrawal exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InsufficientBalanceError carries the details of a balance shortage.
type InsufficientBalanceError struct {
	AccountID string
	Available Money
	Requested Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on %s: available %v, requested %v",
		e.AccountID, e.Available.Value, e.Requested.Value)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

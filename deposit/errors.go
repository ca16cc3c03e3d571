/*
errors.go - Error taxonomy for the deposit engine

PURPOSE:
  Three error families, matching how callers need to react:

  1. Validation errors: field/date/term violations collected as a batch so a
     caller can show all problems at once. Never fail-fast.
  2. State errors: an operation attempted from an illegal lifecycle state.
     Single error, immediate abort - state is a precondition, not a field.
  3. Rate-resolution errors: no applicable slab / zero resolved rate at
     validation time, surfaced inside the validation batch.

  Everything here is recoverable by the caller; nothing aborts the process.
  Persisted state must be left unchanged on failure - rolling back is the
  responsibility of the surrounding transaction boundary.
*/
package deposit

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// VIOLATION CODES
// =============================================================================

const (
	CodeTermOutsideRange        = "deposit.term.outside.range"
	CodeTermExceedsMax          = "deposit.term.exceeds.max"
	CodeTermNotMultiple         = "deposit.term.not.multiple"
	CodeTermMinAboveMax         = "deposit.term.min.above.max"
	CodeNoApplicableRateSlab    = "deposit.chart.no.applicable.slab"
	CodeZeroResolvedRate        = "deposit.chart.zero.rate"
	CodeClosureBeforeActivation = "deposit.closure.before.activation"
	CodeClosureBeforeLockIn     = "deposit.closure.before.lockin"
	CodeClosureAfterMaturity    = "deposit.closure.after.maturity"
	CodeClosureBeforeMaturity   = "deposit.closure.before.maturity"
	CodeClosureInFuture         = "deposit.closure.in.future"
	CodeClosureBeforeLastTx     = "deposit.closure.before.last.transaction"
	CodeTransferTargetMissing   = "deposit.closure.transfer.target.missing"
	CodePreClosureInconsistent  = "deposit.preclosure.inconsistent"
)

// Violation is a single coded validation failure.
type Violation struct {
	Code    string
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s (%s): %s", v.Code, v.Field, v.Message)
}

// =============================================================================
// VALIDATION ERRORS - Batched, not fail-fast
// =============================================================================

// ValidationErrors bundles every violation found during a validation pass.
type ValidationErrors struct {
	Violations []Violation
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a violation.
func (e *ValidationErrors) Add(code, field, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{
		Code:    code,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasAny reports whether any violation was collected.
func (e *ValidationErrors) HasAny() bool { return len(e.Violations) > 0 }

// AsError returns the bundle as an error, or nil when empty.
func (e *ValidationErrors) AsError() error {
	if e.HasAny() {
		return e
	}
	return nil
}

// HasCode reports whether a violation with the given code is present.
func (e *ValidationErrors) HasCode(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// =============================================================================
// STATE ERRORS - Illegal lifecycle transitions
// =============================================================================

var (
	// ErrInvalidState is the sentinel wrapped by every StateError.
	ErrInvalidState = errors.New("operation not permitted in current account state")

	// ErrReinvestNotAllowed is returned when the product configuration
	// disallows the reinvest disposition.
	ErrReinvestNotAllowed = errors.New("reinvestment is not allowed for this account")

	// ErrAccountNotFound is returned when an account id cannot be resolved.
	ErrAccountNotFound = errors.New("deposit account not found")

	// ErrProductNotFound is returned when a product id cannot be resolved.
	ErrProductNotFound = errors.New("deposit product not found")
)

// StateError describes an operation attempted from an illegal state.
type StateError struct {
	AccountID string
	Operation string
	Status    Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s account %s in state %s", e.Operation, e.AccountID, e.Status)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

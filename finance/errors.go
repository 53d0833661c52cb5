/*
errors.go - Centralized error taxonomy for the ledger engine

PURPOSE:
  All error types in one place. Every public engine operation either fully
  succeeds (aggregates + transaction consistent) or fails with one of these;
  nothing is ever partially persisted.

ERROR CATEGORIES:
  1. Validation  - structurally invalid input; raised before any store access
  2. NotFound    - referenced aggregate/transaction missing at commit time
  3. Conflict    - the atomic unit's snapshot was invalidated concurrently
  4. Invariant   - internal defensive check failure; always a programming bug

USAGE:
  if finance.IsNotFound(err) { ... }
  if finance.IsRetryable(err) { retry the whole operation }

SEE ALSO:
  - ledger/engine.go: Raises these
  - store/: Maps backend failures onto ErrConflict / ErrNotFound
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for structurally invalid input (non-positive
	// amount, missing required reference, transfer to self). Nothing is written.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced aggregate or transaction does
	// not exist at commit time. No partial write occurs.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the atomic unit's snapshot was invalidated
	// by a concurrent writer. The caller may retry; the engine never does.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrInvariant is returned when a defensive internal check fails (e.g. the
	// decision table produced no balance target). Always a programming error.
	ErrInvariant = errors.New("invariant violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which input field was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "account", "card", "debt", "goal", "investment", "subscription", "asset", "transaction"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvariantError carries the failed check. These should be logged at error
// level and treated as fatal for the operation, never swallowed.
type InvariantError struct {
	Check string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Check)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }

// IsRetryable reports whether retrying the whole operation might succeed.
func IsRetryable(err error) bool { return errors.Is(err, ErrConflict) }

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}

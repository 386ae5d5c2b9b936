/*
errors.go - Centralized error types for the ledger

ERROR CATEGORIES:
  1. Validation errors - malformed input, never retried
  2. Not-found errors  - missing or not-owned resources (indistinguishable
     to the caller, so account existence never leaks across users)
  3. Conflict errors   - concurrent-edit contention, safe to retry whole command
  4. Storage errors    - the atomic unit could not commit; no partial effect

USAGE:
  Callers classify with errors.Is against the sentinels, or with the
  helpers at the bottom of this file:

    if ledger.IsRetryable(err) {
        // re-run the command from scratch
    }
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
	// ErrValidation is the root of all malformed-input failures.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an account, category, or transaction does
	// not exist or is not owned by the caller. The two cases are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the optimistic version check on an account
	// balance write fails. The whole command is safe to retry.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrStorage is returned when the store is unreachable or the atomic unit
	// could not commit. The operation had no effect.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the field that failed and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError names only the resource kind, never whether it exists for
// someone else.
type NotFoundError struct {
	Resource string // "account", "category", "transaction"
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports contention that exhausted the retry budget.
type ConflictError struct {
	AccountID AccountID
	Attempts  int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("account %s: concurrent modification after %d attempts", e.AccountID, e.Attempts)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StorageError wraps a driver-level failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if re-running the whole command might succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing or foreign resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

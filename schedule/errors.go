/*
errors.go - Centralized error taxonomy for the schedule engine

PURPOSE:
  All error kinds in one place. Every precondition failure is detected
  before mutation and returned as a typed error, so callers can tell
  "nothing happened" (client errors) from "something may be stale"
  (Conflict) from "the system is degraded" (Unavailable).

ERROR CATEGORIES:
  1. NotFound        - staff/client/session absent for the given key
  2. CapacityExceeded - staff > 3 or clients > 8 on a session
  3. TypeConflict    - session-type consistency violations
  4. InvalidInput    - missing or malformed required fields
  5. Conflict        - optimistic version check failed on store
  6. Unavailable     - a collaborator is unreachable

USAGE:
  if errors.Is(err, schedule.ErrCapacityExceeded) { ... }
  if schedule.IsClientError(err) { ... }  // 4xx

SEE ALSO:
  - engine.go: returns these from every operation
  - store.go: StateStore.Store returns ErrConflict on stale writes
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a staff position, client state, session,
	// or daily state is absent for the given key.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded is returned when an operation would push a session
	// past 3 staff or 8 clients.
	ErrCapacityExceeded = errors.New("session capacity exceeded")

	// ErrTypeConflict is returned when an operation would make a session
	// hold more than one staff and more than one client at once.
	ErrTypeConflict = errors.New("session type conflict")

	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when the optimistic version check detects a
	// concurrent write to the same date. Callers may retry.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrUnavailable is returned when a collaborator is unreachable during a
	// mutating operation. State building downgrades this to a degraded
	// empty state instead.
	ErrUnavailable = errors.New("collaborator unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Entity string // "staff position", "client state", "session", "daily state"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CapacityError identifies which limit an operation would exceed.
type CapacityError struct {
	SessionID string
	Member    string // "staff" or "clients"
	Limit     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("session %s already has %d %s", e.SessionID, e.Limit, e.Member)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// TypeConflictError explains the session-type consistency violation.
type TypeConflictError struct {
	SessionID string
	Message   string
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("session %s: %s", e.SessionID, e.Message)
}

func (e *TypeConflictError) Unwrap() error { return ErrTypeConflict }

// InvalidInputError identifies the offending field.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a precondition failure: nothing
// was mutated and retrying the same request will fail the same way.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrTypeConflict) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool { return errors.Is(err, ErrConflict) }

// IsUnavailable returns true if a collaborator was unreachable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

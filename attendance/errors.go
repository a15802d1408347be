/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All engine error values in one place. Every error here is a recoverable,
  caller-facing validation error; none are fatal to the process. The API
  layer maps them to HTTP statuses with IsClientError / IsNotFound.

ERROR CATEGORIES:
  1. Mark state machine - DuplicateEntry, NoOpenEntry, AlreadyClosed
  2. Justification workflow - NotPending, CommentRequired, ExceedsPending,
     LimitExceeded
  3. Configuration - InvalidSchedule
  4. Lookups - the *NotFound family

USAGE:
  if errors.Is(err, attendance.ErrAlreadyClosed) {
      // the other closer won the race; nothing to do
  }

SEE ALSO:
  - marks.go, debt.go, justification.go: Producers
  - api/handlers.go: HTTP status mapping
*/
package attendance

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateEntry is returned when an entry mark already exists for the
	// employee on that date.
	ErrDuplicateEntry = errors.New("entry already marked for this day")

	// ErrNoOpenEntry is returned when closing a day with no open entry mark.
	ErrNoOpenEntry = errors.New("no open entry mark for this day")

	// ErrAlreadyClosed is returned when a mark's exit is already set. This is
	// the race guard between manual exits and the auto-close sweep: exactly
	// one closer succeeds, the other observes this error and no-ops.
	ErrAlreadyClosed = errors.New("mark already closed")

	// ErrNotPending is returned when reviewing a justification that was
	// already approved or rejected.
	ErrNotPending = errors.New("justification is not pending")

	// ErrCommentRequired is returned when rejecting without a comment.
	ErrCommentRequired = errors.New("rejection requires a comment")

	// ErrExceedsPending is returned when a justification asks for more hours
	// than the debt has pending.
	ErrExceedsPending = errors.New("justification exceeds pending debt hours")

	// ErrLimitExceeded is returned when the project's justifiable-hours limit
	// for the current period would be exceeded.
	ErrLimitExceeded = errors.New("justifiable hours limit exceeded for period")

	// ErrInvalidSchedule is returned when an operation requires a resolvable
	// schedule window and the project has none configured.
	ErrInvalidSchedule = errors.New("schedule configuration is incomplete")

	// ErrJustificationsDisabled is returned when submitting against a project
	// whose configuration does not allow justifications.
	ErrJustificationsDisabled = errors.New("justifications are not allowed for this project")

	ErrMarkNotFound          = errors.New("mark not found")
	ErrDebtNotFound          = errors.New("debt not found")
	ErrJustificationNotFound = errors.New("justification not found")
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrProjectNotFound       = errors.New("project not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ExceedsPendingError reports how far a justification overshot the debt.
type ExceedsPendingError struct {
	DebtID    string
	Pending   decimal.Decimal
	Requested decimal.Decimal
}

func (e *ExceedsPendingError) Error() string {
	return fmt.Sprintf("cannot justify %s hours: debt %s has only %s pending",
		e.Requested, e.DebtID, e.Pending)
}

func (e *ExceedsPendingError) Unwrap() error { return ErrExceedsPending }

// LimitExceededError reports the period limit that blocked a justification.
type LimitExceededError struct {
	Limit     decimal.Decimal
	Used      decimal.Decimal
	Requested decimal.Decimal
	Period    LimitPeriod
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("justifiable hours limit exceeded: %s of %s already used this %s period, requested %s",
		e.Used, e.Limit, e.Period, e.Requested)
}

func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true when the error is caused by invalid caller input
// or a state the caller can observe and react to.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateEntry) ||
		errors.Is(err, ErrNoOpenEntry) ||
		errors.Is(err, ErrAlreadyClosed) ||
		errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrCommentRequired) ||
		errors.Is(err, ErrExceedsPending) ||
		errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrJustificationsDisabled)
}

// IsConflict returns true for errors the API layer reports as 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEntry) || errors.Is(err, ErrAlreadyClosed)
}

// IsNotFound returns true when the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMarkNotFound) ||
		errors.Is(err, ErrDebtNotFound) ||
		errors.Is(err, ErrJustificationNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrProjectNotFound)
}

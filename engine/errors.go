/*
errors.go - Centralized error taxonomy for the lifecycle engine

PURPOSE:
  All engine error types in one place. Instrument packages return these
  errors from their transition guards; callers classify them with
  errors.Is / errors.As.

ERROR CATEGORIES:
  1. IllegalTransition     - transition not valid from current state
  2. WindowExpired         - time-bound operation past its deadline
  3. InsufficientFunds     - ledger debit would take a balance negative
  4. ConcurrentModification- optimistic status guard lost the race
  5. InvalidAmount         - monetary value outside acceptable bounds

RETRY SEMANTICS:
  IllegalTransition and WindowExpired are precondition failures: report
  to the caller, never retry automatically. ConcurrentModification is
  safe to retry once after re-reading state. InsufficientFunds and
  InvalidAmount abort with no partial effect.

USAGE:
  if errors.Is(err, engine.ErrWindowExpired) { ... }

  var it *engine.IllegalTransitionError
  if errors.As(err, &it) { log(it.From, it.Requested) }

SEE ALSO:
  - bank/service.go: applies the retry policy
*/
package engine

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIllegalTransition is returned when a requested transition is not
	// valid from the instrument's current state.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrWindowExpired is returned when a time-bound operation is
	// attempted after its deadline.
	ErrWindowExpired = errors.New("window expired")

	// ErrInsufficientFunds is returned when a debit would take an account
	// balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConcurrentModification is returned when the optimistic status
	// guard detects the instrument changed underneath the caller.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidAmount is returned for monetary values outside acceptable
	// bounds (negative principal, zero cheque amount, ...).
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound is returned when a referenced account or instrument
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateIdempotencyKey is returned when a ledger record with
	// the same idempotency key already exists. Expected on retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IllegalTransitionError reports the state a transition was attempted
// from, so callers can present accurate messages.
type IllegalTransitionError struct {
	Instrument string // "cheque", "transfer", "fixed_deposit", "loan"
	ID         string
	From       string // current status (and sub-status where relevant)
	Requested  string // the operation that was attempted
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from state %s", e.Instrument, e.ID, e.Requested, e.From)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// WindowExpiredError reports a missed deadline, distinct from a wrong
// state or wrong instrument type.
type WindowExpiredError struct {
	Instrument string
	ID         string
	Deadline   time.Time
	At         time.Time
}

func (e *WindowExpiredError) Error() string {
	return fmt.Sprintf("%s %s: window expired at %s (attempted at %s)",
		e.Instrument, e.ID, e.Deadline.Format(time.RFC3339), e.At.Format(time.RFC3339))
}

func (e *WindowExpiredError) Unwrap() error { return ErrWindowExpired }

// InsufficientFundsError reports an account's shortfall for a debit.
type InsufficientFundsError struct {
	AccountNumber string
	Available     Money
	Requested     Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %s: insufficient funds (available %s, requested %s)",
		e.AccountNumber, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InvalidAmountError reports a monetary value that failed validation.
type InvalidAmountError struct {
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return "invalid amount: " + e.Reason
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the operation might succeed after
// re-reading state and retrying once.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsPreconditionFailure returns true for guard failures that must be
// reported to the caller and never retried automatically.
func IsPreconditionFailure(err error) bool {
	return errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrWindowExpired)
}

// IsClientError returns true if the error is due to invalid client input
// or a precondition the client can observe.
func IsClientError(err error) bool {
	return IsPreconditionFailure(err) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNotFound)
}

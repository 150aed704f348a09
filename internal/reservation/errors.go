// Package reservation implements the capacity-constrained booking engine.
// It owns the only code paths allowed to mutate bookings and ledger
// balances; handlers and jobs never reach around it to the tables.
package reservation

import "errors"

// Kind classifies a booking failure for the caller.  Every kind below is
// a recoverable, expected outcome that the caller may act on (prompt a
// renewal, a top-up, a different slot); only storage unavailability is
// propagated as an untyped fatal error.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindNotEligible         Kind = "not_eligible"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindCapacityExceeded    Kind = "capacity_exceeded"
	KindInvalidState        Kind = "invalid_state"
	KindForbidden           Kind = "forbidden"
)

// Error is the typed result returned for every recoverable booking
// failure.  Handlers branch on Kind; Message is safe to show the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

// Is reports kind equality, so errors.Is(err, ErrCapacityExceeded)
// matches any Error carrying that kind regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinel values for errors.Is comparisons.
var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNotEligible         = &Error{Kind: KindNotEligible, Message: "no active membership"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrCapacityExceeded    = &Error{Kind: KindCapacityExceeded, Message: "slot is full"}
	ErrInvalidState        = &Error{Kind: KindInvalidState, Message: "invalid booking state"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "forbidden"}
)

// ErrConcurrencyConflict is the internal signal that an atomic unit of
// work lost a race (deadlock, lock wait timeout, or an insert race it
// could not resolve).  The engine retries the unit once and then degrades
// to ErrCapacityExceeded; this sentinel itself is never surfaced to
// callers.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// errDuplicateRace signals inside a booking transaction that the insert
// hit the idempotency key because an identical request committed
// concurrently.  The transaction is rolled back (discarding the debit)
// and the pre-existing booking is returned instead.
var errDuplicateRace = errors.New("duplicate booking race")

func notFound(msg string) error            { return &Error{Kind: KindNotFound, Message: msg} }
func invalidState(msg string) error        { return &Error{Kind: KindInvalidState, Message: msg} }
func insufficientBalance(msg string) error { return &Error{Kind: KindInsufficientBalance, Message: msg} }

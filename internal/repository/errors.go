// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation engine to distinguish between different failure scenarios
// without inspecting driver-specific error codes. For example,
// ErrDuplicateBooking signals that the (user, slot) idempotency key
// already holds a confirmed booking, while ErrInsufficientBalance signals
// that a debit would drive a ledger entry negative.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrSlotNotFound is returned when no slot exists for the requested ID.
var ErrSlotNotFound = errors.New("slot not found")

// ErrBookingNotFound is returned when no booking row matches the query.
var ErrBookingNotFound = errors.New("booking not found")

// ErrNoActiveEntry is returned when a user has no active ledger entry with
// a positive balance for the requested category.
var ErrNoActiveEntry = errors.New("no active ledger entry")

// ErrInsufficientBalance is returned when a debit would make a ledger
// entry's balance negative. The entry is left untouched.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrDuplicateBooking is returned when inserting a confirmed booking
// collides with the (user_id, slot_id, active) unique key, meaning a
// confirmed booking for the pair already exists.
var ErrDuplicateBooking = errors.New("duplicate booking")

// ErrDuplicateRefill is returned when inserting a refill-run marker
// collides with the (user_id, week_start) unique key, meaning the week
// was already processed for the user.
var ErrDuplicateRefill = errors.New("refill already recorded for week")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an HTTP
// 403 response.
var ErrForbidden = errors.New("forbidden")

// MySQL server error numbers that the repositories classify.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// isDuplicateKey reports whether err is a MySQL duplicate-key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

// IsSerialization reports whether err is a transient serialization failure
// (deadlock or lock wait timeout). Transactions failing this way can be
// retried safely because nothing was committed.
func IsSerialization(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout
}

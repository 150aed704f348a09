package reservation

import (
	"context"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// Store is the storage contract the engine requires.  The production
// implementation wraps MySQL (see NewMySQLStore); tests substitute an
// in-memory store to exercise the concurrency properties directly.
// Non-transactional reads serve the cheap pre-checks that happen before
// the critical section; everything that mutates state runs inside InTx.
type Store interface {
	// Slot returns a slot by ID or repository.ErrSlotNotFound.
	Slot(ctx context.Context, slotID uint64) (*model.Slot, error)
	// ConfirmedBooking returns the confirmed booking for the (user, slot)
	// idempotency key or repository.ErrBookingNotFound.
	ConfirmedBooking(ctx context.Context, userID, slotID uint64) (*model.Booking, error)
	// Booking returns a booking by ID or repository.ErrBookingNotFound.
	Booking(ctx context.Context, bookingID uint64) (*model.Booking, error)
	// ActiveEntry returns the consultable ledger entry for (user,
	// category) or repository.ErrNoActiveEntry.
	ActiveEntry(ctx context.Context, userID uint64, category string) (*model.LedgerEntry, error)
	// InTx runs fn inside one atomic unit of work.  A nil return from fn
	// commits; any error rolls every change back.  Serialization failures
	// (from fn's statements or from the commit itself) are returned as
	// ErrConcurrencyConflict.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside one atomic unit of work.
// Row-locking methods (ForUpdate variants) pin their rows until the
// transaction ends, which is what serializes concurrent bookers; no lock
// is ever held across external I/O.
type Tx interface {
	SlotForUpdate(ctx context.Context, slotID uint64) (*model.Slot, error)
	SlotByID(ctx context.Context, slotID uint64) (*model.Slot, error)
	ConfirmedBooking(ctx context.Context, userID, slotID uint64) (*model.Booking, error)
	BookingForUpdate(ctx context.Context, bookingID uint64) (*model.Booking, error)
	// OccupantIDs returns the user IDs recorded against the physical slot
	// through the direct-assignment path and the booking path.  The two
	// slices may overlap; capacity decisions use their distinct union.
	OccupantIDs(ctx context.Context, key model.SlotKey) (direct, booked []uint64, err error)
	ActiveEntryForUpdate(ctx context.Context, userID uint64, category string) (*model.LedgerEntry, error)
	Debit(ctx context.Context, entryID uint64, amount uint32) (uint32, error)
	Credit(ctx context.Context, entryID uint64, amount uint32) (uint32, error)
	// InsertConfirmed inserts a confirmed booking, returning
	// repository.ErrDuplicateBooking when the idempotency key is taken.
	InsertConfirmed(ctx context.Context, b *model.Booking) error
	CancelBooking(ctx context.Context, bookingID uint64) error
}

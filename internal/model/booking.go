package model

import "time"

// Booking statuses.  A booking is either confirmed or cancelled; rows are
// never physically deleted so the audit history stays intact.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking links a user to a slot.  For any slot the number of confirmed
// bookings never exceeds the slot's capacity, and at most one confirmed
// booking exists per (user, slot) pair; that pair is the idempotency key
// for retried booking requests.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – member who booked.
//  SlotID        – slot being booked.
//  Status        – confirmed or cancelled.
//  LedgerEntryID – ledger entry debited when the slot was ledger-backed;
//                  nil for membership-gated slots.  Cancellation credits
//                  this exact entry, never whichever entry happens to be
//                  active at cancel time.
//  DebitAmount   – credits debited at booking time (0 for membership slots).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last transition timestamp.
type Booking struct {
	ID            uint64    // bookings.id
	UserID        uint64    // bookings.user_id
	SlotID        uint64    // bookings.slot_id
	Status        string    // bookings.status
	LedgerEntryID *uint64   // bookings.ledger_entry_id (nullable)
	DebitAmount   uint32    // bookings.debit_amount
	CreatedAt     time.Time // bookings.created_at
	UpdatedAt     time.Time // bookings.updated_at
}

package model

import "time"

// SlotKind distinguishes how a slot is paid for.  A ledger slot debits
// one credit from the member's prepaid balance; a membership slot is a
// shared room/trainer reservation gated purely by an active membership
// window, with no debit at all.
type SlotKind string

const (
	SlotKindLedger     SlotKind = "ledger"
	SlotKindMembership SlotKind = "membership"
)

// Slot is a capacity-bounded, time-boxed reservable unit: a class or a
// room/trainer session on a concrete date.  Inactive slots accept no new
// bookings but bookings already made against them remain valid.
//
// Fields:
//  ID             – primary key identifier.
//  Date           – calendar day in the reference timezone.
//  StartTime      – start of the window, "HH:MM:SS".
//  EndTime        – end of the window, "HH:MM:SS".
//  Room           – room identifier.
//  Trainer        – trainer identifier.
//  Capacity       – maximum distinct occupants, always >= 1.
//  Kind           – ledger-backed or membership-gated.
//  CreditCategory – ledger category debited for ledger slots ("" otherwise).
//  Active         – whether new bookings are accepted.
type Slot struct {
	ID             uint64    // slots.id
	Date           time.Time // slots.slot_date (date only)
	StartTime      string    // slots.start_time
	EndTime        string    // slots.end_time
	Room           string    // slots.room
	Trainer        string    // slots.trainer
	Capacity       uint32    // slots.capacity
	Kind           SlotKind  // slots.kind
	CreditCategory string    // slots.credit_category
	Active         bool      // slots.active
	CreatedAt      time.Time // slots.created_at
	UpdatedAt      time.Time // slots.updated_at
}

// SlotKey identifies a physical slot independently of which table a row
// describing it lives in.  Both occupancy recording paths (direct session
// assignments and bookings) resolve to the same key, which is what lets
// the aggregator reconcile them.
type SlotKey struct {
	Date      time.Time // calendar day, midnight in the reference timezone
	StartTime string    // "HH:MM:SS"
	EndTime   string    // "HH:MM:SS"
	Room      string
	Trainer   string
	GroupSize uint32 // capacity class of the session (1 = individual)
}

// Key derives the slot's reconciliation key.
func (s *Slot) Key() SlotKey {
	return SlotKey{
		Date:      s.Date,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Room:      s.Room,
		Trainer:   s.Trainer,
		GroupSize: s.Capacity,
	}
}

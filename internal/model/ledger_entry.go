package model

import "time"

// LedgerEntry is a member's prepaid credit balance for one lesson
// category.  One unit of balance pays for one booking.  At most one
// active entry per (user, category) is consulted when booking; the
// balance is only ever mutated through the ledger manager's atomic
// debit/credit operations, never by direct assignment.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the balance.
//  Category  – lesson category the credits pay for (e.g. "pilates").
//  Balance   – remaining whole credits, never negative.
//  Active    – whether the entry may be consulted for new bookings.
//  ExpiresAt – optional hard expiry of the balance.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last mutation timestamp.
type LedgerEntry struct {
	ID        uint64     // ledger_entries.id
	UserID    uint64     // ledger_entries.user_id
	Category  string     // ledger_entries.category
	Balance   uint32     // ledger_entries.balance
	Active    bool       // ledger_entries.active
	ExpiresAt *time.Time // ledger_entries.expires_at (nullable)
	CreatedAt time.Time  // ledger_entries.created_at
	UpdatedAt time.Time  // ledger_entries.updated_at
}

package model

import "time"

// Membership window statuses as stored.  The stored status alone is never
// trusted for eligibility: the evaluator always recomputes validity from
// the date range, because the upstream store carries stale convenience
// flags.
const (
	MembershipStatusActive    = "active"
	MembershipStatusExpired   = "expired"
	MembershipStatusCancelled = "cancelled"
	MembershipStatusSuspended = "suspended"
)

// MembershipWindow is a date range during which a user is entitled to
// facility access independent of per-class credits.  Owned by the external
// enrollment subsystem; this core reads it and nothing more.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – member the window belongs to.
//  PackageID – purchased package that granted the window.
//  Status    – stored lifecycle state (see constants above).
//  StartDate – first valid calendar day, inclusive.
//  EndDate   – last valid calendar day, inclusive.
//  DeletedAt – soft-delete marker; deleted windows never grant access.
type MembershipWindow struct {
	ID        uint64     // membership_windows.id
	UserID    uint64     // membership_windows.user_id
	PackageID uint64     // membership_windows.package_id
	Status    string     // membership_windows.status
	StartDate time.Time  // membership_windows.start_date (date only)
	EndDate   time.Time  // membership_windows.end_date (date only)
	DeletedAt *time.Time // membership_windows.deleted_at (nullable)
}

package model

import "time"

// SessionVariant tags the shape of a directly-assigned session record.
// The upstream scheduling tool records individual sessions, fixed weekly
// group sessions and on-demand group sessions in one table with loosely
// different shapes; the variant is resolved once when a row is scanned and
// never re-sniffed at read sites.
type SessionVariant string

const (
	SessionIndividual     SessionVariant = "individual"
	SessionGroupScheduled SessionVariant = "group_scheduled"
	SessionGroupOnDemand  SessionVariant = "group_on_demand"
)

// SessionRecord is a directly-assigned occupancy row: a trainer or
// administrator placed the user into the physical slot without going
// through the booking flow.  This is recording path A; bookings are path
// B.  The same physical slot may be described by rows in both paths, so
// occupancy counts the union of distinct users, never the row total.
//
// Fields mirror the session_records table; Date/StartTime/EndTime/Room/
// Trainer/GroupSize together form the slot reconciliation key.
type SessionRecord struct {
	ID        uint64         // session_records.id
	UserID    uint64         // session_records.user_id
	Date      time.Time      // session_records.slot_date (date only)
	StartTime string         // session_records.start_time
	EndTime   string         // session_records.end_time
	Room      string         // session_records.room
	Trainer   string         // session_records.trainer
	GroupSize uint32         // session_records.group_size
	Variant   SessionVariant // session_records.variant
	Active    bool           // session_records.active
	CreatedAt time.Time      // session_records.created_at
}

// Key derives the record's slot reconciliation key.
func (s *SessionRecord) Key() SlotKey {
	return SlotKey{
		Date:      s.Date,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Room:      s.Room,
		Trainer:   s.Trainer,
		GroupSize: s.GroupSize,
	}
}

// Package clock supplies the current time in the studio's single reference
// timezone.  Every temporal decision in the reservation core (membership
// validity, refill weeks, ledger expiry) routes through a Clock so that
// tests can substitute a fixed instant and so that no component ever
// consults the caller's local wall clock.
package clock

import "time"

// referenceZone is the canonical timezone for all business dates.  The
// studio operates in Greece; business days and week boundaries are defined
// in this zone regardless of where the server or the caller runs.
const referenceZone = "Europe/Athens"

// location holds the loaded reference location.  When the tz database is
// unavailable the code falls back to a fixed UTC+2 offset rather than
// silently using the host zone.
var location *time.Location

func init() {
	loc, err := time.LoadLocation(referenceZone)
	if err != nil {
		loc = time.FixedZone("EET", 2*60*60)
	}
	location = loc
}

// Location returns the reference location.  Callers that need to build
// timestamps for comparison against business dates must use it.
func Location() *time.Location { return location }

// Clock yields the current instant.  Implementations must return times
// already converted to the reference location.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().In(location) }

// System returns a Clock backed by the host's real time source, converted
// to the reference location.
func System() Clock { return systemClock{} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t.In(location) }

// Fixed returns a Clock pinned to the given instant.  Used by tests and by
// operations that accept an explicit "as of" time.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

// DateOf truncates an instant to midnight of its calendar day in the
// reference location.  All date-only comparisons (membership windows,
// slot dates) operate on values produced by this function.
func DateOf(t time.Time) time.Time {
	t = t.In(location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, location)
}

// Today is shorthand for DateOf(c.Now()).
func Today(c Clock) time.Time { return DateOf(c.Now()) }

// MustDate parses a YYYY-MM-DD string in the reference location.  It
// panics on malformed input and therefore belongs in tests and static
// initialisation only.
func MustDate(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, location)
	if err != nil {
		panic(err)
	}
	return t
}

// WeekStart returns the Monday 00:00 that opens the refill week containing
// t.  The refill week runs Monday through Saturday; a Sunday instant
// belongs to the following week, so its WeekStart is the next day.
func WeekStart(t time.Time) time.Time {
	d := DateOf(t)
	switch d.Weekday() {
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	case time.Monday:
		return d
	default:
		return d.AddDate(0, 0, -(int(d.Weekday()) - int(time.Monday)))
	}
}

// WeekEnd returns the last instant of the refill week opened by start:
// Saturday 23:59:59 in the reference location.
func WeekEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, 5).Add(24*time.Hour - time.Second)
}

// DaysBetween returns the number of calendar days from a to b in the
// reference location.  The result is negative when b precedes a.  Both
// arguments are truncated to their calendar day first, so the value is a
// whole number of days regardless of the time-of-day components.
func DaysBetween(a, b time.Time) int {
	da := DateOf(a)
	db := DateOf(b)
	// Re-anchor both midnights in UTC so DST transitions (23h/25h days in
	// the reference zone) cannot skew the division.
	ua := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

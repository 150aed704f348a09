// Package membership decides whether a user currently holds facility
// access.  Eligibility is always recomputed from the window's date range
// in the reference timezone; the stored status flag alone is never
// sufficient because the upstream enrollment store leaves stale flags
// behind.
package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// WindowSource loads a user's membership windows.  Soft-deleted windows
// are already filtered out by the implementation.
type WindowSource interface {
	WindowsByUser(ctx context.Context, userID uint64) ([]model.MembershipWindow, error)
}

// Evaluator answers membership eligibility questions against a Clock so
// every caller agrees on what "today" means.
type Evaluator struct {
	source WindowSource
	clk    clock.Clock
}

func NewEvaluator(source WindowSource, clk clock.Clock) *Evaluator {
	return &Evaluator{source: source, clk: clk}
}

// windowCovers reports whether the window grants access on the given
// calendar day.  All three conditions must hold; both boundary days are
// inclusive.
func windowCovers(w model.MembershipWindow, day time.Time) bool {
	if w.Status != model.MembershipStatusActive || w.DeletedAt != nil {
		return false
	}
	start := clock.DateOf(w.StartDate)
	end := clock.DateOf(w.EndDate)
	return !day.Before(start) && !day.After(end)
}

// IsActive reports whether the user holds any window granting access
// today.
func (e *Evaluator) IsActive(ctx context.Context, userID uint64) (bool, error) {
	w, err := e.ActiveWindow(ctx, userID)
	if err != nil {
		return false, err
	}
	return w != nil, nil
}

// ActiveWindow returns the window granting access today, preferring the
// one that expires last, or nil when none does.
func (e *Evaluator) ActiveWindow(ctx context.Context, userID uint64) (*model.MembershipWindow, error) {
	windows, err := e.source.WindowsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := clock.Today(e.clk)
	var best *model.MembershipWindow
	for i := range windows {
		w := windows[i]
		if !windowCovers(w, today) {
			continue
		}
		if best == nil || clock.DateOf(w.EndDate).After(clock.DateOf(best.EndDate)) {
			best = &windows[i]
		}
	}
	return best, nil
}

// DaysUntilExpiry returns the number of calendar days from now until the
// window's last valid day.  0 means the window expires today; negative
// values mean it already expired.
func (e *Evaluator) DaysUntilExpiry(w model.MembershipWindow) int {
	return clock.DaysBetween(e.clk.Now(), w.EndDate)
}

// Severity grades how urgently an expiry warning should be surfaced.
type Severity string

const (
	SeverityExpired Severity = "expired"
	SeverityUrgent  Severity = "urgent"
	SeverityInfo    Severity = "info"
)

// Warning describes an upcoming or past membership expiry.
type Warning struct {
	Severity Severity
	Days     int
	Message  string
}

// ExpiryWarning grades the window's remaining lifetime.  Returns false
// when the expiry is more than thirty days out and nothing needs saying.
func (e *Evaluator) ExpiryWarning(w model.MembershipWindow) (*Warning, bool) {
	days := e.DaysUntilExpiry(w)
	switch {
	case days <= 0:
		return &Warning{Severity: SeverityExpired, Days: days, Message: "membership has expired"}, true
	case days == 1:
		return &Warning{Severity: SeverityUrgent, Days: days, Message: "membership expires tomorrow"}, true
	case days <= 7:
		return &Warning{Severity: SeverityUrgent, Days: days, Message: fmt.Sprintf("membership expires in %d days", days)}, true
	case days <= 30:
		return &Warning{Severity: SeverityInfo, Days: days, Message: fmt.Sprintf("membership expires in %d days", days)}, true
	default:
		return nil, false
	}
}

package membership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

type fakeWindows []model.MembershipWindow

func (f fakeWindows) WindowsByUser(ctx context.Context, userID uint64) ([]model.MembershipWindow, error) {
	return f, nil
}

func at(date string) clock.Clock {
	return clock.Fixed(clock.MustDate(date).Add(15 * time.Hour))
}

func window(start, end string) model.MembershipWindow {
	return model.MembershipWindow{
		ID:        1,
		UserID:    7,
		Status:    model.MembershipStatusActive,
		StartDate: clock.MustDate(start),
		EndDate:   clock.MustDate(end),
	}
}

func TestIsActiveInclusiveBoundaries(t *testing.T) {
	w := window("2026-01-01", "2026-01-31")
	cases := []struct {
		today  string
		active bool
	}{
		{"2025-12-31", false}, // day before the window opens
		{"2026-01-01", true},  // first day, inclusive
		{"2026-01-15", true},
		{"2026-01-31", true},  // last day, inclusive
		{"2026-02-01", false}, // day after expiry
	}
	for _, tc := range cases {
		ev := NewEvaluator(fakeWindows{w}, at(tc.today))
		active, err := ev.IsActive(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, tc.active, active, "on %s", tc.today)
	}
}

func TestIsActiveIgnoresStaleStatusFlag(t *testing.T) {
	// Stored status wins only negatively: a window flagged anything but
	// active never grants access, even inside its date range.
	w := window("2026-01-01", "2026-12-31")
	w.Status = model.MembershipStatusSuspended
	ev := NewEvaluator(fakeWindows{w}, at("2026-06-01"))
	active, err := ev.IsActive(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestIsActiveIgnoresSoftDeletedWindows(t *testing.T) {
	w := window("2026-01-01", "2026-12-31")
	deleted := time.Now()
	w.DeletedAt = &deleted
	ev := NewEvaluator(fakeWindows{w}, at("2026-06-01"))
	active, err := ev.IsActive(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestActiveWindowPrefersLatestExpiry(t *testing.T) {
	short := window("2026-01-01", "2026-06-30")
	long := window("2026-03-01", "2026-12-31")
	long.ID = 2
	ev := NewEvaluator(fakeWindows{short, long}, at("2026-04-01"))

	w, err := ev.ActiveWindow(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, uint64(2), w.ID)
}

func TestDaysUntilExpiry(t *testing.T) {
	w := window("2026-01-01", "2026-01-31")

	ev := NewEvaluator(nil, at("2026-01-31"))
	assert.Equal(t, 0, ev.DaysUntilExpiry(w))

	ev = NewEvaluator(nil, at("2026-01-30"))
	assert.Equal(t, 1, ev.DaysUntilExpiry(w))

	ev = NewEvaluator(nil, at("2026-02-02"))
	assert.Equal(t, -2, ev.DaysUntilExpiry(w))
}

func TestExpiryWarningSeverities(t *testing.T) {
	w := window("2026-01-01", "2026-01-31")
	cases := []struct {
		today    string
		severity Severity
		want     bool
	}{
		{"2026-02-01", SeverityExpired, true},
		{"2026-01-31", SeverityExpired, true}, // expires today
		{"2026-01-30", SeverityUrgent, true},  // tomorrow
		{"2026-01-25", SeverityUrgent, true},
		{"2026-01-24", SeverityUrgent, true}, // exactly 7 days
		{"2026-01-23", SeverityInfo, true},   // 8 days
		{"2026-01-01", SeverityInfo, true},   // 30 days
		{"2025-12-31", "", false},            // 31 days out, nothing to say
	}
	for _, tc := range cases {
		ev := NewEvaluator(nil, at(tc.today))
		warning, ok := ev.ExpiryWarning(w)
		assert.Equal(t, tc.want, ok, "on %s", tc.today)
		if tc.want {
			require.NotNil(t, warning, "on %s", tc.today)
			assert.Equal(t, tc.severity, warning.Severity, "on %s", tc.today)
		}
	}
}

func TestExpiresTomorrowMessage(t *testing.T) {
	w := window("2026-01-01", "2026-01-31")
	ev := NewEvaluator(nil, at("2026-01-30"))
	warning, ok := ev.ExpiryWarning(w)
	require.True(t, ok)
	assert.Equal(t, "membership expires tomorrow", warning.Message)
}

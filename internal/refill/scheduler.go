// Package refill implements the weekly credit refill cycle.  Refills are
// level-restoring, not additive: each due subscription is topped up to
// its weekly target, and a per-(user, week) marker makes the whole cycle
// safe to run any number of times inside one week.
package refill

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// Store is the storage contract of the scheduler.
type Store interface {
	ActiveSubscriptions(ctx context.Context) ([]model.RefillSubscription, error)
	SubscriptionByUser(ctx context.Context, userID uint64) (*model.RefillSubscription, error)
	History(ctx context.Context, userID uint64, limit int) ([]model.RefillRun, error)
	// InTx runs fn atomically; a nil return commits.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is one atomic refill of a single user.
type Tx interface {
	// RunExists reports whether the user was already refilled in the
	// week starting at weekStart.
	RunExists(ctx context.Context, userID uint64, weekStart time.Time) (bool, error)
	// TopUp raises the user's ledger to target and returns the amount
	// credited, zero when the balance already meets the target.
	TopUp(ctx context.Context, userID uint64, category string, target uint32) (uint32, error)
	// RecordRun writes the per-(user, week) marker.  A concurrent cycle
	// that committed first surfaces as repository.ErrDuplicateRefill.
	RecordRun(ctx context.Context, userID uint64, weekStart time.Time, credited uint32) error
}

// Report summarizes one refill cycle.
type Report struct {
	Processed int      // subscriptions due this week
	Refilled  int      // users actually credited in this run
	Credited  uint32   // total credits granted
	Skipped   int      // already refilled this week
	Errors    []string // per-user failures, cycle continues past them
}

// Status is the per-user refill outlook exposed over HTTP.
type Status struct {
	Subscription *model.RefillSubscription `json:"subscription"`
	DueThisWeek  bool                      `json:"due_this_week"`
	RefilledAt   *time.Time                `json:"refilled_at,omitempty"`
	NextRefill   time.Time                 `json:"next_refill"`
	History      []model.RefillRun         `json:"history"`
}

// Scheduler drives the weekly refill cycle.  Registered with cron in the
// server entrypoint and also runnable on demand by admins.
type Scheduler struct {
	store Store
	clk   clock.Clock
}

func NewScheduler(store Store, clk clock.Clock) *Scheduler {
	return &Scheduler{store: store, clk: clk}
}

// dueThisWeek reports whether a subscription anchored at activation has a
// refill falling inside the week starting at weekStart.  Cycles repeat
// every 7 days from the activation date, so a refill lands in every week
// from the activation week onward.
func dueThisWeek(activation, weekStart time.Time) bool {
	weekEnd := clock.WeekEnd(weekStart)
	return !clock.DateOf(activation).After(clock.DateOf(weekEnd))
}

// RunCycle refills every due subscription exactly once for the week
// containing now.  Individual failures are collected and the cycle moves
// on; a failing user is retried naturally by the next cron firing.
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time) (*Report, error) {
	weekStart := clock.WeekStart(now)
	subs, err := s.store.ActiveSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	report := &Report{}
	for _, sub := range subs {
		if !dueThisWeek(sub.ActivationDate, weekStart) {
			continue
		}
		report.Processed++
		credited, err := s.refillOne(ctx, sub, weekStart)
		switch {
		case errors.Is(err, errAlreadyRefilled):
			report.Skipped++
		case err != nil:
			log.Printf("refill failed for user %d: %v", sub.UserID, err)
			report.Errors = append(report.Errors, err.Error())
		default:
			report.Refilled++
			report.Credited += credited
		}
	}
	return report, nil
}

var errAlreadyRefilled = errors.New("already refilled this week")

func (s *Scheduler) refillOne(ctx context.Context, sub model.RefillSubscription, weekStart time.Time) (uint32, error) {
	var credited uint32
	err := s.store.InTx(ctx, func(tx Tx) error {
		done, err := tx.RunExists(ctx, sub.UserID, weekStart)
		if err != nil {
			return err
		}
		if done {
			return errAlreadyRefilled
		}
		credited, err = tx.TopUp(ctx, sub.UserID, sub.Category, sub.WeeklyTarget)
		if err != nil {
			return err
		}
		return tx.RecordRun(ctx, sub.UserID, weekStart, credited)
	})
	// The unique marker key backstops the RunExists check when two
	// cycles race; losing that race is the same as being refilled.
	if errors.Is(err, repository.ErrDuplicateRefill) {
		return 0, errAlreadyRefilled
	}
	if err != nil {
		return 0, err
	}
	return credited, nil
}

// NextRefill reports the user's refill outlook: whether a refill is due
// in the current week, when it last happened, and when the next one
// lands.
func (s *Scheduler) NextRefill(ctx context.Context, userID uint64, now time.Time) (*Status, error) {
	sub, err := s.store.SubscriptionByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	weekStart := clock.WeekStart(now)
	history, err := s.store.History(ctx, userID, 10)
	if err != nil {
		return nil, err
	}
	status := &Status{
		Subscription: sub,
		DueThisWeek:  dueThisWeek(sub.ActivationDate, weekStart),
		History:      history,
	}
	for i := range history {
		if history[i].WeekStart.Equal(weekStart) {
			t := history[i].CreatedAt
			status.RefilledAt = &t
			break
		}
	}
	activationWeek := clock.WeekStart(sub.ActivationDate)
	switch {
	case activationWeek.After(weekStart):
		// Subscription has not started yet; the first refill lands in
		// its activation week.
		status.NextRefill = activationWeek
	case status.DueThisWeek && status.RefilledAt == nil:
		status.NextRefill = weekStart
	default:
		status.NextRefill = weekStart.AddDate(0, 0, 7)
	}
	return status, nil
}

package model

import "time"

// RefillSubscription marks a user whose ledger is topped up on a weekly
// cadence.  The cadence is anchored at ActivationDate: a refill is due in
// every week that lies an integer number of 7-day cycles after it.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – subscribed member.
//  Category       – ledger category that receives the top-up.
//  ActivationDate – cadence anchor, date only.
//  WeeklyTarget   – balance level the weekly top-up restores, never exceeded.
//  Active         – whether the subscription still refills.
type RefillSubscription struct {
	ID             uint64    // refill_subscriptions.id
	UserID         uint64    // refill_subscriptions.user_id
	Category       string    // refill_subscriptions.category
	ActivationDate time.Time // refill_subscriptions.activation_date (date only)
	WeeklyTarget   uint32    // refill_subscriptions.weekly_target
	Active         bool      // refill_subscriptions.active
}

// RefillRun is the per-(user, week) completion marker that makes the
// weekly refill idempotent: a second run inside the same week finds the
// marker and credits nothing.
type RefillRun struct {
	ID        uint64    // refill_runs.id
	UserID    uint64    // refill_runs.user_id
	WeekStart time.Time // refill_runs.week_start (Monday, date only)
	Credited  uint32    // refill_runs.credited
	CreatedAt time.Time // refill_runs.created_at
}

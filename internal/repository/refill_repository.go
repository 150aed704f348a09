package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// RefillRepo provides data access to the refill_subscriptions and
// refill_runs tables.  A refill_runs row is the per-(user, week)
// completion marker that makes the weekly cycle idempotent; its
// (user_id, week_start) unique key is the backstop against two concurrent
// cron runs crediting the same user twice.
type RefillRepo struct {
	db *sql.DB
}

// NewRefillRepo returns a new RefillRepo bound to the given database.
func NewRefillRepo(db *sql.DB) *RefillRepo { return &RefillRepo{db: db} }

// ActiveSubscriptions returns every subscription still receiving weekly
// top-ups, ordered by user for deterministic cycle output.
func (r *RefillRepo) ActiveSubscriptions(ctx context.Context) ([]model.RefillSubscription, error) {
	const q = `SELECT id, user_id, category, activation_date, weekly_target, active
	           FROM refill_subscriptions
	           WHERE active = 1
	           ORDER BY user_id, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	subs := make([]model.RefillSubscription, 0)
	for rows.Next() {
		var s model.RefillSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Category, &s.ActivationDate, &s.WeeklyTarget, &s.Active); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// SubscriptionByUser returns the user's active subscription or
// sql.ErrNoRows wrapped as ErrNoActiveEntry when none exists.
func (r *RefillRepo) SubscriptionByUser(ctx context.Context, userID uint64) (*model.RefillSubscription, error) {
	const q = `SELECT id, user_id, category, activation_date, weekly_target, active
	           FROM refill_subscriptions
	           WHERE user_id = ? AND active = 1
	           ORDER BY id DESC
	           LIMIT 1`
	var s model.RefillSubscription
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&s.ID, &s.UserID, &s.Category, &s.ActivationDate, &s.WeeklyTarget, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveEntry
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RunExistsTx reports whether the (user, week) completion marker is
// already present, within the provided transaction.
func (r *RefillRepo) RunExistsTx(ctx context.Context, tx *sql.Tx, userID uint64, weekStart time.Time) (bool, error) {
	const q = `SELECT 1 FROM refill_runs WHERE user_id = ? AND week_start = ?`
	var one int
	err := tx.QueryRowContext(ctx, q, userID, weekStart.Format("2006-01-02")).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertRunTx records the (user, week) completion marker within the
// provided transaction.  A duplicate-key collision means another run beat
// this one to the same week and is returned as ErrDuplicateRefill so the
// caller can roll back its credit.
func (r *RefillRepo) InsertRunTx(ctx context.Context, tx *sql.Tx, userID uint64, weekStart time.Time, credited uint32) error {
	const q = `INSERT INTO refill_runs (user_id, week_start, credited) VALUES (?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, userID, weekStart.Format("2006-01-02"), credited)
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicateRefill
	}
	return err
}

// HistoryByUser returns the user's past refill runs, newest first,
// limited to the given count.
func (r *RefillRepo) HistoryByUser(ctx context.Context, userID uint64, limit int) ([]model.RefillRun, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, user_id, week_start, credited, created_at
	           FROM refill_runs
	           WHERE user_id = ?
	           ORDER BY week_start DESC, id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := make([]model.RefillRun, 0)
	for rows.Next() {
		var run model.RefillRun
		if err := rows.Scan(&run.ID, &run.UserID, &run.WeekStart, &run.Credited, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

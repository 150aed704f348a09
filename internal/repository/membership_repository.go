package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// MembershipRepo provides read-only access to the membership_windows
// table, which is owned by the external enrollment subsystem.  Soft
// deleted windows are filtered in SQL so no caller can accidentally base
// an eligibility decision on one.
type MembershipRepo struct {
	db *sql.DB
}

// NewMembershipRepo returns a new MembershipRepo bound to the given database.
func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

// WindowsByUser returns all non-deleted membership windows for the user,
// newest start date first.  The stored status is returned as-is; deciding
// whether a window actually grants access today is the evaluator's job,
// never the repository's.
func (r *MembershipRepo) WindowsByUser(ctx context.Context, userID uint64) ([]model.MembershipWindow, error) {
	const q = `SELECT id, user_id, package_id, status, start_date, end_date, deleted_at
	           FROM membership_windows
	           WHERE user_id = ? AND deleted_at IS NULL
	           ORDER BY start_date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	windows := make([]model.MembershipWindow, 0)
	for rows.Next() {
		var w model.MembershipWindow
		var deleted sql.NullTime
		if err := rows.Scan(&w.ID, &w.UserID, &w.PackageID, &w.Status, &w.StartDate, &w.EndDate, &deleted); err != nil {
			return nil, err
		}
		if deleted.Valid {
			t := deleted.Time
			w.DeletedAt = &t
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// SessionRepo provides read access to the session_records table: the
// directly-assigned occupancy rows written by the external scheduling
// tool (recording path A).  This core never writes them; it only needs
// their distinct user IDs when reconciling occupancy for a slot key.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// UserIDsByKeyTx returns the distinct user IDs of active session records
// matching the slot key, within the provided transaction.
func (r *SessionRepo) UserIDsByKeyTx(ctx context.Context, tx *sql.Tx, key model.SlotKey) ([]uint64, error) {
	return sessionUserIDsByKey(ctx, tx, key)
}

// UserIDsByKey is UserIDsByKeyTx outside a transaction, used by read-only
// occupancy queries.
func (r *SessionRepo) UserIDsByKey(ctx context.Context, key model.SlotKey) ([]uint64, error) {
	return sessionUserIDsByKey(ctx, r.db, key)
}

func sessionUserIDsByKey(ctx context.Context, q querier, key model.SlotKey) ([]uint64, error) {
	const sel = `SELECT DISTINCT user_id
	             FROM session_records
	             WHERE active = 1
	               AND slot_date = ? AND start_time = ? AND end_time = ?
	               AND room = ? AND trainer = ? AND group_size = ?`
	rows, err := q.QueryContext(ctx, sel,
		key.Date.Format("2006-01-02"), key.StartTime, key.EndTime, key.Room, key.Trainer, key.GroupSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByKey returns the full session records matching the slot key with
// their variant resolved, for schedule displays that show who was placed
// directly into a session.
func (r *SessionRepo) ListByKey(ctx context.Context, key model.SlotKey) ([]model.SessionRecord, error) {
	const sel = `SELECT id, user_id, slot_date, start_time, end_time, room, trainer, group_size, variant, active, created_at
	             FROM session_records
	             WHERE active = 1
	               AND slot_date = ? AND start_time = ? AND end_time = ?
	               AND room = ? AND trainer = ? AND group_size = ?
	             ORDER BY id`
	rows, err := r.db.QueryContext(ctx, sel,
		key.Date.Format("2006-01-02"), key.StartTime, key.EndTime, key.Room, key.Trainer, key.GroupSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]model.SessionRecord, 0)
	for rows.Next() {
		var rec model.SessionRecord
		var variant string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.StartTime, &rec.EndTime,
			&rec.Room, &rec.Trainer, &rec.GroupSize, &variant, &rec.Active, &rec.CreatedAt); err != nil {
			return nil, err
		}
		// The variant is resolved exactly once, here at scan time.
		rec.Variant = model.SessionVariant(variant)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

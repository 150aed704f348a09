package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// SlotRepo provides data access to the slots table.  Slots are owned by
// the reservation core; the booking flow locks the slot row FOR UPDATE so
// that concurrent bookings of the same slot serialize on it.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, slot_date, start_time, end_time, room, trainer, capacity, kind, credit_category, active, created_at, updated_at`

func scanSlot(row interface {
	Scan(dest ...interface{}) error
}) (*model.Slot, error) {
	var s model.Slot
	var kind string
	if err := row.Scan(&s.ID, &s.Date, &s.StartTime, &s.EndTime, &s.Room, &s.Trainer,
		&s.Capacity, &kind, &s.CreditCategory, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Kind = model.SlotKind(kind)
	return &s, nil
}

// GetByID returns a single slot or ErrSlotNotFound.
func (r *SlotRepo) GetByID(ctx context.Context, slotID uint64) (*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
	s, err := scanSlot(r.db.QueryRowContext(ctx, q, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	return s, err
}

// GetForUpdateTx loads a slot under a FOR UPDATE lock within the provided
// transaction.  Every booking attempt for a slot takes this lock before
// recounting occupancy, which is what serializes competing bookers and
// keeps confirmed bookings within capacity.
func (r *SlotRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ? FOR UPDATE`
	s, err := scanSlot(tx.QueryRowContext(ctx, q, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	return s, err
}

// ListByDate returns all slots on the given calendar day ordered by start
// time, for schedule displays.  Inactive slots are included so existing
// bookings against them stay visible.
func (r *SlotRepo) ListByDate(ctx context.Context, date string) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE slot_date = ? ORDER BY start_time, id`
	rows, err := r.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

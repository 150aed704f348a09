package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// BookingRepo provides data access to the bookings table.  Bookings are
// never deleted: cancellation flips status to 'cancelled' and clears the
// row's active flag.  The (user_id, slot_id, active) unique key, with
// active being 1 for confirmed rows and NULL for cancelled ones, lets
// MySQL enforce "at most one confirmed booking per (user, slot)" while
// keeping the full cancellation history.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, slot_id, status, ledger_entry_id, debit_amount, created_at, updated_at`

func scanBooking(row interface {
	Scan(dest ...interface{}) error
}) (*model.Booking, error) {
	var b model.Booking
	var entryID sql.NullInt64
	if err := row.Scan(&b.ID, &b.UserID, &b.SlotID, &b.Status, &entryID, &b.DebitAmount, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if entryID.Valid {
		id := uint64(entryID.Int64)
		b.LedgerEntryID = &id
	}
	return &b, nil
}

// GetByID returns a single booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetForUpdateTx loads a booking under a FOR UPDATE lock so that a
// cancellation cannot race another transition of the same row.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ConfirmedByUserAndSlot returns the confirmed booking for the
// (user, slot) idempotency key, or ErrBookingNotFound.
func (r *BookingRepo) ConfirmedByUserAndSlot(ctx context.Context, userID, slotID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + `
	           FROM bookings
	           WHERE user_id = ? AND slot_id = ? AND status = 'confirmed'`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, userID, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ConfirmedByUserAndSlotTx is ConfirmedByUserAndSlot within a transaction.
func (r *BookingRepo) ConfirmedByUserAndSlotTx(ctx context.Context, tx *sql.Tx, userID, slotID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + `
	           FROM bookings
	           WHERE user_id = ? AND slot_id = ? AND status = 'confirmed'`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, userID, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// InsertConfirmedTx inserts a new confirmed booking within the provided
// transaction, populating the generated ID and timestamps on the record.
// A collision on the (user_id, slot_id, active) unique key is returned as
// ErrDuplicateBooking so the caller can treat the retried request as an
// idempotent success instead of a failure.
func (r *BookingRepo) InsertConfirmedTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, slot_id, status, active, ledger_entry_id, debit_amount)
	           VALUES (?, ?, 'confirmed', 1, ?, ?)`
	var entryID interface{}
	if b.LedgerEntryID != nil {
		entryID = *b.LedgerEntryID
	}
	result, err := tx.ExecContext(ctx, q, b.UserID, b.SlotID, entryID, b.DebitAmount)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateBooking
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingStatusConfirmed
	// Query back the row to populate timestamps defaulted by the database
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// CancelTx transitions a booking to 'cancelled' within the provided
// transaction and releases its slot in the unique key by nulling the
// active flag.  The caller must already hold the row lock via
// GetForUpdateTx.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	const q = `UPDATE bookings
	           SET status = 'cancelled', active = NULL, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, bookingID)
	return err
}

// ConfirmedUserIDsByKeyTx returns the distinct user IDs holding confirmed
// bookings against the physical slot identified by key, within the
// provided transaction.  This is recording path B of the occupancy
// reconciliation.
func (r *BookingRepo) ConfirmedUserIDsByKeyTx(ctx context.Context, tx *sql.Tx, key model.SlotKey) ([]uint64, error) {
	return confirmedUserIDsByKey(ctx, tx, key)
}

// ConfirmedUserIDsByKey is ConfirmedUserIDsByKeyTx outside a transaction,
// used by read-only occupancy queries.
func (r *BookingRepo) ConfirmedUserIDsByKey(ctx context.Context, key model.SlotKey) ([]uint64, error) {
	return confirmedUserIDsByKey(ctx, r.db, key)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func confirmedUserIDsByKey(ctx context.Context, q querier, key model.SlotKey) ([]uint64, error) {
	const sel = `SELECT DISTINCT b.user_id
	             FROM bookings b
	             JOIN slots s ON s.id = b.slot_id
	             WHERE b.status = 'confirmed'
	               AND s.slot_date = ? AND s.start_time = ? AND s.end_time = ?
	               AND s.room = ? AND s.trainer = ? AND s.capacity = ?`
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

// ListByUser returns all bookings created by the given user, newest
// first.  When no bookings exist, an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + `
	           FROM bookings
	           WHERE user_id = ?
	           ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

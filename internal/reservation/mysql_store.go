package reservation

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// MySQLStore implements Store over the repository layer.  One instance is
// shared by every concurrent booking request; the per-request isolation
// comes from the transactions it opens, not from the struct.
type MySQLStore struct {
	db       *sql.DB
	slots    *repository.SlotRepo
	bookings *repository.BookingRepo
	ledger   *repository.LedgerRepo
	sessions *repository.SessionRepo
	clk      clock.Clock
}

// NewMySQLStore builds the production Store from an open database handle.
func NewMySQLStore(db *sql.DB, clk clock.Clock) *MySQLStore {
	return &MySQLStore{
		db:       db,
		slots:    repository.NewSlotRepo(db),
		bookings: repository.NewBookingRepo(db),
		ledger:   repository.NewLedgerRepo(db),
		sessions: repository.NewSessionRepo(db),
		clk:      clk,
	}
}

func (s *MySQLStore) Slot(ctx context.Context, slotID uint64) (*model.Slot, error) {
	return s.slots.GetByID(ctx, slotID)
}

func (s *MySQLStore) ConfirmedBooking(ctx context.Context, userID, slotID uint64) (*model.Booking, error) {
	return s.bookings.ConfirmedByUserAndSlot(ctx, userID, slotID)
}

func (s *MySQLStore) Booking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *MySQLStore) ActiveEntry(ctx context.Context, userID uint64, category string) (*model.LedgerEntry, error) {
	return s.ledger.ActiveEntry(ctx, userID, category)
}

// InTx opens a transaction, runs fn and commits on success.  Deadlocks and
// lock wait timeouts, whether raised by fn's statements or by the commit,
// come back as ErrConcurrencyConflict so the engine can apply its single
// retry without inspecting driver error codes.
func (s *MySQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()
	wrapped := &mysqlTx{store: s, tx: sqlTx}
	if err := fn(wrapped); err != nil {
		if repository.IsSerialization(err) {
			return ErrConcurrencyConflict
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		if repository.IsSerialization(err) {
			return ErrConcurrencyConflict
		}
		return err
	}
	committed = true
	return nil
}

// mysqlTx adapts one *sql.Tx to the engine's Tx contract.
type mysqlTx struct {
	store *MySQLStore
	tx    *sql.Tx
}

func (t *mysqlTx) SlotForUpdate(ctx context.Context, slotID uint64) (*model.Slot, error) {
	return t.store.slots.GetForUpdateTx(ctx, t.tx, slotID)
}

func (t *mysqlTx) SlotByID(ctx context.Context, slotID uint64) (*model.Slot, error) {
	// Reads through the transaction for a consistent view; no lock needed.
	const q = `SELECT id, slot_date, start_time, end_time, room, trainer, capacity, kind, credit_category, active, created_at, updated_at
	           FROM slots WHERE id = ?`
	var s model.Slot
	var kind string
	err := t.tx.QueryRowContext(ctx, q, slotID).Scan(&s.ID, &s.Date, &s.StartTime, &s.EndTime,
		&s.Room, &s.Trainer, &s.Capacity, &kind, &s.CreditCategory, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Kind = model.SlotKind(kind)
	return &s, nil
}

func (t *mysqlTx) ConfirmedBooking(ctx context.Context, userID, slotID uint64) (*model.Booking, error) {
	return t.store.bookings.ConfirmedByUserAndSlotTx(ctx, t.tx, userID, slotID)
}

func (t *mysqlTx) BookingForUpdate(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return t.store.bookings.GetForUpdateTx(ctx, t.tx, bookingID)
}

func (t *mysqlTx) OccupantIDs(ctx context.Context, key model.SlotKey) ([]uint64, []uint64, error) {
	direct, err := t.store.sessions.UserIDsByKeyTx(ctx, t.tx, key)
	if err != nil {
		return nil, nil, err
	}
	booked, err := t.store.bookings.ConfirmedUserIDsByKeyTx(ctx, t.tx, key)
	if err != nil {
		return nil, nil, err
	}
	return direct, booked, nil
}

func (t *mysqlTx) ActiveEntryForUpdate(ctx context.Context, userID uint64, category string) (*model.LedgerEntry, error) {
	return t.store.ledger.ActiveEntryForUpdateTx(ctx, t.tx, userID, category)
}

func (t *mysqlTx) Debit(ctx context.Context, entryID uint64, amount uint32) (uint32, error) {
	return t.store.ledger.DebitTx(ctx, t.tx, entryID, amount)
}

func (t *mysqlTx) Credit(ctx context.Context, entryID uint64, amount uint32) (uint32, error) {
	return t.store.ledger.CreditTx(ctx, t.tx, entryID, amount, t.store.clk.Now())
}

func (t *mysqlTx) InsertConfirmed(ctx context.Context, b *model.Booking) error {
	return t.store.bookings.InsertConfirmedTx(ctx, t.tx, b)
}

func (t *mysqlTx) CancelBooking(ctx context.Context, bookingID uint64) error {
	return t.store.bookings.CancelTx(ctx, t.tx, bookingID)
}

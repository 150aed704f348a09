package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

var bookingCols = []string{"id", "user_id", "slot_id", "status", "ledger_entry_id", "debit_amount", "created_at", "updated_at"}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM bookings").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err = NewBookingRepo(db).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDScansNullableLedgerEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("FROM bookings").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(1, 7, 3, "confirmed", nil, 0, now, now))

	b, err := NewBookingRepo(db).GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, b.LedgerEntryID, "membership-gated bookings carry no debit")
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertConfirmedTxPopulatesRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(7, 3, 10, 1).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at, updated_at FROM bookings WHERE id = ?")).
		WithArgs(55).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	entryID := uint64(10)
	b := &model.Booking{UserID: 7, SlotID: 3, LedgerEntryID: &entryID, DebitAmount: 1}
	require.NoError(t, NewBookingRepo(db).InsertConfirmedTx(context.Background(), tx, b))
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(55), b.ID)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertConfirmedTxDuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(7, 3, nil, 0).
		WillReturnError(&mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry"})
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	b := &model.Booking{UserID: 7, SlotID: 3}
	err = NewBookingRepo(db).InsertConfirmedTx(context.Background(), tx, b)
	assert.ErrorIs(t, err, ErrDuplicateBooking)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTxNullsActiveFlag(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'cancelled', active = NULL")).
		WithArgs(55).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, NewBookingRepo(db).CancelTx(context.Background(), tx, 55))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmedUserIDsByKeyMatchesFullKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := model.SlotKey{
		Date:      time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		StartTime: "10:00:00",
		EndTime:   "11:00:00",
		Room:      "studio-a",
		Trainer:   "maria",
		GroupSize: 6,
	}
	mock.ExpectQuery("SELECT DISTINCT b.user_id").
		WithArgs("2026-03-12", "10:00:00", "11:00:00", "studio-a", "maria", 6).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7).AddRow(9))

	ids, err := NewBookingRepo(db).ConfirmedUserIDsByKey(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 9}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsSerializationClassification(t *testing.T) {
	assert.True(t, IsSerialization(&mysql.MySQLError{Number: mysqlErrDeadlock}))
	assert.True(t, IsSerialization(&mysql.MySQLError{Number: mysqlErrLockWaitTimeout}))
	assert.False(t, IsSerialization(&mysql.MySQLError{Number: mysqlErrDuplicateEntry}))
	assert.False(t, IsSerialization(nil))
}

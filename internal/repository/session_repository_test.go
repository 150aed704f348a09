package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

var sessionCols = []string{"id", "user_id", "slot_date", "start_time", "end_time", "room", "trainer", "group_size", "variant", "active", "created_at"}

func sessionKey() model.SlotKey {
	return model.SlotKey{
		Date:      time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		StartTime: "10:00:00",
		EndTime:   "11:00:00",
		Room:      "studio-a",
		Trainer:   "maria",
		GroupSize: 6,
	}
}

func TestListByKeyResolvesVariants(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := sessionKey()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM session_records").
		WithArgs("2026-03-12", "10:00:00", "11:00:00", "studio-a", "maria", 6).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow(1, 7, key.Date, "10:00:00", "11:00:00", "studio-a", "maria", 6, "group_scheduled", true, created).
			AddRow(2, 9, key.Date, "10:00:00", "11:00:00", "studio-a", "maria", 6, "group_on_demand", true, created))

	records, err := NewSessionRepo(db).ListByKey(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.SessionGroupScheduled, records[0].Variant)
	assert.Equal(t, model.SessionGroupOnDemand, records[1].Variant)
	// A scanned record maps back to the key it was queried with.
	assert.Equal(t, key, records[0].Key())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByKeyEmptySlot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM session_records").
		WillReturnRows(sqlmock.NewRows(sessionCols))

	records, err := NewSessionRepo(db).ListByKey(context.Background(), sessionKey())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserIDsByKeyReturnsDistinctIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT user_id").
		WithArgs("2026-03-12", "10:00:00", "11:00:00", "studio-a", "maria", 6).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7).AddRow(9))

	ids, err := NewSessionRepo(db).UserIDsByKey(context.Background(), sessionKey())
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 9}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

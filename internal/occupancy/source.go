package occupancy

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// dbSource reads both occupancy paths from MySQL outside any
// transaction.  It serves the read endpoints; the booking path has its
// own in-transaction reads.
type dbSource struct {
	sessions *repository.SessionRepo
	bookings *repository.BookingRepo
}

// NewDBSource builds the production Source over the database handle.
func NewDBSource(db *sql.DB) Source {
	return &dbSource{
		sessions: repository.NewSessionRepo(db),
		bookings: repository.NewBookingRepo(db),
	}
}

func (s *dbSource) DirectOccupants(ctx context.Context, key model.SlotKey) ([]uint64, error) {
	return s.sessions.UserIDsByKey(ctx, key)
}

func (s *dbSource) BookedOccupants(ctx context.Context, key model.SlotKey) ([]uint64, error) {
	return s.bookings.ConfirmedUserIDsByKey(ctx, key)
}

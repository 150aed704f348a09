package refill

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// MySQLStore implements Store over the repository layer.
type MySQLStore struct {
	db      *sql.DB
	refills *repository.RefillRepo
	ledger  *repository.LedgerRepo
	clk     clock.Clock
}

func NewMySQLStore(db *sql.DB, clk clock.Clock) *MySQLStore {
	return &MySQLStore{
		db:      db,
		refills: repository.NewRefillRepo(db),
		ledger:  repository.NewLedgerRepo(db),
		clk:     clk,
	}
}

func (s *MySQLStore) ActiveSubscriptions(ctx context.Context) ([]model.RefillSubscription, error) {
	return s.refills.ActiveSubscriptions(ctx)
}

func (s *MySQLStore) SubscriptionByUser(ctx context.Context, userID uint64) (*model.RefillSubscription, error) {
	return s.refills.SubscriptionByUser(ctx, userID)
}

func (s *MySQLStore) History(ctx context.Context, userID uint64, limit int) ([]model.RefillRun, error) {
	return s.refills.HistoryByUser(ctx, userID, limit)
}

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
	if err := fn(&mysqlTx{store: s, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type mysqlTx struct {
	store *MySQLStore
	tx    *sql.Tx
}

func (t *mysqlTx) RunExists(ctx context.Context, userID uint64, weekStart time.Time) (bool, error) {
	return t.store.refills.RunExistsTx(ctx, t.tx, userID, weekStart)
}

func (t *mysqlTx) TopUp(ctx context.Context, userID uint64, category string, target uint32) (uint32, error) {
	return t.store.ledger.TopUpTx(ctx, t.tx, userID, category, target, t.store.clk.Now())
}

func (t *mysqlTx) RecordRun(ctx context.Context, userID uint64, weekStart time.Time, credited uint32) error {
	return t.store.refills.InsertRunTx(ctx, t.tx, userID, weekStart, credited)
}

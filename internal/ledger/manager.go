// Package ledger exposes the credit ledger operations the rest of the
// service is allowed to perform.  Balances change only through the
// manager; nothing else writes ledger_entries.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// Manager coordinates ledger reads and mutations.  It binds the
// repository to the reference Clock so expiry comparisons always use the
// same notion of now.
type Manager struct {
	repo *repository.LedgerRepo
	clk  clock.Clock
}

// NewManager returns a Manager over the given database handle.
func NewManager(db *sql.DB, clk clock.Clock) *Manager {
	return &Manager{repo: repository.NewLedgerRepo(db), clk: clk}
}

// ActiveBalance returns the single entry a booking decision may consult
// for (user, category): the most recently issued active entry with a
// positive balance.  repository.ErrNoActiveEntry when there is none.
func (m *Manager) ActiveBalance(ctx context.Context, userID uint64, category string) (*model.LedgerEntry, error) {
	return m.repo.ActiveEntry(ctx, userID, category)
}

// Debit lowers an entry's balance by amount inside the caller's
// transaction, deactivating it when it reaches zero.
func (m *Manager) Debit(ctx context.Context, tx *sql.Tx, entryID uint64, amount uint32) (uint32, error) {
	return m.repo.DebitTx(ctx, tx, entryID, amount)
}

// Credit raises an entry's balance by amount inside the caller's
// transaction, reactivating a zero-deactivated entry unless it has
// expired.
func (m *Manager) Credit(ctx context.Context, tx *sql.Tx, entryID uint64, amount uint32) (uint32, error) {
	return m.repo.CreditTx(ctx, tx, entryID, amount, m.clk.Now())
}

// ExpireStale deactivates every entry whose expiry has passed and
// returns how many rows changed.  Idempotent; scheduled nightly and also
// callable on demand by admins.
func (m *Manager) ExpireStale(ctx context.Context) (int64, error) {
	return m.repo.ExpireStale(ctx, m.clk.Now())
}

// CategoryBalance is one line of a user's balance summary.
type CategoryBalance struct {
	Category  string     `json:"category"`
	Balance   uint32     `json:"balance"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// BalanceSummary reports, per category, the balance the user could spend
// right now.  Only the entry a booking would actually consult counts;
// older inactive entries in the same category are not added in.
func (m *Manager) BalanceSummary(ctx context.Context, userID uint64) ([]CategoryBalance, error) {
	entries, err := m.repo.EntriesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := make([]CategoryBalance, 0)
	seen := map[string]bool{}
	for _, e := range entries {
		// Entries are ordered newest first, so the first row per
		// category is the consultable one.
		if seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		summary = append(summary, CategoryBalance{
			Category:  e.Category,
			Balance:   e.Balance,
			Active:    e.Active && e.Balance > 0,
			ExpiresAt: e.ExpiresAt,
		})
	}
	return summary, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// LedgerRepo provides data access to the ledger_entries table.  Balances
// are only ever changed through DebitTx and CreditTx, which read the row
// under a FOR UPDATE lock first so that concurrent mutations of the same
// entry serialize.  No method assigns a balance directly from caller
// input.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo returns a new LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

const ledgerColumns = `id, user_id, category, balance, active, expires_at, created_at, updated_at`

// scanLedgerEntry scans one ledger row from any row scanner.
func scanLedgerEntry(row interface {
	Scan(dest ...interface{}) error
}) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var expires sql.NullTime
	if err := row.Scan(&e.ID, &e.UserID, &e.Category, &e.Balance, &e.Active, &expires, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		e.ExpiresAt = &t
	}
	return &e, nil
}

// ActiveEntry returns the most recently issued active entry with a
// positive balance for the given user and category.  When none exists it
// returns ErrNoActiveEntry.  This is the only entry a booking decision may
// consult.
func (r *LedgerRepo) ActiveEntry(ctx context.Context, userID uint64, category string) (*model.LedgerEntry, error) {
	const q = `SELECT ` + ledgerColumns + `
	           FROM ledger_entries
	           WHERE user_id = ? AND category = ? AND active = 1 AND balance > 0
	           ORDER BY created_at DESC, id DESC
	           LIMIT 1`
	e, err := scanLedgerEntry(r.db.QueryRowContext(ctx, q, userID, category))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveEntry
	}
	return e, err
}

// ActiveEntryForUpdateTx is ActiveEntry executed inside a transaction with
// a FOR UPDATE lock, so the returned entry cannot be debited concurrently
// until the transaction ends.
func (r *LedgerRepo) ActiveEntryForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64, category string) (*model.LedgerEntry, error) {
	const q = `SELECT ` + ledgerColumns + `
	           FROM ledger_entries
	           WHERE user_id = ? AND category = ? AND active = 1 AND balance > 0
	           ORDER BY created_at DESC, id DESC
	           LIMIT 1
	           FOR UPDATE`
	e, err := scanLedgerEntry(tx.QueryRowContext(ctx, q, userID, category))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveEntry
	}
	return e, err
}

// entryForUpdateTx locks and returns a single entry by ID.
func (r *LedgerRepo) entryForUpdateTx(ctx context.Context, tx *sql.Tx, entryID uint64) (*model.LedgerEntry, error) {
	const q = `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = ? FOR UPDATE`
	e, err := scanLedgerEntry(tx.QueryRowContext(ctx, q, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveEntry
	}
	return e, err
}

// DebitTx atomically decrements an entry's balance by amount within the
// provided transaction.  The row is locked first; if the remaining balance
// would go negative the entry is left untouched and ErrInsufficientBalance
// is returned.  When the debit drives the balance to exactly zero the
// entry is deactivated in the same statement, so no window exists in which
// a zero-balance entry is still consultable.
func (r *LedgerRepo) DebitTx(ctx context.Context, tx *sql.Tx, entryID uint64, amount uint32) (uint32, error) {
	e, err := r.entryForUpdateTx(ctx, tx, entryID)
	if err != nil {
		return 0, err
	}
	if e.Balance < amount {
		return 0, ErrInsufficientBalance
	}
	newBalance := e.Balance - amount
	active := e.Active
	if newBalance == 0 {
		active = false
	}
	const upd = `UPDATE ledger_entries SET balance = ?, active = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, newBalance, active, entryID); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// CreditTx atomically increments an entry's balance by amount within the
// provided transaction.  An entry that was deactivated solely because its
// balance reached zero is reactivated; an entry past its expiry stays
// inactive no matter how much is credited.
func (r *LedgerRepo) CreditTx(ctx context.Context, tx *sql.Tx, entryID uint64, amount uint32, now time.Time) (uint32, error) {
	e, err := r.entryForUpdateTx(ctx, tx, entryID)
	if err != nil {
		return 0, err
	}
	newBalance := e.Balance + amount
	active := e.Active
	if !active && (e.ExpiresAt == nil || e.ExpiresAt.After(now)) {
		active = true
	}
	const upd = `UPDATE ledger_entries SET balance = ?, active = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, newBalance, active, entryID); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// TopUpTx raises the active entry for (user, category) to target within
// the provided transaction and returns how much was credited.  An entry
// already at or above target is left untouched and 0 is returned.  When
// the user has no usable entry at all a fresh one is inserted holding the
// full target.  Used by the weekly refill cycle, which restores balances
// to a level instead of crediting additively.
func (r *LedgerRepo) TopUpTx(ctx context.Context, tx *sql.Tx, userID uint64, category string, target uint32, now time.Time) (uint32, error) {
	const sel = `SELECT ` + ledgerColumns + `
	             FROM ledger_entries
	             WHERE user_id = ? AND category = ? AND active = 1
	             ORDER BY created_at DESC, id DESC
	             LIMIT 1
	             FOR UPDATE`
	e, err := scanLedgerEntry(tx.QueryRowContext(ctx, sel, userID, category))
	if errors.Is(err, sql.ErrNoRows) {
		const ins = `INSERT INTO ledger_entries (user_id, category, balance, active) VALUES (?, ?, ?, 1)`
		if _, err := tx.ExecContext(ctx, ins, userID, category, target); err != nil {
			return 0, err
		}
		return target, nil
	}
	if err != nil {
		return 0, err
	}
	if e.Balance >= target {
		return 0, nil
	}
	credited := target - e.Balance
	if _, err := r.CreditTx(ctx, tx, e.ID, credited, now); err != nil {
		return 0, err
	}
	return credited, nil
}

// ExpireStale deactivates every active entry whose expiry has passed.  It
// is a single idempotent UPDATE: re-running it finds nothing left to
// deactivate and reports zero rows.
func (r *LedgerRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE ledger_entries
	           SET active = 0, updated_at = UTC_TIMESTAMP()
	           WHERE active = 1 AND expires_at IS NOT NULL AND expires_at < ?`
	res, err := r.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EntriesByUser returns all of a user's ledger entries ordered newest
// first, for balance summaries.  An empty slice is returned when the user
// has none.
func (r *LedgerRepo) EntriesByUser(ctx context.Context, userID uint64) ([]model.LedgerEntry, error) {
	const q = `SELECT ` + ledgerColumns + `
	           FROM ledger_entries
	           WHERE user_id = ?
	           ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

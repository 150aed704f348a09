package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// memStore is an in-memory Store with the same transactional semantics
// as the MySQL implementation: transactions run one at a time and roll
// back completely on error.  Running them serially is exactly what the
// FOR UPDATE slot lock produces in production, so the concurrency tests
// below exercise the real interleavings the engine must survive.
type memStore struct {
	mu          sync.Mutex
	slots       map[uint64]*model.Slot
	bookings    map[uint64]*model.Booking
	entries     map[uint64]*model.LedgerEntry
	sessions    map[uint64][]uint64 // slot ID -> direct-path occupant user IDs
	nextBooking uint64
}

func newMemStore() *memStore {
	return &memStore{
		slots:    map[uint64]*model.Slot{},
		bookings: map[uint64]*model.Booking{},
		entries:  map[uint64]*model.LedgerEntry{},
		sessions: map[uint64][]uint64{},
	}
}

func (m *memStore) addSlot(s model.Slot) {
	m.slots[s.ID] = &s
}

func (m *memStore) addEntry(e model.LedgerEntry) {
	m.entries[e.ID] = &e
}

func (m *memStore) Slot(ctx context.Context, slotID uint64) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotLocked(slotID)
}

func (m *memStore) slotLocked(slotID uint64) (*model.Slot, error) {
	s, ok := m.slots[slotID]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ConfirmedBooking(ctx context.Context, userID, slotID uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmedLocked(userID, slotID)
}

func (m *memStore) confirmedLocked(userID, slotID uint64) (*model.Booking, error) {
	for _, b := range m.bookings {
		if b.UserID == userID && b.SlotID == slotID && b.Status == model.BookingStatusConfirmed {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (m *memStore) Booking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ActiveEntry(ctx context.Context, userID uint64, category string) (*model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeEntryLocked(userID, category)
}

func (m *memStore) activeEntryLocked(userID uint64, category string) (*model.LedgerEntry, error) {
	for _, e := range m.entries {
		if e.UserID == userID && e.Category == category && e.Active && e.Balance > 0 {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNoActiveEntry
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{
		store:    m,
		bookings: map[uint64]*model.Booking{},
		entries:  map[uint64]*model.LedgerEntry{},
	}
	for id, b := range m.bookings {
		cp := *b
		tx.bookings[id] = &cp
	}
	for id, e := range m.entries {
		cp := *e
		tx.entries[id] = &cp
	}
	tx.nextBooking = m.nextBooking
	if err := fn(tx); err != nil {
		return err
	}
	m.bookings = tx.bookings
	m.entries = tx.entries
	m.nextBooking = tx.nextBooking
	return nil
}

// memTx mutates cloned maps; InTx publishes them only when fn succeeds.
type memTx struct {
	store       *memStore
	bookings    map[uint64]*model.Booking
	entries     map[uint64]*model.LedgerEntry
	nextBooking uint64
}

func (t *memTx) SlotForUpdate(ctx context.Context, slotID uint64) (*model.Slot, error) {
	return t.store.slotLocked(slotID)
}

func (t *memTx) SlotByID(ctx context.Context, slotID uint64) (*model.Slot, error) {
	return t.store.slotLocked(slotID)
}

func (t *memTx) ConfirmedBooking(ctx context.Context, userID, slotID uint64) (*model.Booking, error) {
	for _, b := range t.bookings {
		if b.UserID == userID && b.SlotID == slotID && b.Status == model.BookingStatusConfirmed {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (t *memTx) BookingForUpdate(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	b, ok := t.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (t *memTx) OccupantIDs(ctx context.Context, key model.SlotKey) (direct, booked []uint64, err error) {
	for id, s := range t.store.slots {
		if s.Key() != key {
			continue
		}
		direct = append(direct, t.store.sessions[id]...)
		for _, b := range t.bookings {
			if b.SlotID == id && b.Status == model.BookingStatusConfirmed {
				booked = append(booked, b.UserID)
			}
		}
	}
	return direct, booked, nil
}

func (t *memTx) ActiveEntryForUpdate(ctx context.Context, userID uint64, category string) (*model.LedgerEntry, error) {
	for _, e := range t.entries {
		if e.UserID == userID && e.Category == category && e.Active && e.Balance > 0 {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNoActiveEntry
}

func (t *memTx) Debit(ctx context.Context, entryID uint64, amount uint32) (uint32, error) {
	e, ok := t.entries[entryID]
	if !ok || e.Balance < amount {
		return 0, repository.ErrInsufficientBalance
	}
	e.Balance -= amount
	if e.Balance == 0 {
		e.Active = false
	}
	return e.Balance, nil
}

func (t *memTx) Credit(ctx context.Context, entryID uint64, amount uint32) (uint32, error) {
	e, ok := t.entries[entryID]
	if !ok {
		return 0, repository.ErrNoActiveEntry
	}
	e.Balance += amount
	e.Active = true
	return e.Balance, nil
}

func (t *memTx) InsertConfirmed(ctx context.Context, b *model.Booking) error {
	for _, existing := range t.bookings {
		if existing.UserID == b.UserID && existing.SlotID == b.SlotID && existing.Status == model.BookingStatusConfirmed {
			return repository.ErrDuplicateBooking
		}
	}
	t.nextBooking++
	b.ID = t.nextBooking
	cp := *b
	t.bookings[b.ID] = &cp
	return nil
}

func (t *memTx) CancelBooking(ctx context.Context, bookingID uint64) error {
	b, ok := t.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.Status = model.BookingStatusCancelled
	return nil
}

type membershipFunc func(ctx context.Context, userID uint64) (bool, error)

func (f membershipFunc) IsActive(ctx context.Context, userID uint64) (bool, error) {
	return f(ctx, userID)
}

var allowAll = membershipFunc(func(context.Context, uint64) (bool, error) { return true, nil })

func testClock() clock.Clock {
	return clock.Fixed(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
}

func ledgerSlot(id uint64, capacity uint32) model.Slot {
	return model.Slot{
		ID:             id,
		Date:           time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		StartTime:      "10:00:00",
		EndTime:        "11:00:00",
		Room:           "studio-a",
		Trainer:        "maria",
		Capacity:       capacity,
		Kind:           model.SlotKindLedger,
		CreditCategory: "pilates",
		Active:         true,
	}
}

func membershipSlot(id uint64, capacity uint32) model.Slot {
	s := ledgerSlot(id, capacity)
	s.Kind = model.SlotKindMembership
	s.CreditCategory = ""
	return s
}

func TestBookDebitsOneCredit(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 5))
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 4, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	res, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Booking)
	assert.Equal(t, model.BookingStatusConfirmed, res.Booking.Status)
	require.NotNil(t, res.Booking.LedgerEntryID)
	assert.Equal(t, uint64(10), *res.Booking.LedgerEntryID)
	assert.Equal(t, uint32(1), res.Booking.DebitAmount)
	require.NotNil(t, res.RemainingBalance)
	assert.Equal(t, uint32(3), *res.RemainingBalance)
	assert.False(t, res.Replayed)
	assert.Equal(t, uint32(3), store.entries[10].Balance)
}

func TestBookIdempotentReplay(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 5))
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 4, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	first, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)
	second, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Nil(t, second.RemainingBalance)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	// The replay must not spend a second credit.
	assert.Equal(t, uint32(3), store.entries[10].Balance)
}

func TestBookCapacityInvariantUnderContention(t *testing.T) {
	const capacity = 3
	const contenders = 10
	store := newMemStore()
	store.addSlot(ledgerSlot(1, capacity))
	for u := uint64(1); u <= contenders; u++ {
		store.addEntry(model.LedgerEntry{ID: 100 + u, UserID: u, Category: "pilates", Balance: 2, Active: true})
	}
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for u := uint64(1); u <= contenders; u++ {
		wg.Add(1)
		go func(u uint64) {
			defer wg.Done()
			_, errs[u-1] = eng.Book(context.Background(), u, 1)
		}(u)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	}
	assert.Equal(t, capacity, succeeded)

	confirmed := 0
	for _, b := range store.bookings {
		if b.Status == model.BookingStatusConfirmed {
			confirmed++
		}
	}
	assert.Equal(t, capacity, confirmed)

	// Losers keep their credits; only the winners paid.
	spent := uint32(0)
	for _, e := range store.entries {
		spent += 2 - e.Balance
	}
	assert.Equal(t, uint32(capacity), spent)
}

func TestBookCountsDirectOccupantsAgainstCapacity(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 2))
	store.sessions[1] = []uint64{50} // user 50 placed by the scheduling tool
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 1, Active: true})
	store.addEntry(model.LedgerEntry{ID: 11, UserID: 8, Category: "pilates", Balance: 1, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	_, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)

	// Two distinct occupants now (50 direct, 7 booked); a third is over capacity.
	_, err = eng.Book(context.Background(), 8, 1)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, uint32(1), store.entries[11].Balance)
}

func TestBookAllowsOccupantAlreadyPresentDirectly(t *testing.T) {
	// A user the scheduling tool already placed in the slot adds no
	// distinct occupant, so they may book even when the slot is full.
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 1))
	store.sessions[1] = []uint64{7}
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 1, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	res, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, res.Booking.Status)
}

func TestBookInsufficientBalance(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 5))
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	_, err := eng.Book(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 0, Active: false})
	_, err = eng.Book(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestBookMembershipSlotRequiresActiveMembership(t *testing.T) {
	store := newMemStore()
	store.addSlot(membershipSlot(1, 5))
	deny := membershipFunc(func(context.Context, uint64) (bool, error) { return false, nil })
	eng := NewEngine(store, deny, testClock(), nil, nil)

	_, err := eng.Book(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestBookMembershipSlotDebitsNothing(t *testing.T) {
	store := newMemStore()
	store.addSlot(membershipSlot(1, 5))
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 4, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	res, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Nil(t, res.Booking.LedgerEntryID)
	assert.Zero(t, res.Booking.DebitAmount)
	assert.Nil(t, res.RemainingBalance)
	assert.Equal(t, uint32(4), store.entries[10].Balance)
}

func TestBookUnknownOrInactiveSlot(t *testing.T) {
	store := newMemStore()
	inactive := ledgerSlot(2, 5)
	inactive.Active = false
	store.addSlot(inactive)
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	_, err := eng.Book(context.Background(), 7, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = eng.Book(context.Background(), 7, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelRestoresOriginalDebit(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 5))
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 1, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	res, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)
	// The debit took the entry to zero and deactivated it.
	assert.Equal(t, uint32(0), store.entries[10].Balance)
	assert.False(t, store.entries[10].Active)

	cancelled, err := eng.Cancel(context.Background(), res.Booking.ID, 7, false)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, uint32(1), store.entries[10].Balance)
	assert.True(t, store.entries[10].Active)
}

func TestCancelIdempotent(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 5))
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 3, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	res, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)

	first, err := eng.Cancel(context.Background(), res.Booking.ID, 7, false)
	require.NoError(t, err)
	second, err := eng.Cancel(context.Background(), res.Booking.ID, 7, false)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.BookingStatusCancelled, second.Status)
	// Exactly one credit came back.
	assert.Equal(t, uint32(3), store.entries[10].Balance)
}

func TestCancelOwnership(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 5))
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 3, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	res, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)

	_, err = eng.Cancel(context.Background(), res.Booking.ID, 8, false)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := eng.Cancel(context.Background(), res.Booking.ID, 8, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
}

func TestCancelUnknownBooking(t *testing.T) {
	store := newMemStore()
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	_, err := eng.Cancel(context.Background(), 42, 7, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelFreesPlaceForNextBooker(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 1))
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 1, Active: true})
	store.addEntry(model.LedgerEntry{ID: 11, UserID: 8, Category: "pilates", Balance: 1, Active: true})
	eng := NewEngine(store, allowAll, testClock(), nil, nil)

	res, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)
	_, err = eng.Book(context.Background(), 8, 1)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = eng.Cancel(context.Background(), res.Booking.ID, 7, false)
	require.NoError(t, err)

	_, err = eng.Book(context.Background(), 8, 1)
	assert.NoError(t, err)
}

type capturingNotifier struct {
	confirmed []*model.Slot
	cancelled []*model.Slot
}

func (n *capturingNotifier) BookingConfirmed(b *model.Booking, s *model.Slot) error {
	n.confirmed = append(n.confirmed, s)
	return nil
}

func (n *capturingNotifier) BookingCancelled(b *model.Booking, s *model.Slot) error {
	n.cancelled = append(n.cancelled, s)
	return nil
}

func TestLifecycleEventsCarrySlotSnapshot(t *testing.T) {
	store := newMemStore()
	store.addSlot(ledgerSlot(1, 5))
	store.addEntry(model.LedgerEntry{ID: 10, UserID: 7, Category: "pilates", Balance: 2, Active: true})
	notifier := &capturingNotifier{}
	eng := NewEngine(store, allowAll, testClock(), notifier, nil)

	res, err := eng.Book(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Len(t, notifier.confirmed, 1)
	require.NotNil(t, notifier.confirmed[0])
	assert.Equal(t, uint64(1), notifier.confirmed[0].ID)

	_, err = eng.Cancel(context.Background(), res.Booking.ID, 7, false)
	require.NoError(t, err)
	require.Len(t, notifier.cancelled, 1)
	require.NotNil(t, notifier.cancelled[0])
	assert.Equal(t, uint64(1), notifier.cancelled[0].ID)
	assert.Equal(t, "studio-a", notifier.cancelled[0].Room)

	// The idempotent second cancel changed nothing, so no second event.
	_, err = eng.Cancel(context.Background(), res.Booking.ID, 7, false)
	require.NoError(t, err)
	assert.Len(t, notifier.cancelled, 1)
}

func TestErrorKindMatching(t *testing.T) {
	err := insufficientBalance("credit balance exhausted")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NotErrorIs(t, err, ErrCapacityExceeded)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindInsufficientBalance, typed.Kind)
}

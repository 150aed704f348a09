package reservation

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// MembershipChecker answers whether a user holds an active membership
// window on a given calendar day.  internal/membership provides the
// production implementation.
type MembershipChecker interface {
	IsActive(ctx context.Context, userID uint64) (bool, error)
}

// Notifier receives booking lifecycle events after the transaction has
// committed.  Implementations must not influence the booking outcome;
// errors are logged and dropped.
type Notifier interface {
	BookingConfirmed(b *model.Booking, s *model.Slot) error
	BookingCancelled(b *model.Booking, s *model.Slot) error
}

// CacheInvalidator drops the cached occupancy count for a physical slot.
// internal/occupancy provides the redis-backed implementation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, key model.SlotKey) error
}

// BookingResult is the outcome of a successful (or idempotently replayed)
// booking request.
type BookingResult struct {
	Booking *model.Booking
	// RemainingBalance is the ledger balance after the debit.  Nil for
	// membership-gated slots and for idempotent replays, where no debit
	// happened in this request.
	RemainingBalance *uint32
	// Replayed is true when the request matched an existing confirmed
	// booking and nothing was charged.
	Replayed bool
}

// Engine is the capacity-constrained reservation state machine.  All
// booking and cancellation writes flow through it; it is safe for
// concurrent use.
type Engine struct {
	store      Store
	membership MembershipChecker
	clk        clock.Clock
	notifier   Notifier
	cache      CacheInvalidator
}

// NewEngine wires the engine.  notifier and cache may be nil, in which
// case the corresponding post-commit step is skipped.
func NewEngine(store Store, membership MembershipChecker, clk clock.Clock, notifier Notifier, cache CacheInvalidator) *Engine {
	return &Engine{store: store, membership: membership, clk: clk, notifier: notifier, cache: cache}
}

// Book reserves one place on a slot for the user.  The call is
// idempotent: repeating it for the same (user, slot) returns the existing
// confirmed booking without a second debit.  A transaction that loses a
// concurrency race is retried exactly once; a second loss is reported as
// ErrCapacityExceeded because under contention that is what it means.
func (e *Engine) Book(ctx context.Context, userID, slotID uint64) (*BookingResult, error) {
	res, slot, err := e.tryBook(ctx, userID, slotID)
	if errors.Is(err, ErrConcurrencyConflict) {
		res, slot, err = e.tryBook(ctx, userID, slotID)
		if errors.Is(err, ErrConcurrencyConflict) {
			return nil, ErrCapacityExceeded
		}
	}
	if err != nil {
		return nil, err
	}
	if !res.Replayed {
		e.afterConfirm(ctx, res.Booking, slot)
	}
	return res, nil
}

func (e *Engine) tryBook(ctx context.Context, userID, slotID uint64) (*BookingResult, *model.Slot, error) {
	slot, err := e.store.Slot(ctx, slotID)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return nil, nil, notFound("slot does not exist")
	}
	if err != nil {
		return nil, nil, err
	}
	if !slot.Active {
		return nil, nil, notFound("slot is no longer open for booking")
	}

	// Cheap idempotency pre-check outside the critical section.
	if existing, err := e.store.ConfirmedBooking(ctx, userID, slotID); err == nil {
		return &BookingResult{Booking: existing, Replayed: true}, slot, nil
	} else if !errors.Is(err, repository.ErrBookingNotFound) {
		return nil, nil, err
	}

	// Eligibility pre-checks happen before the critical section so a
	// caller with no chance of booking never takes the slot lock.  Both
	// are re-validated inside the transaction by the debit itself.
	switch slot.Kind {
	case model.SlotKindMembership:
		active, err := e.membership.IsActive(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		if !active {
			return nil, nil, ErrNotEligible
		}
	case model.SlotKindLedger:
		if _, err := e.store.ActiveEntry(ctx, userID, slot.CreditCategory); err != nil {
			if errors.Is(err, repository.ErrNoActiveEntry) {
				return nil, nil, insufficientBalance("no active credit package")
			}
			return nil, nil, err
		}
	}

	res := &BookingResult{}
	err = e.store.InTx(ctx, func(tx Tx) error {
		locked, err := tx.SlotForUpdate(ctx, slotID)
		if errors.Is(err, repository.ErrSlotNotFound) {
			return notFound("slot does not exist")
		}
		if err != nil {
			return err
		}
		if !locked.Active {
			return notFound("slot is no longer open for booking")
		}

		// Recheck under the lock: a retry of this transaction may run
		// after an identical request committed.
		if existing, err := tx.ConfirmedBooking(ctx, userID, slotID); err == nil {
			res.Booking = existing
			res.Replayed = true
			return nil
		} else if !errors.Is(err, repository.ErrBookingNotFound) {
			return err
		}

		direct, booked, err := tx.OccupantIDs(ctx, locked.Key())
		if err != nil {
			return err
		}
		occupants := distinctOccupants(direct, booked)
		if _, present := occupants[userID]; !present && uint32(len(occupants)) >= locked.Capacity {
			return ErrCapacityExceeded
		}

		b := &model.Booking{UserID: userID, SlotID: slotID, Status: model.BookingStatusConfirmed}
		if locked.Kind == model.SlotKindLedger {
			entry, err := tx.ActiveEntryForUpdate(ctx, userID, locked.CreditCategory)
			if errors.Is(err, repository.ErrNoActiveEntry) {
				return insufficientBalance("no active credit package")
			}
			if err != nil {
				return err
			}
			remaining, err := tx.Debit(ctx, entry.ID, 1)
			if errors.Is(err, repository.ErrInsufficientBalance) {
				return insufficientBalance("credit balance exhausted")
			}
			if err != nil {
				return err
			}
			entryID := entry.ID
			b.LedgerEntryID = &entryID
			b.DebitAmount = 1
			res.RemainingBalance = &remaining
		}

		if err := tx.InsertConfirmed(ctx, b); err != nil {
			if errors.Is(err, repository.ErrDuplicateBooking) {
				// Rolling back discards the debit made above.
				return errDuplicateRace
			}
			return err
		}
		res.Booking = b
		return nil
	})
	if errors.Is(err, errDuplicateRace) {
		existing, ferr := e.store.ConfirmedBooking(ctx, userID, slotID)
		if ferr == nil {
			return &BookingResult{Booking: existing, Replayed: true}, slot, nil
		}
		// The competing booking vanished between its commit and our read,
		// so the user must have cancelled it; run the attempt again.
		return nil, nil, ErrConcurrencyConflict
	}
	if err != nil {
		return nil, nil, err
	}
	if res.Replayed {
		res.RemainingBalance = nil
	}
	return res, slot, nil
}

// Cancel transitions a confirmed booking to cancelled and credits back
// the exact ledger entry debited when it was made.  Owners may cancel
// their own bookings; admin callers may cancel anyone's.  Cancelling an
// already-cancelled booking is an idempotent no-op.
func (e *Engine) Cancel(ctx context.Context, bookingID, userID uint64, admin bool) (*model.Booking, error) {
	// Cheap existence check before taking any row lock; the booking is
	// re-read under lock inside the transaction.
	if _, err := e.store.Booking(ctx, bookingID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, notFound("booking does not exist")
		}
		return nil, err
	}
	b, slot, changed, err := e.tryCancel(ctx, bookingID, userID, admin)
	if errors.Is(err, ErrConcurrencyConflict) {
		b, slot, changed, err = e.tryCancel(ctx, bookingID, userID, admin)
		if errors.Is(err, ErrConcurrencyConflict) {
			return nil, invalidState("booking is being modified, retry")
		}
	}
	if err != nil {
		return nil, err
	}
	if changed {
		e.afterCancel(ctx, b, slot)
	}
	return b, nil
}

func (e *Engine) tryCancel(ctx context.Context, bookingID, userID uint64, admin bool) (*model.Booking, *model.Slot, bool, error) {
	var booking *model.Booking
	var slot *model.Slot
	changed := false
	err := e.store.InTx(ctx, func(tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if errors.Is(err, repository.ErrBookingNotFound) {
			return notFound("booking does not exist")
		}
		if err != nil {
			return err
		}
		if !admin && b.UserID != userID {
			return ErrForbidden
		}
		switch b.Status {
		case model.BookingStatusCancelled:
			booking = b
			return nil
		case model.BookingStatusConfirmed:
			// fallthrough to the cancellation below
		default:
			return invalidState("booking cannot be cancelled from state " + b.Status)
		}
		// Resolved inside the transaction so the post-commit cache
		// invalidation and event carry a consistent snapshot.
		s, err := tx.SlotByID(ctx, b.SlotID)
		if err != nil {
			return err
		}
		if err := tx.CancelBooking(ctx, b.ID); err != nil {
			return err
		}
		if b.LedgerEntryID != nil && b.DebitAmount > 0 {
			if _, err := tx.Credit(ctx, *b.LedgerEntryID, b.DebitAmount); err != nil {
				return err
			}
		}
		b.Status = model.BookingStatusCancelled
		booking = b
		slot = s
		changed = true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return booking, slot, changed, nil
}

// afterConfirm runs the fire-and-forget post-commit steps for a fresh
// booking.  Failures never affect the already committed booking.
func (e *Engine) afterConfirm(ctx context.Context, b *model.Booking, s *model.Slot) {
	if e.cache != nil && s != nil {
		if err := e.cache.Invalidate(ctx, s.Key()); err != nil {
			log.Printf("occupancy cache invalidate failed for slot %d: %v", s.ID, err)
		}
	}
	if e.notifier != nil {
		if err := e.notifier.BookingConfirmed(b, s); err != nil {
			log.Printf("booking confirmed event publish failed for booking %d: %v", b.ID, err)
		}
	}
}

func (e *Engine) afterCancel(ctx context.Context, b *model.Booking, slot *model.Slot) {
	if e.cache != nil && slot != nil {
		if err := e.cache.Invalidate(ctx, slot.Key()); err != nil {
			log.Printf("occupancy cache invalidate failed for slot %d: %v", slot.ID, err)
		}
	}
	if e.notifier != nil {
		if err := e.notifier.BookingCancelled(b, slot); err != nil {
			log.Printf("booking cancelled event publish failed for booking %d: %v", b.ID, err)
		}
	}
}

// distinctOccupants merges the two occupancy recording paths into one
// set of distinct user IDs.  A user present through either path counts
// once, which is the capacity rule: capacity bounds distinct people in
// the room, not rows in tables.
func distinctOccupants(direct, booked []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(direct)+len(booked))
	for _, id := range direct {
		set[id] = struct{}{}
	}
	for _, id := range booked {
		set[id] = struct{}{}
	}
	return set
}

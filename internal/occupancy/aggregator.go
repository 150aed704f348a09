// Package occupancy reconciles the two independent paths that record who
// is in a physical slot: direct session assignments written by the
// external scheduling tool, and confirmed bookings written by the
// reservation engine.  The same person can appear through both paths;
// occupancy is always the distinct union, never the sum.
package occupancy

import (
	"context"

	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// Source yields the raw occupant IDs for a physical slot from each
// recording path.  The returned slices may overlap.
type Source interface {
	DirectOccupants(ctx context.Context, key model.SlotKey) ([]uint64, error)
	BookedOccupants(ctx context.Context, key model.SlotKey) ([]uint64, error)
}

// Aggregator computes distinct occupancy counts, optionally serving read
// endpoints through an invalidatable cache.  Booking-time capacity
// checks never go through the Aggregator; they re-read inside the
// booking transaction.
type Aggregator struct {
	source Source
	cache  *Cache
}

// NewAggregator builds an Aggregator.  cache may be nil to disable
// caching entirely.
func NewAggregator(source Source, cache *Cache) *Aggregator {
	return &Aggregator{source: source, cache: cache}
}

// CountOccupants returns the number of distinct users occupying the slot
// identified by key, merging both recording paths.
func (a *Aggregator) CountOccupants(ctx context.Context, key model.SlotKey) (int, error) {
	if n, ok := a.cache.Get(ctx, key); ok {
		return n, nil
	}
	direct, err := a.source.DirectOccupants(ctx, key)
	if err != nil {
		return 0, err
	}
	booked, err := a.source.BookedOccupants(ctx, key)
	if err != nil {
		return 0, err
	}
	n := Distinct(direct, booked)
	a.cache.Set(ctx, key, n)
	return n, nil
}

// HasCapacity reports whether the slot can take one more distinct
// occupant.  A capacity of 1 is an individual session: the first
// occupant fills it.
func (a *Aggregator) HasCapacity(ctx context.Context, key model.SlotKey, capacity uint32) (bool, error) {
	n, err := a.CountOccupants(ctx, key)
	if err != nil {
		return false, err
	}
	return uint32(n) < capacity, nil
}

// Invalidate drops the cached count for a slot.  Writers call it after
// every committed booking or cancellation.
func (a *Aggregator) Invalidate(ctx context.Context, key model.SlotKey) error {
	return a.cache.Invalidate(ctx, key)
}

// Distinct counts the users present through either path, each counted
// once.
func Distinct(direct, booked []uint64) int {
	seen := make(map[uint64]struct{}, len(direct)+len(booked))
	for _, id := range direct {
		seen[id] = struct{}{}
	}
	for _, id := range booked {
		seen[id] = struct{}{}
	}
	return len(seen)
}

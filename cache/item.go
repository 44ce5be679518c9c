// Package cache implements a generic, thread-safe, fetch-on-miss object
// cache: CacheItem freshness lifecycle, Fetcher in-flight retrieval
// tracking, Cache per-class storage with eviction, and CacheSuite routing
// across classes. Grounded on the teacher's generic core/pool.Pool[T]
// (type-parameterized resource management) and on the cleanup-threshold
// bookkeeping in plugins/semanticcache/main.go.
package cache

import (
	"sync"
	"time"

	"github.com/maximhq/xmppstream/interfaces"
)

// State is an item's freshness lifecycle stage.
type State int

const (
	StateNew State = iota
	StateFresh
	StateOld
	StateStale
	StatePurged
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateFresh:
		return "Fresh"
	case StateOld:
		return "Old"
	case StateStale:
		return "Stale"
	case StatePurged:
		return "Purged"
	default:
		return "Unknown"
	}
}

// Rank maps a State to its acceptance-comparison rank: New=0, Fresh=1,
// Old=2, Stale=3, Purged=3 — the tie between Stale and Purged is
// intentional (§3): a caller willing to accept "stale" is also willing to
// accept an item the Cache is about to purge.
func (s State) Rank() int {
	switch s {
	case StateNew:
		return 0
	case StateFresh:
		return 1
	case StateOld:
		return 2
	default: // StateStale, StatePurged
		return 3
	}
}

// farFuture stands in for the "+∞" purge deadline used when a Cache's
// purge_period is configured as zero (never auto-purge).
var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// Item is a single cached value together with its freshness lifecycle.
// Its state is mutated only under its own lock, by UpdateState or by
// RaiseState (which Cache.invalidateObject calls after releasing the
// Cache lock), so the two never run at once (§5).
type Item[A comparable, V any] struct {
	mu sync.Mutex

	Address A
	Value   V

	Timestamp     time.Time
	FreshnessTime time.Time
	ExpireTime    time.Time
	PurgeTime     time.Time

	state State
	// seq is a monotonically assigned insertion counter standing in for
	// the spec's object-identity sort tiebreaker (§9 "Re-architecture
	// strategies": comparisons by id(self) become stable insertion
	// counters).
	seq uint64
}

// NewItem constructs a CacheItem with the given periods measured from
// now (UTC). A zero purgePeriod means "never auto-purge" (PurgeTime =
// +∞). Returns a ValidationError, per §9, rather than a raw error value,
// if freshnessTime ≤ expireTime ≤ purgeTime does not hold.
func NewItem[A comparable, V any](address A, value V, freshnessPeriod, expirationPeriod, purgePeriod time.Duration, seq uint64) (*Item[A, V], error) {
	now := time.Now().UTC()
	freshness := now.Add(freshnessPeriod)
	expire := now.Add(expirationPeriod)
	var purge time.Time
	if purgePeriod == 0 {
		purge = farFuture
	} else {
		purge = now.Add(purgePeriod)
	}

	if freshness.After(expire) {
		return nil, &interfaces.ValidationError{Reason: "freshness_time must not be after expire_time"}
	}
	if expire.After(purge) {
		return nil, &interfaces.ValidationError{Reason: "expire_time must not be after purge_time"}
	}

	return &Item[A, V]{
		Address:       address,
		Value:         value,
		Timestamp:     now,
		FreshnessTime: freshness,
		ExpireTime:    expire,
		PurgeTime:     purge,
		state:         StateNew,
		seq:           seq,
	}, nil
}

// State returns the item's current lifecycle stage without advancing it.
func (it *Item[A, V]) State() State {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state
}

// StateValue returns the rank of the item's current lifecycle stage.
func (it *Item[A, V]) StateValue() int {
	return it.State().Rank()
}

// UpdateState advances the item through New→Fresh→Old→Stale→Purged one
// step at a time, cascading through as many steps as the current time
// justifies within this single call. Holds the item's own lock for the
// duration.
func (it *Item[A, V]) UpdateState() State {
	it.mu.Lock()
	defer it.mu.Unlock()

	now := time.Now().UTC()
	for {
		switch it.state {
		case StateNew:
			// An item is never New once stored (Cache.add_item runs
			// update_state before insertion); the first call always
			// promotes it at least to Fresh.
			it.state = StateFresh
		case StateFresh:
			if !now.Before(it.FreshnessTime) {
				it.state = StateOld
				continue
			}
			return it.state
		case StateOld:
			if !now.Before(it.ExpireTime) {
				it.state = StateStale
				continue
			}
			return it.state
		case StateStale:
			if !now.Before(it.PurgeTime) {
				it.state = StatePurged
				continue
			}
			return it.state
		case StatePurged:
			return it.state
		}
	}
}

// RaiseState forces the item's state to at least the given state,
// never rolling it backwards. Used by Cache.invalidate_object.
func (it *Item[A, V]) RaiseState(state State) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if state.Rank() > it.state.Rank() {
		it.state = state
	}
}

// less implements the sort key from §4.1: (-state_value, timestamp,
// stable-identity). The head of a slice sorted by less is the best
// eviction candidate: the most-stale, oldest entry.
func less[A comparable, V any](a, b *Item[A, V]) bool {
	ar, br := a.State().Rank(), b.State().Rank()
	if ar != br {
		return ar > br // higher rank (more stale) sorts first
	}
	at, bt := a.Timestamp, b.Timestamp
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return a.seq < b.seq
}


package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/maximhq/xmppstream/interfaces"
)

// Rank maps a requested State to its acceptance rank, per §4.3's
// get_item tolerance check: {new:0, fresh:1, old:2, stale:3, purged:3}.
func Rank(s State) int { return s.Rank() }

// FetcherStats holds read-only per-Cache counters, supplementing the
// bare purged_counter spec.md names, in the teacher's habit of a
// PoolStats-shaped stats struct (core/pool/pool.go's Stats()).
type FetcherStats struct {
	Hits           uint64
	Misses         uint64
	Timeouts       uint64
	BackupsServed  uint64
	FetchesStarted uint64
}

// timeoutEntry pairs a Fetcher with the deadline Cache.Tick sweeps on,
// kept separately from the Fetcher so active_fetchers can be resorted
// without touching fetcher internals.
type timeoutEntry[A comparable, V any] struct {
	deadline time.Time
	fetcher  Fetcher[A, V]
}

// Cache is a per-class store of Items: bounded, evicting, fetcher
// tracking, timeout sweeping (§3/§4.3). Grounded on the teacher's
// generic core/pool.Pool[T] for its type-parameterized, mutex-guarded
// slice-plus-map storage shape.
type Cache[A comparable, V any] struct {
	mu sync.Mutex

	items     map[A]*Item[A, V]
	itemsList []*Item[A, V]

	activeFetchers []timeoutEntry[A, V]

	maxItems int

	defaultFreshnessPeriod  time.Duration
	defaultExpirationPeriod time.Duration
	defaultPurgePeriod      time.Duration

	fetcherFactory FetcherFactory[A, V]

	purgedCounter int

	// ShortCircuitOnHit resolves the Open Question of §9/§4.3: the
	// observed source always constructs a new Fetcher even on a cache
	// hit. Defaulting true fixes that; set false to reproduce the
	// legacy double-fetch behavior byte-for-byte.
	ShortCircuitOnHit bool

	Stats FetcherStats

	seqCounter uint64

	logger interfaces.Logger
}

// NewCache constructs an empty Cache with the given capacity and
// default freshness/expiration/purge periods.
func NewCache[A comparable, V any](maxItems int, defaultFreshnessPeriod, defaultExpirationPeriod, defaultPurgePeriod time.Duration, logger interfaces.Logger) *Cache[A, V] {
	return &Cache[A, V]{
		items:                   make(map[A]*Item[A, V]),
		maxItems:                maxItems,
		defaultFreshnessPeriod:  defaultFreshnessPeriod,
		defaultExpirationPeriod: defaultExpirationPeriod,
		defaultPurgePeriod:      defaultPurgePeriod,
		ShortCircuitOnHit:       true,
		logger:                  logger,
	}
}

func (c *Cache[A, V]) nextSeq() uint64 {
	c.seqCounter++
	return c.seqCounter
}

// RequestOption customizes a single RequestObject call, replacing the
// spec's optional keyword arguments (error_handler, timeout_handler,
// backup_state, period overrides) with the functional-options idiom.
type RequestOption[A comparable, V any] func(*FetchParams[A, V])

func WithErrorHandler[A comparable, V any](fn func(A, error)) RequestOption[A, V] {
	return func(p *FetchParams[A, V]) { p.ErrorHandler = fn }
}

func WithTimeoutHandler[A comparable, V any](fn func(A)) RequestOption[A, V] {
	return func(p *FetchParams[A, V]) { p.TimeoutHandler = fn }
}

func WithBackupState[A comparable, V any](state State) RequestOption[A, V] {
	return func(p *FetchParams[A, V]) { p.BackupState = &state }
}

func WithFreshnessPeriod[A comparable, V any](d time.Duration) RequestOption[A, V] {
	return func(p *FetchParams[A, V]) { p.FreshnessPeriod = d }
}

func WithExpirationPeriod[A comparable, V any](d time.Duration) RequestOption[A, V] {
	return func(p *FetchParams[A, V]) { p.ExpirationPeriod = d }
}

func WithPurgePeriod[A comparable, V any](d time.Duration) RequestOption[A, V] {
	return func(p *FetchParams[A, V]) { p.PurgePeriod = d }
}

// RequestObject implements §4.3's request_object: look up via GetItem;
// on a hit invoke objectHandler synchronously. Unless ShortCircuitOnHit
// is set (the default), also construct and start a Fetcher, matching
// the legacy behavior the spec documents rather than silently fixing.
func (c *Cache[A, V]) RequestObject(address A, state State, timeout time.Duration, objectHandler func(A, V, State), opts ...RequestOption[A, V]) error {
	if item := c.GetItem(address, state); item != nil {
		c.mu.Lock()
		c.Stats.Hits++
		shortCircuit := c.ShortCircuitOnHit
		c.mu.Unlock()
		if objectHandler != nil {
			objectHandler(address, item.Value, item.State())
		}
		if shortCircuit {
			return nil
		}
	} else {
		c.mu.Lock()
		c.Stats.Misses++
		c.mu.Unlock()
	}

	c.mu.Lock()
	factory := c.fetcherFactory
	if factory == nil {
		c.mu.Unlock()
		return &interfaces.ConfigurationError{Reason: "no fetcher factory registered"}
	}

	params := FetchParams[A, V]{
		Address:          address,
		ObjectHandler:    objectHandler,
		TimeoutTime:      time.Now().UTC().Add(timeout),
		FreshnessPeriod:  c.defaultFreshnessPeriod,
		ExpirationPeriod: c.defaultExpirationPeriod,
		PurgePeriod:      c.defaultPurgePeriod,
	}
	for _, opt := range opts {
		opt(&params)
	}
	c.Stats.FetchesStarted++
	c.mu.Unlock()

	fetcher := factory(c, params)

	c.mu.Lock()
	c.activeFetchers = append(c.activeFetchers, timeoutEntry[A, V]{deadline: fetcher.TimeoutTime(), fetcher: fetcher})
	sort.Slice(c.activeFetchers, func(i, j int) bool {
		return c.activeFetchers[i].deadline.Before(c.activeFetchers[j].deadline)
	})
	c.mu.Unlock()

	fetcher.Fetch()
	return nil
}

// GetItem implements §4.3's get_item: lookup, advance state, and
// return the item only if the caller's requested state is at least as
// tolerant as the item's current state.
func (c *Cache[A, V]) GetItem(address A, state State) *Item[A, V] {
	c.mu.Lock()
	item, ok := c.items[address]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	c.updateItem(item)

	if state.Rank() >= item.State().Rank() {
		return item
	}
	return nil
}

// addItem implements §4.3's add_item: advance state; skip insertion if
// already Purged; purge first if at capacity; insert keeping sort
// order.
func (c *Cache[A, V]) addItem(item *Item[A, V]) {
	if item.UpdateState() == StatePurged {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.itemsList) >= c.maxItems {
		c.purgeItemsLocked()
	}

	c.items[item.Address] = item
	c.itemsList = append(c.itemsList, item)
	c.resortLocked()
}

// updateItem implements §4.3's update_item: advance state, re-sort;
// if the item just transitioned to Purged, bump purged_counter and
// purge if it now exceeds 25% of max_items.
func (c *Cache[A, V]) updateItem(item *Item[A, V]) {
	before := item.State()
	after := item.UpdateState()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[item.Address]; !ok {
		return
	}
	c.resortLocked()

	if before != StatePurged && after == StatePurged {
		c.purgedCounter++
		if c.maxItems > 0 && c.purgedCounter > c.maxItems/4 {
			c.purgeItemsLocked()
		}
	}
}

// invalidateObject implements §4.3's invalidate_object: if present and
// strictly less stale than the requested state, raise it and re-sort.
func (c *Cache[A, V]) invalidateObject(address A, state State) {
	c.mu.Lock()
	item, ok := c.items[address]
	c.mu.Unlock()
	if !ok {
		return
	}
	if item.State().Rank() < state.Rank() {
		item.RaiseState(state)
		c.mu.Lock()
		c.resortLocked()
		c.mu.Unlock()
	}
}

// purgeItems implements §4.3's purge_items, taking the Cache lock
// itself. See purgeItemsLocked for the compaction strategy.
func (c *Cache[A, V]) purgeItems() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeItemsLocked()
}

// purgeItemsLocked compacts itemsList to at most 75% of maxItems:
// pop from the head (most stale/oldest first) until the size target is
// reached, then keep popping while the new head has become Purged.
// Caller must hold c.mu.
func (c *Cache[A, V]) purgeItemsLocked() {
	target := (c.maxItems * 3) / 4

	for len(c.itemsList) > target {
		c.popHeadLocked()
	}
	for len(c.itemsList) > 0 && c.itemsList[0].State() == StatePurged {
		c.popHeadLocked()
	}
	c.purgedCounter = 0
}

func (c *Cache[A, V]) popHeadLocked() {
	head := c.itemsList[0]
	c.itemsList = c.itemsList[1:]
	delete(c.items, head.Address) // no-op, idempotent, if already absent
}

func (c *Cache[A, V]) resortLocked() {
	sort.SliceStable(c.itemsList, func(i, j int) bool {
		return less(c.itemsList[i], c.itemsList[j])
	})
}

// Tick implements §4.3's tick: sweep active_fetchers from the head
// (earliest deadline), invoking Timeout on each expired entry, stopping
// at the first not-yet-expired entry, then purge.
//
// Per SPEC_FULL.md's two-phase redesign (§4.5/§9), the expired fetchers
// are collected and the slice trimmed under the lock first; Timeout is
// invoked only after the lock is released, since Timeout re-enters the
// Cache via removeFetcher.
func (c *Cache[A, V]) Tick() {
	now := time.Now().UTC()

	c.mu.Lock()
	var expired []Fetcher[A, V]
	i := 0
	for ; i < len(c.activeFetchers); i++ {
		if c.activeFetchers[i].deadline.After(now) {
			break
		}
		expired = append(expired, c.activeFetchers[i].fetcher)
	}
	c.activeFetchers = c.activeFetchers[i:]
	c.mu.Unlock()

	if len(expired) > 0 {
		c.mu.Lock()
		c.Stats.Timeouts += uint64(len(expired))
		c.mu.Unlock()
	}
	for _, f := range expired {
		f.Timeout()
	}

	c.purgeItems()
}

// baseFetcher returns f itself; concrete fetchers that embed
// *BaseFetcher inherit it, which lets removeFetcher match an
// active_fetchers entry against the embedded BaseFetcher.
func (f *BaseFetcher[A, V]) baseFetcher() *BaseFetcher[A, V] { return f }

// removeFetcher implements §4.3's remove_fetcher: locate by identity in
// active_fetchers and remove it. Idempotent — a fetcher already removed
// (e.g. by Tick) is a silent no-op.
func (c *Cache[A, V]) removeFetcher(fetcher *BaseFetcher[A, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, entry := range c.activeFetchers {
		if b, ok := entry.fetcher.(interface{ baseFetcher() *BaseFetcher[A, V] }); ok && b.baseFetcher() == fetcher {
			c.activeFetchers = append(c.activeFetchers[:i], c.activeFetchers[i+1:]...)
			return
		}
	}
}

// SetFetcherFactory installs or clears (pass nil) this Cache's fetcher
// factory, per §4.3's set_fetcher.
func (c *Cache[A, V]) SetFetcherFactory(factory FetcherFactory[A, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetcherFactory = factory
}

// Len reports the current number of stored items.
func (c *Cache[A, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.itemsList)
}

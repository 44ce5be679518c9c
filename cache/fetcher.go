package cache

import (
	"sync"
	"time"
)

// FetchParams carries everything a FetcherFactory needs to build a
// concrete Fetcher for one outstanding retrieval (§4.2).
type FetchParams[A comparable, V any] struct {
	Address A

	ObjectHandler  func(address A, value V, state State)
	ErrorHandler   func(address A, err error)
	TimeoutHandler func(address A)

	// BackupState, if non-nil, is the most-stale acceptable state for a
	// fallback cache lookup on failure or timeout.
	BackupState *State

	TimeoutTime time.Time

	FreshnessPeriod  time.Duration
	ExpirationPeriod time.Duration
	PurgePeriod      time.Duration
}

// Fetcher is a one-shot asynchronous retriever for a single cache
// address (§4.2). Concrete implementations embed *BaseFetcher and
// implement Fetch, which must eventually call exactly one of GotIt or
// ErrorOccurred, unless the owning Cache's tick loop calls Timeout
// first. Per §9's redesign note this is an explicit
// interface (new_fetcher/fetch), not a duck-typed subclass contract.
type Fetcher[A comparable, V any] interface {
	// Fetch starts the asynchronous retrieval. Implementations must not
	// block the caller; they should launch a goroutine or register a
	// callback and return immediately.
	Fetch()

	Address() A
	TimeoutTime() time.Time
	Active() bool

	GotIt(value V, state State)
	ErrorOccurred(err error)
	// Timeout is invoked only by the owning Cache's tick loop.
	Timeout()
}

// FetcherFactory constructs a Fetcher from FetchParams, per the
// interface-rather-than-duck-typing redesign of §9. Register one with
// Cache.SetFetcherFactory or Suite.RegisterFetcher.
type FetcherFactory[A comparable, V any] func(cache *Cache[A, V], params FetchParams[A, V]) Fetcher[A, V]

// BaseFetcher implements the terminal-callback bookkeeping shared by
// every Fetcher: exactly-once dispatch, backup-on-failure, and
// deactivation. Concrete fetchers embed *BaseFetcher[A, V] and supply
// Fetch(). Grounded on the retry/backoff worker loop in the teacher's
// root bifrost.go processRequests, generalized from "retry the same
// request" to "fall back to a backup cache lookup."
type BaseFetcher[A comparable, V any] struct {
	mu sync.Mutex

	cache   *Cache[A, V]
	address A

	freshnessPeriod  time.Duration
	expirationPeriod time.Duration
	purgePeriod      time.Duration

	objectHandler  func(A, V, State)
	errorHandler   func(A, error)
	timeoutHandler func(A)

	timeoutTime time.Time
	backupState *State

	active bool
}

// NewBaseFetcher constructs a BaseFetcher ready to embed in a concrete
// Fetcher implementation.
func NewBaseFetcher[A comparable, V any](cache *Cache[A, V], params FetchParams[A, V]) *BaseFetcher[A, V] {
	return &BaseFetcher[A, V]{
		cache:            cache,
		address:          params.Address,
		freshnessPeriod:  params.FreshnessPeriod,
		expirationPeriod: params.ExpirationPeriod,
		purgePeriod:      params.PurgePeriod,
		objectHandler:    params.ObjectHandler,
		errorHandler:     params.ErrorHandler,
		timeoutHandler:   params.TimeoutHandler,
		timeoutTime:      params.TimeoutTime,
		backupState:      params.BackupState,
		active:           true,
	}
}

func (f *BaseFetcher[A, V]) Address() A             { return f.address }
func (f *BaseFetcher[A, V]) TimeoutTime() time.Time { return f.timeoutTime }

func (f *BaseFetcher[A, V]) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// claim atomically checks and clears the active flag, guaranteeing that
// exactly one of GotIt/ErrorOccurred/Timeout proceeds past this point
// (§4.2 invariant: exactly one terminal callback per Fetcher lifetime).
func (f *BaseFetcher[A, V]) claim() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return false
	}
	f.active = false
	return true
}

// tryBackupItem attempts a fallback cache lookup on failure. Returns
// false (explicitly, correcting the dangling-else in the source — §9)
// when there is no backup state configured or no item satisfies it.
func (f *BaseFetcher[A, V]) tryBackupItem() bool {
	if f.backupState == nil {
		return false
	}
	item := f.cache.GetItem(f.address, *f.backupState)
	if item == nil {
		return false
	}
	f.cache.mu.Lock()
	f.cache.Stats.BackupsServed++
	f.cache.mu.Unlock()
	if f.objectHandler != nil {
		f.objectHandler(f.address, item.Value, item.State())
	}
	return true
}

// GotIt delivers a successful fetch result: construct a CacheItem with
// this fetcher's configured periods, invoke object_handler, insert into
// the Cache, then deactivate. No-op if already inactive.
func (f *BaseFetcher[A, V]) GotIt(value V, state State) {
	if !f.claim() {
		return
	}

	item, err := NewItem[A, V](f.address, value, f.freshnessPeriod, f.expirationPeriod, f.purgePeriod, f.cache.nextSeq())
	if err != nil {
		// The configured periods were invalid; there is no item to
		// deliver, so report it the same way a fetch failure would be.
		f.cache.removeFetcher(f)
		if f.errorHandler != nil {
			f.errorHandler(f.address, err)
		}
		return
	}

	if f.objectHandler != nil {
		f.objectHandler(f.address, value, state)
	}
	f.cache.addItem(item)
	f.cache.removeFetcher(f)
}

// ErrorOccurred delivers a fetch failure: try a backup cache lookup; if
// none is available invoke error_handler, invalidate the cached object
// (raise its state to Stale), then deactivate. No-op if already
// inactive.
func (f *BaseFetcher[A, V]) ErrorOccurred(errData error) {
	if !f.claim() {
		return
	}
	if !f.tryBackupItem() && f.errorHandler != nil {
		f.errorHandler(f.address, errData)
	}
	f.cache.invalidateObject(f.address, StateStale)
	f.cache.removeFetcher(f)
}

// Timeout delivers a fetch timeout: try a backup cache lookup; if none
// is available invoke timeout_handler, falling back to error_handler
// with a nil error if no timeout_handler was set, then invalidate and
// deactivate. Only the owning Cache's tick loop calls this.
func (f *BaseFetcher[A, V]) Timeout() {
	if !f.claim() {
		return
	}
	if !f.tryBackupItem() {
		if f.timeoutHandler != nil {
			f.timeoutHandler(f.address)
		} else if f.errorHandler != nil {
			f.errorHandler(f.address, nil)
		}
	}
	f.cache.invalidateObject(f.address, StateStale)
	f.cache.removeFetcher(f)
}

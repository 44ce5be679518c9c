package cache

import (
	"sync"
	"time"

	"github.com/maximhq/xmppstream/interfaces"
)

// ObjectClass is the explicit type tag a CacheSuite indexes Caches by,
// replacing the spec's runtime-class keying (§9 "Re-architecture
// strategies": registry keyed by an explicit type tag, not runtime
// class).
type ObjectClass string

// Suite is a thin router over per-class Caches (§4.4). It exclusively
// owns the Caches it creates. Values are stored as `any` because the
// set of registered classes, and their per-class value types, is only
// known at registration time; callers type-assert in their
// ObjectHandler.
type Suite struct {
	mu sync.Mutex

	caches map[ObjectClass]*Cache[string, any]

	maxItems                int
	defaultFreshnessPeriod  time.Duration
	defaultExpirationPeriod time.Duration
	defaultPurgePeriod      time.Duration

	logger interfaces.Logger
}

// NewSuite constructs an empty Suite. Per-class Caches created on first
// RegisterFetcher share these capacity/period defaults.
func NewSuite(maxItems int, defaultFreshnessPeriod, defaultExpirationPeriod, defaultPurgePeriod time.Duration, logger interfaces.Logger) *Suite {
	return &Suite{
		caches:                  make(map[ObjectClass]*Cache[string, any]),
		maxItems:                maxItems,
		defaultFreshnessPeriod:  defaultFreshnessPeriod,
		defaultExpirationPeriod: defaultExpirationPeriod,
		defaultPurgePeriod:      defaultPurgePeriod,
		logger:                  logger,
	}
}

// RegisterFetcher implements §4.4's register_fetcher: create the
// per-class Cache on first registration, then install the factory.
func (s *Suite) RegisterFetcher(class ObjectClass, factory FetcherFactory[string, any]) {
	s.mu.Lock()
	c, ok := s.caches[class]
	if !ok {
		c = NewCache[string, any](s.maxItems, s.defaultFreshnessPeriod, s.defaultExpirationPeriod, s.defaultPurgePeriod, s.logger)
		s.caches[class] = c
	}
	s.mu.Unlock()

	c.SetFetcherFactory(factory)
}

// UnregisterFetcher implements §4.4's unregister_fetcher: clears the
// factory but keeps the Cache and its stored items.
func (s *Suite) UnregisterFetcher(class ObjectClass) {
	s.mu.Lock()
	c, ok := s.caches[class]
	s.mu.Unlock()
	if !ok {
		return
	}
	c.SetFetcherFactory(nil)
}

// Cache returns the Cache for the given class, or nil if none
// registered. Exposed so callers can call GetItem/invalidate directly
// without routing every read through RequestObject.
func (s *Suite) Cache(class ObjectClass) *Cache[string, any] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caches[class]
}

// RequestObject implements §4.4's request_object: delegate to the
// right Cache, erroring if none is registered for the class.
func (s *Suite) RequestObject(class ObjectClass, address string, state State, timeout time.Duration, objectHandler func(string, any, State), opts ...RequestOption[string, any]) error {
	s.mu.Lock()
	c, ok := s.caches[class]
	s.mu.Unlock()
	if !ok {
		return &interfaces.ConfigurationError{Reason: "no cache registered for object class " + string(class)}
	}
	return c.RequestObject(address, state, timeout, objectHandler, opts...)
}

// Tick implements §4.4's tick: fans out to all Caches. No ordering
// guarantee across Caches, matching §5.
func (s *Suite) Tick() {
	s.mu.Lock()
	caches := make([]*Cache[string, any], 0, len(s.caches))
	for _, c := range s.caches {
		caches = append(caches, c)
	}
	s.mu.Unlock()

	for _, c := range caches {
		c.Tick()
	}
}

package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// manualFetcher is a test-only Fetcher whose Fetch does nothing; the
// test drives GotIt/ErrorOccurred/Timeout directly. It satisfies the
// same cache.FetcherFactory contract fetchers.HTTPDiscoFetcher and
// fetchers.DirectoryFetcher satisfy.
type manualFetcher struct {
	*BaseFetcher[string, string]
	fetchCalls int32
}

func newManualFetcher(c *Cache[string, string], params FetchParams[string, string]) Fetcher[string, string] {
	return &manualFetcher{BaseFetcher: NewBaseFetcher[string, string](c, params)}
}

func (f *manualFetcher) Fetch() { atomic.AddInt32(&f.fetchCalls, 1) }

func TestFetcherTerminalCallbackExactlyOnce(t *testing.T) {
	c := NewCache[string, string](10, time.Hour, 2*time.Hour, 3*time.Hour, nil)
	c.SetFetcherFactory(newManualFetcher)

	var mu sync.Mutex
	var seen []string
	err := c.RequestObject("a", StateFresh, time.Second, func(addr, v string, s State) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.mu.Lock()
	var f Fetcher[string, string]
	for _, e := range c.activeFetchers {
		f = e.fetcher
	}
	c.mu.Unlock()
	if f == nil {
		t.Fatal("expected one active fetcher")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.GotIt("v1", StateNew)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 {
		t.Fatalf("expected exactly one terminal callback delivery, got %d: %v", len(seen), seen)
	}
}

func TestFetcherBackupOnError(t *testing.T) {
	c := NewCache[string, string](10, time.Hour, 2*time.Hour, 3*time.Hour, nil)
	c.SetFetcherFactory(newManualFetcher)

	stale, _ := NewItem[string, string]("a", "stale-value", -2*time.Hour, -time.Hour, time.Hour, c.nextSeq())
	c.addItem(stale)

	backup := StateStale
	var errCalled, objectSeen bool
	var gotValue string
	_ = c.RequestObject("a", StateFresh, time.Second, func(addr, v string, s State) {
		objectSeen = true
		gotValue = v
	}, WithBackupState[string, string](backup), WithErrorHandler[string, string](func(string, error) { errCalled = true }))

	c.mu.Lock()
	var f Fetcher[string, string]
	for _, e := range c.activeFetchers {
		f = e.fetcher
	}
	c.mu.Unlock()

	f.ErrorOccurred(errors.New("boom"))

	if errCalled {
		t.Fatal("error_handler must not fire when a backup item satisfies backup_state")
	}
	if !objectSeen || gotValue != "stale-value" {
		t.Fatalf("expected backup delivery of stale-value, got seen=%v value=%q", objectSeen, gotValue)
	}
}

func TestFetcherTimeoutWithoutBackupUsesErrorHandlerFallback(t *testing.T) {
	c := NewCache[string, string](10, time.Hour, 2*time.Hour, 3*time.Hour, nil)
	c.SetFetcherFactory(newManualFetcher)

	var errCalled bool
	var errArg error
	_ = c.RequestObject("x", StateFresh, time.Millisecond, nil, WithErrorHandler[string, string](func(_ string, e error) {
		errCalled = true
		errArg = e
	}))

	c.mu.Lock()
	var f Fetcher[string, string]
	for _, e := range c.activeFetchers {
		f = e.fetcher
	}
	c.mu.Unlock()

	f.Timeout()

	if !errCalled {
		t.Fatal("expected error_handler fallback when no timeout_handler and no backup")
	}
	if errArg != nil {
		t.Fatalf("expected nil error on timeout fallback, got %v", errArg)
	}
}

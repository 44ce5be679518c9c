package cache

import (
	"testing"
	"time"
)

func TestRequestObjectHitShortCircuitsByDefault(t *testing.T) {
	c := NewCache[string, string](10, time.Hour, 12*time.Hour, 24*time.Hour, nil)
	item, err := NewItem[string, string]("a", "v", time.Hour, 12*time.Hour, 24*time.Hour, c.nextSeq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.addItem(item)

	fetchCalled := false
	c.SetFetcherFactory(func(cache *Cache[string, string], params FetchParams[string, string]) Fetcher[string, string] {
		fetchCalled = true
		return newManualFetcher(cache, params)
	})

	var gotAddr, gotValue string
	var gotState State
	callCount := 0
	err = c.RequestObject("a", StateFresh, time.Second, func(addr, v string, s State) {
		gotAddr, gotValue, gotState = addr, v, s
		callCount++
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if callCount != 1 || gotAddr != "a" || gotValue != "v" || gotState != StateFresh {
		t.Fatalf("unexpected handler invocation: count=%d addr=%q value=%q state=%v", callCount, gotAddr, gotValue, gotState)
	}
	if fetchCalled {
		t.Fatal("ShortCircuitOnHit default should skip constructing a fetcher on a hit")
	}
}

func TestRequestObjectHitLegacyDoubleFetch(t *testing.T) {
	c := NewCache[string, string](10, time.Hour, 12*time.Hour, 24*time.Hour, nil)
	c.ShortCircuitOnHit = false
	item, _ := NewItem[string, string]("a", "v", time.Hour, 12*time.Hour, 24*time.Hour, c.nextSeq())
	c.addItem(item)

	fetchCalled := false
	c.SetFetcherFactory(func(cache *Cache[string, string], params FetchParams[string, string]) Fetcher[string, string] {
		fetchCalled = true
		return newManualFetcher(cache, params)
	})

	callCount := 0
	err := c.RequestObject("a", StateFresh, time.Second, func(string, string, State) { callCount++ })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if callCount != 1 {
		t.Fatalf("expected hit handler to fire once, got %d", callCount)
	}
	if !fetchCalled {
		t.Fatal("ShortCircuitOnHit=false should reproduce the legacy behavior of also constructing a fetcher")
	}
}

func TestRequestObjectMissThenFetchSuccessIsVisibleToSubsequentRequest(t *testing.T) {
	c := NewCache[string, string](10, time.Hour, 12*time.Hour, 24*time.Hour, nil)
	c.SetFetcherFactory(newManualFetcher)

	var first, second string
	firstCalls, secondCalls := 0, 0

	_ = c.RequestObject("a", StateFresh, time.Second, func(addr, v string, s State) {
		first = v
		firstCalls++
	})

	c.mu.Lock()
	var f Fetcher[string, string]
	for _, e := range c.activeFetchers {
		f = e.fetcher
	}
	c.mu.Unlock()
	if f == nil {
		t.Fatal("expected an active fetcher after a miss")
	}
	f.GotIt("v", StateNew)

	if firstCalls != 1 || first != "v" {
		t.Fatalf("expected object_handler delivery of (\"a\",\"v\",New), got calls=%d value=%q", firstCalls, first)
	}

	fetchCalledAgain := false
	c.SetFetcherFactory(func(cache *Cache[string, string], params FetchParams[string, string]) Fetcher[string, string] {
		fetchCalledAgain = true
		return newManualFetcher(cache, params)
	})
	_ = c.RequestObject("a", StateFresh, time.Second, func(addr, v string, s State) {
		second = v
		secondCalls++
	})
	if secondCalls != 1 || second != "v" {
		t.Fatalf("expected cache to answer the second request without re-fetching, got calls=%d value=%q", secondCalls, second)
	}
	if fetchCalledAgain {
		t.Fatal("subsequent request should find the item in cache, not construct a new fetcher")
	}
}

func TestTickTimeoutWithBackupServesStaleItem(t *testing.T) {
	c := NewCache[string, string](10, time.Hour, 2*time.Hour, 3*time.Hour, nil)
	c.SetFetcherFactory(newManualFetcher)

	stale, _ := NewItem[string, string]("a", "stale-value", -2*time.Hour, -time.Hour, time.Hour, c.nextSeq())
	c.addItem(stale)

	backup := StateStale
	var delivered string
	var errCalled bool
	_ = c.RequestObject("a", StateFresh, 10*time.Millisecond, func(addr, v string, s State) {
		delivered = v
	}, WithBackupState[string, string](backup), WithErrorHandler[string, string](func(string, error) { errCalled = true }))

	time.Sleep(20 * time.Millisecond)
	c.Tick()

	if delivered != "stale-value" {
		t.Fatalf("expected backup delivery of stale-value on timeout, got %q", delivered)
	}
	if errCalled {
		t.Fatal("error_handler must not fire when timeout is served from backup")
	}

	c.mu.Lock()
	remaining := len(c.activeFetchers)
	c.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expired fetcher should be removed from active_fetchers, got %d remaining", remaining)
	}
}

func TestPurgeThresholdCompactsTo75Percent(t *testing.T) {
	c := NewCache[string, string](10, time.Hour, 12*time.Hour, 24*time.Hour, nil)

	for i := 0; i < 10; i++ {
		item, err := NewItem[string, string](string(rune('a'+i)), "v", time.Hour, 12*time.Hour, 24*time.Hour, c.nextSeq())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		item.Timestamp = item.Timestamp.Add(time.Duration(i) * time.Second)
		c.addItem(item)
	}
	if c.Len() != 10 {
		t.Fatalf("expected 10 items after initial inserts, got %d", c.Len())
	}

	eleventh, _ := NewItem[string, string]("k", "v", time.Hour, 12*time.Hour, 24*time.Hour, c.nextSeq())
	c.addItem(eleventh)

	// add_item purges to <=75% of max_items (7) before inserting the new
	// item, so the post-insert total is 8: the purge step itself lands
	// exactly on the 75% target even though the subsequent insert brings
	// the cache back above it.
	if got := c.Len(); got != 8 {
		t.Fatalf("expected purge-then-insert to land at 8 (7 survivors + the new item), got %d", got)
	}
}

func TestGetItemTolerance(t *testing.T) {
	c := NewCache[string, string](10, -time.Hour, time.Hour, 2*time.Hour, nil)
	item, _ := NewItem[string, string]("a", "v", -time.Hour, time.Hour, 2*time.Hour, c.nextSeq())
	c.addItem(item) // update_state on insert promotes New->Fresh->Old immediately (freshness already elapsed)

	if got := c.GetItem("a", StateFresh); got != nil {
		t.Fatalf("requesting Fresh for an Old item should return nil, got %v", got)
	}
	if got := c.GetItem("a", StateOld); got == nil {
		t.Fatal("requesting Old for an Old item should return the item")
	}
}

func TestItemsKeysMatchItemsList(t *testing.T) {
	c := NewCache[string, string](3, time.Hour, 2*time.Hour, 3*time.Hour, nil)
	for i, addr := range []string{"a", "b", "c", "d"} {
		item, _ := NewItem[string, string](addr, "v", time.Hour, 2*time.Hour, 3*time.Hour, c.nextSeq())
		item.Timestamp = item.Timestamp.Add(time.Duration(i) * time.Second)
		c.addItem(item)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) != len(c.itemsList) {
		t.Fatalf("items map and itemsList must stay in sync: %d vs %d", len(c.items), len(c.itemsList))
	}
	for _, it := range c.itemsList {
		if _, ok := c.items[it.Address]; !ok {
			t.Fatalf("itemsList entry %v missing from items map", it.Address)
		}
	}
}

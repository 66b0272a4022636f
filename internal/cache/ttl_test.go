package cache

import (
	"sync"
	"testing"
	"time"
)

func TestIsStaleBoundary(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ttl := 5 * time.Minute
	entry := Entry[int]{LastUpdate: base, Payload: 1, populated: true}

	if IsStale(entry, ttl, base.Add(ttl)) {
		t.Fatal("entry must be fresh exactly at T+D")
	}
	if !IsStale(entry, ttl, base.Add(ttl+time.Millisecond)) {
		t.Fatal("entry must be stale at T+D+1ms")
	}
	if IsStale(entry, ttl, base) {
		t.Fatal("entry must be fresh at T")
	}
}

func TestIsStaleEmptyEntry(t *testing.T) {
	var entry Entry[[]string]
	if !IsStale(entry, time.Hour, time.Time{}) {
		t.Fatal("unpopulated entry must be stale")
	}
	if entry.Populated() {
		t.Fatal("zero entry must not report populated")
	}
}

func TestTTLCacheStoreReplacesWholeEntry(t *testing.T) {
	c := NewTTLCache[string, []int](time.Minute)
	t0 := time.Unix(1000, 0)

	if !c.IsStale("BTC|call|long", t0) {
		t.Fatal("missing key must be stale")
	}

	c.Store("BTC|call|long", []int{1, 2}, t0)
	if c.IsStale("BTC|call|long", t0.Add(30*time.Second)) {
		t.Fatal("expected fresh entry within ttl")
	}

	c.Store("BTC|call|long", []int{3}, t0.Add(2*time.Minute))
	got := c.Get("BTC|call|long")
	if len(got.Payload) != 1 || got.Payload[0] != 3 {
		t.Fatalf("expected replaced payload, got %+v", got.Payload)
	}
	if !got.LastUpdate.Equal(t0.Add(2 * time.Minute)) {
		t.Fatalf("unexpected last update: %s", got.LastUpdate)
	}
}

func TestTTLCacheKeysAreIndependent(t *testing.T) {
	c := NewTTLCache[string, string](time.Minute)
	now := time.Unix(0, 0)
	c.Store("BTC|call|long", "btc", now)

	if !c.IsStale("ETH|call|long", now) {
		t.Fatal("other keys must not share freshness")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

func TestTTLCacheConcurrentStores(t *testing.T) {
	c := NewTTLCache[string, []int](time.Minute)
	now := time.Unix(0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Store("k", []int{n, n}, now)
			entry := c.Get("k")
			if !entry.Populated() || len(entry.Payload) != 2 || entry.Payload[0] != entry.Payload[1] {
				t.Errorf("observed torn entry: %+v", entry)
			}
		}(i)
	}
	wg.Wait()
}

package cache

import (
	"sync"
	"time"
)

// Entry is one cached payload and the time it was stored. A zero Entry has
// no payload and is always stale.
type Entry[V any] struct {
	LastUpdate time.Time
	Payload    V
	populated  bool
}

func (e Entry[V]) Populated() bool {
	return e.populated
}

// IsStale reports whether now is more than ttl past the entry's last update.
func IsStale[V any](e Entry[V], ttl time.Duration, now time.Time) bool {
	if !e.populated {
		return true
	}
	return now.Sub(e.LastUpdate) > ttl
}

// TTLCache holds one Entry per key. Entries are only ever replaced whole;
// concurrent writers for the same key race and the last Store wins.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[K]Entry[V]
}

func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		ttl:     ttl,
		entries: make(map[K]Entry[V]),
	}
}

func (c *TTLCache[K, V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[K, V]) Get(key K) Entry[V] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

func (c *TTLCache[K, V]) IsStale(key K, now time.Time) bool {
	return IsStale(c.Get(key), c.ttl, now)
}

// Store replaces the entry for key and returns the new entry.
func (c *TTLCache[K, V]) Store(key K, payload V, now time.Time) Entry[V] {
	entry := Entry[V]{LastUpdate: now, Payload: payload, populated: true}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Package cache provides a bounded in-memory cache combining LRU eviction
// with per-entry TTL expiry. It backs the read-through fetch pipeline and is
// safe for concurrent use by multiple tool-call handlers.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is used when New is called with a non-positive capacity.
const DefaultCapacity = 100

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hit_count"`
	Misses    int64 `json:"miss_count"`
	Evictions int64 `json:"eviction_count"`
}

// entry is the record stored in the recency list. expiresAt is fixed at
// insertion time; liveness is evaluated against the cache clock on read.
type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Cache is a bounded key/value store with LRU eviction and TTL expiry.
//
// Eviction and expiry are independent: when an insert exceeds capacity the
// least-recently-used entry is evicted regardless of its TTL, and an expired
// entry is reported as absent on read but keeps occupying its capacity slot
// until LRU eviction removes it. Reading an expired entry does not refresh
// its recency, so dead entries drift toward the LRU end and are evicted
// before live ones.
//
// All operations take a single mutex; the critical sections are map and list
// manipulation only, never I/O.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element
	now      func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source used for TTL checks. Tests inject a fake
// clock here to simulate elapsed time instead of sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache holding at most capacity entries.
func New(capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value stored under key. Absent and expired entries are
// both misses; a hit refreshes the entry's recency.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	ent := elem.Value.(*entry)
	if !c.now().Before(ent.expiresAt) {
		// Expired: counts as a miss, stays in place until LRU eviction.
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(elem)
	c.hits++
	return ent.value, true
}

// Put stores value under key for ttl. Storing over an existing key replaces
// its value and refreshes both its deadline and its recency. A non-positive
// ttl stores nothing: the entry would be expired on arrival.
func (c *Cache) Put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.expiresAt = c.now().Add(ttl)
		c.ll.MoveToFront(elem)
		return
	}

	for len(c.items) >= c.capacity {
		c.evictOldest()
	}
	ent := &entry{key: key, value: value, expiresAt: c.now().Add(ttl)}
	c.items[key] = c.ll.PushFront(ent)
}

// evictOldest removes the entry at the LRU end. Caller must hold c.mu.
func (c *Cache) evictOldest() {
	elem := c.ll.Back()
	if elem == nil {
		return
	}
	ent := elem.Value.(*entry)
	c.ll.Remove(elem)
	delete(c.items, ent.key)
	c.evictions++
}

// Len reports the number of occupied slots, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity reports the maximum number of entries the cache holds.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.items),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Package cache holds rendered imagery for repeated identical requests.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cache is a thread-safe LRU cache with per-entry TTL expiry. Stored values
// are immutable: both Put and Get copy the byte slice so no caller can
// mutate a cached entry.
type Cache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key      string
	value    []byte
	storedAt time.Time
	prev     *entry
	next     *entry
}

// New creates a cache bounded to maxEntries, each living at most ttl.
// The clock is injectable so tests can advance time deterministically.
func New(maxEntries int, ttl time.Duration, clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

// Get returns a copy of the cached value, or false on miss or expiry.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Since(e.storedAt) > c.ttl {
		c.removeEntry(e)
		return nil, false
	}
	c.moveToFront(e)
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true
}

// Put stores a copy of value under key, evicting the least recently used
// entry when the bound is exceeded.
func (c *Cache) Put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)

	if e, ok := c.entries[key]; ok {
		e.value = stored
		e.storedAt = c.clock.Now()
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: stored, storedAt: c.clock.Now()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len returns the number of live entries, expired ones included until the
// next Get touches them.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeEntry(e *entry) {
	delete(c.entries, e.key)
	c.unlink(e)
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Cache) evictTail() {
	if c.tail == nil {
		return
	}
	c.removeEntry(c.tail)
}

package alerts

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Entry is one cached aggregation result. Entries are never mutated after
// they are stored.
type Entry struct {
	Alerts    []Alert
	Timestamp time.Time
}

// Cache keeps whole aggregation results per key for a fixed TTL.
type Cache struct {
	ttl     time.Duration
	clock   Clock
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewCache(ttl time.Duration, clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]Entry),
	}
}

// Get returns the entry for key if it is younger than the TTL.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.clock.Now().Sub(entry.Timestamp) > c.ttl {
		return Entry{}, false
	}
	return entry, true
}

// Set replaces the entry for key, stamped with the current time.
func (c *Cache) Set(key string, alerts []Alert) Entry {
	entry := Entry{Alerts: alerts, Timestamp: c.clock.Now()}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	return entry
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

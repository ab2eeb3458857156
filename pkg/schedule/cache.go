package schedule

import (
	"sync/atomic"
	"time"
)

type Clock func() time.Time

type cacheEntry[T any] struct {
	value    T
	storedAt time.Time
	stale    bool
}

// Cache holds a single value with a time-to-live. Concurrent writers are not
// coordinated: the last Set wins. Expired or invalidated values stay
// readable and are reported as not fresh.
type Cache[T any] struct {
	ttl   time.Duration
	clock Clock

	current atomic.Pointer[cacheEntry[T]]
}

func NewCache[T any](ttl time.Duration, clock Clock) *Cache[T] {
	if clock == nil {
		clock = time.Now
	}

	return &Cache[T]{
		ttl:   ttl,
		clock: clock,
	}
}

// Get returns the cached value, whether it is still fresh, and whether there
// is any value at all.
func (c *Cache[T]) Get() (T, bool, bool) {
	entry := c.current.Load()
	if entry == nil {
		var empty T
		return empty, false, false
	}

	fresh := !entry.stale && c.clock().Sub(entry.storedAt) < c.ttl

	return entry.value, fresh, true
}

func (c *Cache[T]) Set(value T) {
	c.current.Store(&cacheEntry[T]{
		value:    value,
		storedAt: c.clock(),
	})
}

// Invalidate marks the current value stale without discarding it.
func (c *Cache[T]) Invalidate() {
	entry := c.current.Load()
	if entry == nil {
		return
	}

	c.current.Store(&cacheEntry[T]{
		value:    entry.value,
		storedAt: entry.storedAt,
		stale:    true,
	})
}

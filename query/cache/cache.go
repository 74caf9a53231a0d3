// Package cache provides the LRU cache used for compiled queries and the lease
// pool used for non-reentrant execution resources such as prepared
// statements.
package cache

import (
	"sync"
	"time"
)

// Stats represents cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// LRU is a size-bounded least-recently-used cache with optional expiry. It is
// safe for concurrent use.
type LRU[V any] struct {
	mu         sync.Mutex
	data       map[string]*node[V]
	maxSize    int
	defaultTTL time.Duration
	head, tail *node[V]
	stats      Stats
	onEvict    func(key string, value V)
	now        func() time.Time
}

type node[V any] struct {
	key        string
	value      V
	expiresAt  time.Time
	prev, next *node[V]
}

// Option configures an LRU.
type Option[V any] func(*LRU[V])

// WithEvictCallback is called, outside the cache lock, for every entry that is
// evicted, expired, invalidated or cleared. Overwriting a key with Set does
// not invoke it.
func WithEvictCallback[V any](fn func(key string, value V)) Option[V] {
	return func(c *LRU[V]) { c.onEvict = fn }
}

// NewLRU creates a cache holding at most maxSize entries. A zero defaultTTL
// means entries do not expire.
func NewLRU[V any](maxSize int, defaultTTL time.Duration, opts ...Option[V]) *LRU[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &LRU[V]{
		data:       make(map[string]*node[V]),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		stats:      Stats{MaxSize: maxSize},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	n, ok := c.data[key]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return zero, false
	}
	if !n.expiresAt.IsZero() && c.now().After(n.expiresAt) {
		c.unlink(n)
		c.stats.Misses++
		c.mu.Unlock()
		c.evicted(n)
		return zero, false
	}
	c.moveToFront(n)
	c.stats.Hits++
	c.mu.Unlock()
	return n.value, true
}

// Set stores a value. A zero ttl uses the default TTL, a negative one never
// expires.
func (c *LRU[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	if n, exists := c.data[key]; exists {
		n.value = value
		n.expiresAt = expiresAt
		c.moveToFront(n)
		c.mu.Unlock()
		return
	}
	var victim *node[V]
	if len(c.data) >= c.maxSize && c.tail != nil {
		victim = c.tail
		c.unlink(victim)
		c.stats.Evictions++
	}
	n := &node[V]{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(n)
	c.data[key] = n
	c.mu.Unlock()
	if victim != nil {
		c.evicted(victim)
	}
}

// Invalidate removes a specific key from the cache.
func (c *LRU[V]) Invalidate(key string) {
	c.mu.Lock()
	n, ok := c.data[key]
	if ok {
		c.unlink(n)
	}
	c.mu.Unlock()
	if ok {
		c.evicted(n)
	}
}

// Clear removes all entries and resets the statistics.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	var removed []*node[V]
	for n := c.head; n != nil; n = n.next {
		removed = append(removed, n)
	}
	c.data = make(map[string]*node[V])
	c.head, c.tail = nil, nil
	c.stats = Stats{MaxSize: c.maxSize}
	c.mu.Unlock()
	for _, n := range removed {
		c.evicted(n)
	}
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// GetStats returns cache statistics.
func (c *LRU[V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

func (c *LRU[V]) evicted(n *node[V]) {
	if c.onEvict != nil {
		c.onEvict(n.key, n.value)
	}
}

func (c *LRU[V]) addToFront(n *node[V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *LRU[V]) moveToFront(n *node[V]) {
	if n == c.head {
		return
	}
	c.detach(n)
	c.addToFront(n)
}

// unlink removes n from the list and the index.
func (c *LRU[V]) unlink(n *node[V]) {
	c.detach(n)
	delete(c.data, n.key)
}

func (c *LRU[V]) detach(n *node[V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// Package cache provides a TTL'd LRU for small per-key state that must
// stay bounded under adversarial key cardinality, such as per-client
// rate limiter buckets.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/23skdu/longview/internal/metrics"
)

type item[T any] struct {
	key       uint64
	value     T
	expiresAt time.Time
}

// Cache is a fixed-capacity LRU with per-entry TTL. Safe for concurrent use.
// Reads do not promote entries, so eviction order follows insertion order.
type Cache[T any] struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[uint64]*list.Element
	lru      *list.List

	// Cache label for metrics
	name string
}

// New creates a cache holding at most capacity entries for at most ttl each.
func New[T any](name string, capacity int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[uint64]*list.Element),
		lru:      list.New(),
		name:     name,
	}
}

func (c *Cache[T]) Get(key uint64) (T, bool) {
	c.mu.RLock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.RUnlock()
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		var zero T
		return zero, false
	}

	it := elem.Value.(*item[T])
	if time.Now().After(it.expiresAt) {
		c.mu.RUnlock()
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		var zero T
		return zero, false
	}

	metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	c.mu.RUnlock()
	return it.value, true
}

func (c *Cache[T]) Put(key uint64, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		it := elem.Value.(*item[T])
		it.value = value
		it.expiresAt = time.Now().Add(c.ttl)
		return
	}

	it := &item[T]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	elem := c.lru.PushFront(it)
	c.items[key] = elem

	metrics.CacheSize.WithLabelValues(c.name).Set(float64(c.lru.Len()))

	if c.lru.Len() > c.capacity {
		c.evictOldest()
	}
}

func (c *Cache[T]) evictOldest() {
	elem := c.lru.Back()
	if elem != nil {
		c.lru.Remove(elem)
		it := elem.Value.(*item[T])
		delete(c.items, it.key)
		metrics.CacheEvictionsTotal.WithLabelValues(c.name).Inc()
		metrics.CacheSize.WithLabelValues(c.name).Set(float64(c.lru.Len()))
	}
}

// Clear purges the cache
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Init()
	c.items = make(map[uint64]*list.Element)
	metrics.CacheSize.WithLabelValues(c.name).Set(0)
}

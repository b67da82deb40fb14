// Package cache provides a bounded, TTL-aware cache on top of hashicorp/golang-lru.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSize bounds the number of entries kept by New.
const DefaultSize = 1024

type item[V any] struct {
	value     V
	expiresAt time.Time
}

func (i item[V]) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is a generic LRU cache whose entries expire after a per-entry TTL.
type Cache[K comparable, V any] struct {
	lru  *lru.Cache
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// New creates a cache of DefaultSize entries. Expired entries are purged
// every cleanupInterval; zero disables the janitor.
func New[K comparable, V any](cleanupInterval time.Duration) *Cache[K, V] {
	return NewWithSize[K, V](DefaultSize, cleanupInterval)
}

// NewWithSize creates a cache holding at most size entries.
func NewWithSize[K comparable, V any](size int, cleanupInterval time.Duration) *Cache[K, V] {
	l, err := lru.New(size)
	if err != nil {
		// only fails for non-positive sizes
		l, _ = lru.New(DefaultSize)
	}

	c := &Cache[K, V]{
		lru:  l,
		now:  time.Now,
		done: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

// Get returns the value for key when present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V

	raw, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}

	it := raw.(item[V])
	if it.expired(c.now()) {
		c.lru.Remove(key)
		return zero, false
	}
	return it.value, true
}

// Set stores value under key. A ttl of zero never expires.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	it := item[V]{value: value}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, it)
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.lru.Remove(key)
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Close stops the janitor.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache[K, V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *Cache[K, V]) purgeExpired() {
	now := c.now()
	for _, key := range c.lru.Keys() {
		raw, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if raw.(item[V]).expired(now) {
			c.lru.Remove(key)
		}
	}
}

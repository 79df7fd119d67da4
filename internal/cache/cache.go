// Package cache provides a small in-process cache keyed by request path
// with tag-based invalidation. Mutating operations revalidate the tags
// they touch, dropping every cached entry carrying one of those tags.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     []byte
	tags      map[string]struct{}
	expiresAt time.Time
}

// Cache is a TTL cache with tag-based invalidation. Safe for concurrent
// use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
}

// New creates a cache whose entries expire after ttl
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

// Get returns the cached value for key, or (nil, false) if missing or
// expired
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Recheck under the write lock: a Set may have replaced it
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, associated with the given tags
func (c *Cache) Set(key string, value []byte, tags ...string) {
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}

	c.mu.Lock()
	c.entries[key] = &entry{
		value:     value,
		tags:      tagSet,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Revalidate drops every entry carrying any of the given tags
func (c *Cache) Revalidate(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		for _, t := range tags {
			if _, ok := e.tags[t]; ok {
				delete(c.entries, key)
				break
			}
		}
	}
}

// Flush drops all entries
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len returns the number of live entries, counting expired ones not yet
// evicted
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

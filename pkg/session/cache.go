package session

import (
	"sync"
	"time"
)

// Cache holds per-venue reference data (market index, asset list) for a TTL.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheItem
	ttl   time.Duration
	now   func() time.Time
}

type cacheItem struct {
	value any
	// expiresAt is zero for items that never expire.
	expiresAt time.Time
}

// NewCache creates a Cache whose items live for ttl. A zero ttl keeps items
// until they are deleted.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		items: make(map[string]*cacheItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the value stored under key. Expired items are reported missing.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !item.expiresAt.IsZero() && c.now().After(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

// Set stores value under key with the cache's TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem{value: value}
	if c.ttl > 0 {
		item.expiresAt = c.now().Add(c.ttl)
	}
	c.items[key] = item
}

// Delete drops key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear drops everything, used on Close and ClearCache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*cacheItem)
}

// Len returns the number of stored items, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// cached returns the typed value under key.
func cached[T any](c *Cache, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

package cache

import (
	"sync"
	"time"
)

// Item represents a cached item with expiration
type Item struct {
	Value      any
	Expiration int64
}

// Expired checks if the cache item has expired
func (item Item) Expired(now int64) bool {
	return item.Expiration > 0 && now > item.Expiration
}

// Cache is a thread-safe in-memory cache with expiration. Expired entries
// are dropped when the cache is full or when they are read.
type Cache struct {
	mu                sync.RWMutex
	items             map[string]Item
	defaultExpiration time.Duration
	maxItems          int
	now               func() time.Time
}

// NewCache creates a cache whose entries live for ttl; maxItems <= 0 means unbounded
func NewCache(ttl time.Duration, maxItems int) *Cache {
	return &Cache{
		items:             make(map[string]Item),
		defaultExpiration: ttl,
		maxItems:          maxItems,
		now:               time.Now,
	}
}

// Set adds an item to the cache with the default expiration
func (c *Cache) Set(key string, value any) {
	var exp int64
	if c.defaultExpiration > 0 {
		exp = c.now().Add(c.defaultExpiration).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.deleteExpired()
		if len(c.items) >= c.maxItems {
			c.evictOldest()
		}
	}

	c.items[key] = Item{Value: value, Expiration: exp}
}

// Get retrieves an item from the cache
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		return nil, false
	}
	if item.Expired(c.now().UnixNano()) {
		c.Delete(key)
		return nil, false
	}

	return item.Value, true
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Count returns the number of items in the cache (including expired items)
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

func (c *Cache) deleteExpired() {
	now := c.now().UnixNano()
	for k, v := range c.items {
		if v.Expired(now) {
			delete(c.items, k)
		}
	}
}

// evictOldest removes the entry closest to expiry
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest int64
	first := true

	for k, v := range c.items {
		if first || v.Expiration < oldest {
			oldestKey, oldest, first = k, v.Expiration, false
		}
	}

	if !first {
		delete(c.items, oldestKey)
	}
}

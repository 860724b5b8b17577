package cache

import (
	"container/list"
	"slices"
	"sync"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	key        string
	value      []domain.Product
	storedAt   time.Time
	expiration time.Time
}

// MemoryCache is a thread-safe, size-bounded in-memory cache with per-entry TTL.
// When full, the entry inserted first is evicted, regardless of how recently it was read.
type MemoryCache struct {
	maxEntries int
	items      map[string]*list.Element
	order      *list.List
	mutex      sync.RWMutex
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates a new in-memory cache holding at most maxEntries keys
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 500
	}

	cache := &MemoryCache{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	// Start cleanup goroutine to remove expired entries every minute
	go cache.cleanupExpired(time.Minute)

	return cache
}

// Get retrieves a live value from the cache. A stored empty list is reported as found.
func (c *MemoryCache) Get(key string) ([]domain.Product, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	elem, exists := c.items[key]
	if !exists {
		termCacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	item := elem.Value.(*cacheItem)
	if c.now().After(item.expiration) {
		termCacheLookupsTotal.WithLabelValues("expired").Inc()
		return nil, false
	}

	termCacheLookupsTotal.WithLabelValues("hit").Inc()
	return item.value, true
}

// Set stores a value in the cache with TTL. Re-setting a key keeps its insertion position.
func (c *MemoryCache) Set(key string, value []domain.Product, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	stored := slices.Clone(value)
	if stored == nil {
		stored = []domain.Product{}
	}

	if elem, exists := c.items[key]; exists {
		item := elem.Value.(*cacheItem)
		item.value = stored
		item.storedAt = now
		item.expiration = now.Add(ttl)
		return
	}

	c.items[key] = c.order.PushBack(&cacheItem{
		key:        key,
		value:      stored,
		storedAt:   now,
		expiration: now.Add(ttl),
	})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheItem).key)
	}
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if elem, exists := c.items[key]; exists {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		item := elem.Value.(*cacheItem)
		if now.After(item.expiration) {
			c.order.Remove(elem)
			delete(c.items, item.key)
		}
		elem = next
	}
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

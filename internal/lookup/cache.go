package lookup

import (
	"sync"
	"time"
)

// cacheEntry is a cached medicine record with its expiration
type cacheEntry struct {
	medicine *Medicine
	expires  time.Time
}

// Cache is a thread-safe in-memory TTL cache for medicine records.
// Lookups against the public drug database are slow and the same boxes get
// scanned repeatedly, so records are kept warm for the configured TTL.
type Cache struct {
	data map[string]cacheEntry
	ttl  time.Duration
	mu   sync.RWMutex
}

// NewCache creates a cache with the given TTL and starts the sweeper
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		data: make(map[string]cacheEntry),
		ttl:  ttl,
	}

	go c.sweep()

	return c
}

// Get returns the cached record for a CIP13, or nil on miss or expiry
func (c *Cache) Get(cip13 string) *Medicine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[cip13]
	if !ok || time.Now().After(entry.expires) {
		return nil
	}

	return entry.medicine
}

// Set stores a medicine record under its CIP13
func (c *Cache) Set(medicine *Medicine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[medicine.CIP13] = cacheEntry{
		medicine: medicine,
		expires:  time.Now().Add(c.ttl),
	}
}

// Delete removes a record from the cache
func (c *Cache) Delete(cip13 string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, cip13)
}

// Size returns the current number of cached records
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// sweep removes expired entries periodically
func (c *Cache) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, entry := range c.data {
			if now.After(entry.expires) {
				delete(c.data, key)
			}
		}
		c.mu.Unlock()
	}
}

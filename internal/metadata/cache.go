package metadata

import (
	"sync"
	"time"
)

// Property bags barely change between the enumeration walk and the
// partition scan that follows it, so queries are cached briefly to
// avoid re-running diskutil for every slice.
const bagTTL = 5 * time.Second

type cacheEntry struct {
	value     *Metadata
	expiresAt time.Time
}

// bagCache is a thread-safe TTL cache of device property bags keyed
// by device path.
type bagCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

func newBagCache() *bagCache {
	return &bagCache{entries: make(map[string]*cacheEntry)}
}

// get retrieves a bag, returning nil if expired or not found.
func (c *bagCache) get(path string) *Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[path]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.value
}

func (c *bagCache) set(path string, m *Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = &cacheEntry{
		value:     m,
		expiresAt: time.Now().Add(bagTTL),
	}
}

func (c *bagCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

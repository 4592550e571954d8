package search

import "sync"

// queryCache is a bounded map from normalized query to ranked hits.
// When full, the oldest inserted entry is evicted first.
type queryCache struct {
	entries  map[string][]Hit
	order    []string
	capacity int
	mu       sync.RWMutex
}

func newQueryCache(capacity int) *queryCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &queryCache{
		entries:  make(map[string][]Hit, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

func (c *queryCache) get(key string) ([]Hit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits, ok := c.entries[key]
	return hits, ok
}

func (c *queryCache) put(key string, hits []Hit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = hits
		return
	}

	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = hits
	c.order = append(c.order, key)
}

func (c *queryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

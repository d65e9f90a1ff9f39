package crawl

import "github.com/newsward/ingest/internal/domain"

// KeyCache remembers feed entry keys a crawler has already dispatched, so
// unchanged entries are not re-submitted on every poll. The cache is bounded:
// when it grows past its maximum it evicts the oldest 5% of entries by
// insertion order. It is not safe for concurrent use; each crawler owns one
// and touches it only from its own polling goroutine.
type KeyCache struct {
	max   int
	keys  map[domain.RssKey]struct{}
	order []domain.RssKey
}

// NewKeyCache creates a cache holding at most max keys.
func NewKeyCache(max int) *KeyCache {
	if max < 1 {
		max = 1
	}
	return &KeyCache{
		max:  max,
		keys: make(map[domain.RssKey]struct{}, max),
	}
}

// Add records a key and reports whether it was new. A false return means the
// key was already present and the caller should skip the entry.
func (c *KeyCache) Add(key domain.RssKey) bool {
	if _, ok := c.keys[key]; ok {
		return false
	}
	c.keys[key] = struct{}{}
	c.order = append(c.order, key)
	if len(c.keys) > c.max {
		c.evict()
	}
	return true
}

// Contains reports whether the key has been seen.
func (c *KeyCache) Contains(key domain.RssKey) bool {
	_, ok := c.keys[key]
	return ok
}

// Len returns the number of cached keys.
func (c *KeyCache) Len() int {
	return len(c.keys)
}

// evict drops the oldest 5% of entries, at least one.
func (c *KeyCache) evict() {
	n := c.max / 20
	if n < 1 {
		n = 1
	}
	if n > len(c.order) {
		n = len(c.order)
	}
	for _, key := range c.order[:n] {
		delete(c.keys, key)
	}
	c.order = append(c.order[:0], c.order[n:]...)
}

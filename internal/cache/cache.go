// Package cache tracks which Drive files the pipeline has already handled.
//
// ProcessedCache is the in-memory dedup map used by the webhook service;
// SeenFiles is the lower-precision file-backed id list used by the
// standalone copier.
package cache

import (
	"sync"
	"time"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

// DefaultCapacity bounds the webhook service's cache.
const DefaultCapacity = 100

// ProcessedCache is a bounded, insertion-ordered map from file ID to the
// time that file was last claimed for processing. Once the map grows past
// its capacity the oldest-inserted entry is evicted; overwriting an existing
// ID updates its timestamp but keeps its insertion position.
//
// The claim write is the only operation performed under the mutex, so it is
// safe to call concurrently from parallel pipeline invocations.
type ProcessedCache struct {
	mu       sync.Mutex
	entries  map[string]time.Time
	order    []string
	capacity int
	now      func() time.Time
}

// NewProcessedCache returns a cache bounded to capacity entries. A capacity
// of zero or less falls back to DefaultCapacity.
func NewProcessedCache(capacity int) *ProcessedCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ProcessedCache{
		entries:  make(map[string]time.Time, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Add inserts or overwrites the entry for id. Timestamps are stored in UTC.
func (c *ProcessedCache) Add(id string, ts time.Time) {
	ts = models.NormalizeUTC(ts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; ok {
		c.entries[id] = ts
		return
	}

	c.entries[id] = ts
	c.order = append(c.order, id)
	if len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Get returns the stored last-processed time for id, if any.
func (c *ProcessedCache) Get(id string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.entries[id]
	return ts, ok
}

// IsWithin reports whether id was processed less than window ago. An unknown
// id is never within the window.
func (c *ProcessedCache) IsWithin(id string, window time.Duration) bool {
	c.mu.Lock()
	ts, ok := c.entries[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return models.NormalizeUTC(c.now()).Sub(ts) < window
}

// Len returns the current number of entries.
func (c *ProcessedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

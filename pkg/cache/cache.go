// Package cache keeps the most recent cluster snapshot in memory, refreshes it
// in the background and optionally mirrors it to Redis.
package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
)

// Stats describes the cache state. Times are milliseconds; CacheAge is -1
// while the cache holds no valid data.
type Stats struct {
	IsValid             bool    `json:"isValid"`
	EntryCount          int     `json:"entryCount"`
	LastUpdated         float64 `json:"lastUpdated"`
	CacheAge            float64 `json:"cacheAge"`
	InterrogatorRunning bool    `json:"interrogatorRunning"`
	IntervalSeconds     float64 `json:"intervalSeconds"`
}

// Cache is a read/write locked snapshot holder.
type Cache struct {
	mu          sync.RWMutex
	data        *cluster.Snapshot
	lastUpdated time.Time
	valid       bool

	now func() time.Time
	log zerolog.Logger
}

// New creates an empty cache.
func New(log zerolog.Logger) *Cache {
	return &Cache{now: time.Now, log: log}
}

// Update replaces the cached snapshot.
func (c *Cache) Update(s *cluster.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = s
	c.lastUpdated = c.now()
	c.valid = s != nil
	if s != nil {
		c.log.Info().Int("pods", len(s.Pods)).Int("deployments", len(s.Deployments)).Msg("Cache updated")
	}
}

// Get returns the cached snapshot, or nil.
func (c *Cache) Get() *cluster.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// Valid reports whether the cache holds data.
func (c *Cache) Valid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.valid && c.data != nil
}

// LastUpdated returns the time of the last update, or the zero time.
func (c *Cache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}

// Age returns how old the cached data is. ok is false when the cache is invalid.
func (c *Cache) Age() (age time.Duration, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.age()
}

func (c *Cache) age() (time.Duration, bool) {
	if !c.valid {
		return 0, false
	}
	return c.now().Sub(c.lastUpdated), true
}

// Stale reports whether the cache is invalid or older than maxAge.
func (c *Cache) Stale(maxAge time.Duration) bool {
	age, ok := c.Age()
	return !ok || age > maxAge
}

// Invalidate drops the cached snapshot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.valid = false
	c.lastUpdated = time.Time{}
	c.log.Info().Msg("Cache invalidated")
}

// Stats returns the cache statistics. Interrogator fields are left zero.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{IsValid: c.valid, CacheAge: -1}
	if c.data != nil {
		s.EntryCount = len(c.data.Pods) + len(c.data.Deployments)
	}
	if !c.lastUpdated.IsZero() {
		s.LastUpdated = float64(c.lastUpdated.UnixMilli())
	}
	if age, ok := c.age(); ok {
		s.CacheAge = float64(age.Milliseconds())
	}
	return s
}

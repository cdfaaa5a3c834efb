// Package cache provides the in-memory coordinate cache keyed by postcode.
package cache

import (
	"sync"
	"time"

	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Entry is one cached resolution. Presence of an entry implies a previously
// successful upstream lookup.
type Entry struct {
	Postcode    string
	Coordinates domain.Coordinates
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CoordinateCache maps postcode → resolved coordinates. At most one entry
// per postcode; entries are never deleted here (postcodes are a small,
// stable keyspace, so unbounded growth is accepted — expiry would be an
// external TTL policy's job).
type CoordinateCache struct {
	clock   clockwork.Clock
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty CoordinateCache using the given clock for timestamps.
func New(clock clockwork.Clock) *CoordinateCache {
	return &CoordinateCache{
		clock:   clock,
		entries: make(map[string]Entry),
	}
}

// Get returns the cached entry for postcode, if any. No side effects.
func (c *CoordinateCache) Get(postcode string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[postcode]
	return e, ok
}

// Put upserts the coordinates for postcode. UpdatedAt is refreshed on every
// call, even when the coordinates are unchanged; CreatedAt is set once.
func (c *CoordinateCache) Put(postcode string, coords domain.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	e, ok := c.entries[postcode]
	if !ok {
		e = Entry{Postcode: postcode, CreatedAt: now}
	}
	e.Coordinates = coords
	e.UpdatedAt = now
	c.entries[postcode] = e
}

// Len returns the number of cached postcodes.
func (c *CoordinateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

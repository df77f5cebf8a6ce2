// Package awareness caches the last fetched snapshot of external domain
// state. The snapshot feeds reasoning context; it is replaced wholesale
// on refresh and invalidated whenever a mutating action executes.

package awareness

import (
	"sync"
	"time"
)

// Snapshot is one fetched view of domain state. Snapshots are immutable:
// a refresh replaces the previous snapshot, never merges into it.
type Snapshot struct {
	Summary   string    `json:"summary"`
	Skeleton  []string  `json:"skeleton,omitempty"`
	Relevant  []string  `json:"relevant,omitempty"`
	Tokens    int       `json:"tokens"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache is the single-slot awareness cache with a staleness flag and a
// monotonically increasing domain-state version counter.
//
// The mutex only guards against the watcher goroutine invalidating
// concurrently with the loop; the loop itself is single-threaded.
type Cache struct {
	mu      sync.Mutex
	snap    *Snapshot
	stale   bool
	ttl     time.Duration // 0 disables TTL expiry
	version uint64
}

// NewCache creates an empty cache. ttl of 0 means snapshots never expire
// by age, only by explicit invalidation.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

// NeedsRefresh reports whether a fresh snapshot must be fetched before
// the next reasoning phase: no snapshot yet, explicitly invalidated, or
// older than the TTL.
func (c *Cache) NeedsRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil || c.stale {
		return true
	}
	if c.ttl > 0 && time.Since(c.snap.FetchedAt) > c.ttl {
		return true
	}
	return false
}

// Update replaces the cached snapshot and clears staleness.
func (c *Cache) Update(snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	c.stale = false
}

// Invalidate marks the snapshot stale and increments the domain-state
// version by exactly one. Called once per iteration in which at least
// one executed action was classified as mutating, and by the watcher
// when the domain changes underneath the agent.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
	c.version++
}

// Bump increments the domain-state version without invalidating the
// snapshot, for iterations whose actions were all read-only.
func (c *Cache) Bump() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
}

// Snapshot returns the current snapshot, which may be nil. Callers must
// treat it as read-only.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Version returns the domain-state version counter.
func (c *Cache) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// IsStale reports the explicit staleness flag, ignoring TTL.
func (c *Cache) IsStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

package schema

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// Dimension is one advertised dimension.
type Dimension struct {
	Name        string   `json:"-"`
	Domain      string   `json:"domain"`
	Description string   `json:"description"`
	ValidValues []string `json:"valid_values"`
}

// Snapshot is a fetched schema, keyed by dimension name.
type Snapshot struct {
	Dimensions map[string]Dimension
	FetchedAt  time.Time
}

// Names returns the dimension names in sorted order.
func (s *Snapshot) Names() []string {
	return slices.Sorted(maps.Keys(s.Dimensions))
}

// Cache holds at most one snapshot per source. It is an explicit value owned
// by whoever constructs it; nothing is shared between caches.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*Snapshot
}

// NewCache creates a Cache. A zero ttl keeps entries until Clear.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: map[string]*Snapshot{}}
}

// Get returns the cached snapshot for source, if present and fresh.
func (c *Cache) Get(source string) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.entries[source]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(snap.FetchedAt) >= c.ttl {
		delete(c.entries, source)
		return nil, false
	}
	return snap, true
}

// Set stores snap for source.
func (c *Cache) Set(source string, snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[source] = snap
}

// Clear drops every cached snapshot.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

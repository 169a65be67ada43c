// Package correlate implements the windowed detection rules and the
// engine that evaluates them against the event window on every ingestion.
package correlate

import (
	"context"
	"sync"
	"time"
)

// DefaultDedupTTL is how long a fired rule key suppresses re-emission.
const DefaultDedupTTL = 300 * time.Second

// Deduper is the keyed TTL gate shared by all rules. Seen reports whether
// the key fired within the TTL; an unseen key is armed as a side effect.
// A key that is already armed is NOT refreshed, so a persisting condition
// re-fires once per TTL, not never.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
}

// TTLCache is the in-process Deduper. Expired entries are cleaned lazily
// on access.
type TTLCache struct {
	ttl  time.Duration
	seen map[string]time.Time
	mu   sync.Mutex
}

// NewTTLCache creates a TTLCache with the given TTL.
func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &TTLCache{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

// Seen implements Deduper.
func (c *TTLCache) Seen(_ context.Context, key string) (bool, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, ts := range c.seen {
		if now.Sub(ts) > c.ttl {
			delete(c.seen, k)
		}
	}

	if _, ok := c.seen[key]; ok {
		return true, nil
	}
	c.seen[key] = now
	return false, nil
}

// Len returns the number of armed keys (expired entries included until
// the next access cleans them).
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

package server

import (
	"sync"
	"time"
)

// seenTTL is how long a delivered event ID is remembered
const seenTTL = 5 * time.Minute

// seenCache drops events the chat service delivers more than once
type seenCache struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func newSeenCache() *seenCache {
	return &seenCache{seen: make(map[string]time.Time), now: time.Now}
}

// firstSight records id and reports whether it was new
func (c *seenCache) firstSight(id string) bool {
	if id == "" {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if ts, ok := c.seen[id]; ok && now.Sub(ts) < seenTTL {
		return false
	}
	c.seen[id] = now

	// Clean up expired records on every insert to bound memory
	cutoff := now.Add(-seenTTL)
	for k, ts := range c.seen {
		if ts.Before(cutoff) {
			delete(c.seen, k)
		}
	}
	return true
}

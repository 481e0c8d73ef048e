package meeting

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// legacyCache holds the provider meetings of unscheduled (ad-hoc) meetings, keyed by external ID.
// Entries are bounded in number and expire after ttl; the provider is still asked before reuse.
type legacyCache struct {
	lru *expirable.LRU[string, Meeting]
}

func newLegacyCache(size int, ttl time.Duration) *legacyCache {
	if size <= 0 {
		size = 1024
	}
	return &legacyCache{lru: expirable.NewLRU[string, Meeting](size, nil, ttl)}
}

func (c *legacyCache) get(externalID string) (Meeting, bool) {
	return c.lru.Get(externalID)
}

func (c *legacyCache) add(externalID string, m Meeting) {
	c.lru.Add(externalID, m)
}

func (c *legacyCache) remove(externalID string) {
	c.lru.Remove(externalID)
}

func (c *legacyCache) len() int {
	return c.lru.Len()
}

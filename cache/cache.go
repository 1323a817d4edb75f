// Package cache keeps recent lookup outcomes in memory so repeated queries for
// the same drug do not hit the upstreams again.
package cache

import (
	"time"

	"github.com/giygas/medlookup-api/entities"
	"github.com/giygas/medlookup-api/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ResultCache is a size bounded, TTL expiring cache keyed by normalized name.
// A nil *ResultCache is valid and never caches anything.
type ResultCache struct {
	lru *expirable.LRU[string, entities.Outcome]
}

// New returns a cache holding at most size outcomes for ttl each. A size of 0
// disables caching and returns nil.
func New(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		return nil
	}
	return &ResultCache{lru: expirable.NewLRU[string, entities.Outcome](size, nil, ttl)}
}

// Get returns a deep copy of the cached outcome for key
func (c *ResultCache) Get(key string) (*entities.Outcome, bool) {
	if c == nil {
		return nil, false
	}
	outcome, ok := c.lru.Get(key)
	if !ok {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	clone := outcome.Clone()
	return &clone, true
}

// Put stores a deep copy of outcome under key. Failed lookups are transient
// and never cached.
func (c *ResultCache) Put(key string, outcome *entities.Outcome) {
	if c == nil || outcome == nil || outcome.Status == entities.StatusLookupFailed {
		return
	}
	c.lru.Add(key, outcome.Clone())
}

// Purge drops every entry, used after the fallback table changes
func (c *ResultCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len returns the number of live entries
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

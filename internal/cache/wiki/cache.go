// Package wiki is the Result Cache: a bounded, TTL-based in-memory store of
// finished wikis keyed by case-insensitive owner/repo.
package wiki

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"repowiki/internal/types"
)

const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 50
)

// Cache is safe for concurrent use. Stored wikis are shared and must not be
// mutated by readers.
type Cache struct {
	lru *expirable.LRU[string, *types.Wiki]
}

func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lru: expirable.NewLRU[string, *types.Wiki](maxEntries, nil, ttl)}
}

// Key normalizes owner and repo into the cache key.
func Key(owner, repo string) string {
	return strings.ToLower(owner) + "/" + strings.ToLower(repo)
}

// Get returns the wiki for owner/repo. Expired entries are reported absent.
func (c *Cache) Get(owner, repo string) (*types.Wiki, bool) {
	return c.lru.Get(Key(owner, repo))
}

// Put stores w, evicting the least recently used entry when full.
func (c *Cache) Put(owner, repo string, w *types.Wiki) {
	if w == nil {
		return
	}
	c.lru.Add(Key(owner, repo), w)
}

func (c *Cache) Len() int { return c.lru.Len() }

func (c *Cache) Purge() { c.lru.Purge() }

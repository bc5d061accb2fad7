// Package viewcache caches server-backed views (cart, wishlist, catalog) with
// TTL expiry, LRU eviction and tag invalidation.
package viewcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"storefront/internal/model"
)

// Tags shared by the gateways and the sync engine.
const (
	TagCart     = "cart"
	TagWishlist = "wishlist"
	TagCatalog  = "catalog"
	TagDelivery = "delivery"
)

// DefaultTTL applies when Config.TTL is zero.
const DefaultTTL = 5 * time.Minute

// MaxEntries limits the number of cached views (LRU eviction).
const MaxEntries = 256

// Config contains cache configuration.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	Now        func() time.Time // test clock
	Logger     *slog.Logger
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	accessList []string // LRU tracking: most recent at end

	// generations count invalidations per tag; epoch counts Clear calls.
	// A load that straddles either is not stored.
	generations map[string]uint64
	epoch       uint64

	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger
}

type entry struct {
	value     any
	tags      []string
	expiresAt time.Time
}

// New creates a cache. Zero config fields take defaults.
func New(cfg Config) *Cache {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = MaxEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		entries:     make(map[string]*entry),
		accessList:  make([]string, 0, cfg.MaxEntries),
		generations: make(map[string]uint64),
		ttl:         cfg.TTL,
		maxEntries:  cfg.MaxEntries,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
}

// Get returns a fresh value for key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.expiresAt.After(c.now()) {
		return nil, false
	}
	c.recordAccessLocked(key)
	return e.value, true
}

// Set stores value under key with the given tags.
func (c *Cache) Set(key string, value any, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, tags)
}

func (c *Cache) setLocked(key string, value any, tags []string) {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry{
		value:     value,
		tags:      slices.Clone(tags),
		expiresAt: c.now().Add(c.ttl),
	}
	c.recordAccessLocked(key)
}

// InvalidateTags drops every entry carrying any of tags and returns how many went.
func (c *Cache) InvalidateTags(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range tags {
		c.generations[t]++
	}
	dropped := 0
	for key, e := range c.entries {
		if slices.ContainsFunc(e.tags, func(t string) bool { return slices.Contains(tags, t) }) {
			delete(c.entries, key)
			c.accessList = slices.DeleteFunc(c.accessList, func(k string) bool { return k == key })
			dropped++
		}
	}
	if dropped > 0 {
		c.logger.Debug("views invalidated", "tags", tags, "dropped", dropped)
	}
	return dropped
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.accessList = make([]string, 0, c.maxEntries)
	c.epoch++
}

// Len reports the number of stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// version snapshots the invalidation state of tags.
func (c *Cache) version(tags []string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := c.epoch
	for _, t := range tags {
		v += c.generations[t]
	}
	return v
}

// setIfUnchanged stores value only when no invalidation of tags happened since
// version was taken.
func (c *Cache) setIfUnchanged(key string, value any, tags []string, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.epoch
	for _, t := range tags {
		v += c.generations[t]
	}
	if v != version {
		return false
	}
	c.setLocked(key, value, tags)
	return true
}

// stale returns an expired-but-present value for best-effort fallback.
func (c *Cache) stale(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) recordAccessLocked(key string) {
	if i := slices.Index(c.accessList, key); i >= 0 {
		c.accessList = slices.Delete(c.accessList, i, i+1)
	}
	c.accessList = append(c.accessList, key)
}

func (c *Cache) evictOldestLocked() {
	if len(c.accessList) == 0 {
		return
	}
	oldest := c.accessList[0]
	c.accessList = c.accessList[1:]
	delete(c.entries, oldest)
}

// Fetch returns the cached view for key, loading and caching it on a miss.
// When the load fails and an expired entry exists, the expired value is returned
// (best effort), except for auth failures, which must reach the caller.
// Invalidated entries are gone and never served. A load that was in flight while
// its tags were invalidated is returned to its caller but not cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	version := c.version(tags)
	v, err := load(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrUnauthorized) {
			if old, ok := c.stale(key); ok {
				if typed, ok := old.(T); ok {
					c.logger.Warn("serving stale view", "key", key, "error", err)
					return typed, nil
				}
			}
		}
		var zero T
		return zero, fmt.Errorf("load %s: %w", key, err)
	}

	if !c.setIfUnchanged(key, v, tags, version) {
		c.logger.Debug("discarding view loaded across invalidation", "key", key)
	}
	return v, nil
}

package standardize

import (
	"context"
	"sync"
	"time"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

// ProfileStore loads standardization profiles from storage
type ProfileStore interface {
	GetByPlatform(ctx context.Context, platform string) (*models.StandardizationProfile, error)
}

// ProfileCache caches standardization profiles per platform. Profiles change
// rarely; a short TTL keeps admin edits visible without a read per metric
// row.
type ProfileCache struct {
	cache  map[string]*profileEntry
	mu     sync.RWMutex
	store  ProfileStore
	ttl    time.Duration
	hits   int64
	misses int64
}

type profileEntry struct {
	profile   *models.StandardizationProfile
	expiresAt time.Time
}

// NewProfileCache creates a profile cache backed by the given store
func NewProfileCache(store ProfileStore, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProfileCache{
		cache: make(map[string]*profileEntry),
		store: store,
		ttl:   ttl,
	}
}

// Get returns the profile for a platform, or nil when none is registered
func (c *ProfileCache) Get(ctx context.Context, platform string) (*models.StandardizationProfile, error) {
	c.mu.RLock()
	entry, exists := c.cache[platform]
	c.mu.RUnlock()

	if exists && time.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry.profile, nil
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()

	profile, err := c.store.GetByPlatform(ctx, platform)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		// Absence is not cached; a profile registered moments later
		// must take effect immediately.
		return nil, nil
	}

	c.mu.Lock()
	c.cache[platform] = &profileEntry{
		profile:   profile,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return profile, nil
}

// Invalidate removes a platform's profile from the cache
func (c *ProfileCache) Invalidate(platform string) {
	c.mu.Lock()
	delete(c.cache, platform)
	c.mu.Unlock()
}

// Clear removes all entries from the cache
func (c *ProfileCache) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]*profileEntry)
	c.mu.Unlock()
}

// CacheStats returns cache hit/miss counters
type CacheStats struct {
	Size   int
	Hits   int64
	Misses int64
}

func (c *ProfileCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Size:   len(c.cache),
		Hits:   c.hits,
		Misses: c.misses,
	}
}

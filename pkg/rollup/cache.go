package rollup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/redis"
)

// Cache stores computed family metrics keyed by root, period and data
// versions. A lookup miss is normal; failures degrade to recomputation.
type Cache interface {
	Get(ctx context.Context, key string) (*models.FamilyMetrics, bool)
	Set(ctx context.Context, key string, value *models.FamilyMetrics)
}

// CacheKey builds the version-tagged cache key for one rollup. Any edge
// mutation or metric upsert for the creator bumps a version and orphans old
// entries; the TTL reclaims them.
func CacheKey(rootID string, period models.Period, graphVersion, metricsVersion int64) string {
	return fmt.Sprintf("rollup:%s:%s:%s:g%d:m%d",
		rootID,
		period.Start.UTC().Format("2006-01-02"),
		period.End.UTC().Format("2006-01-02"),
		graphVersion,
		metricsVersion,
	)
}

// RedisCache is the production Cache backed by Redis with a TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger ectologger.Logger
}

// NewRedisCache creates a Redis-backed rollup cache
func NewRedisCache(client *redis.Client, ttl time.Duration, logger ectologger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.FamilyMetrics, bool) {
	raw, err := c.client.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Rollup cache read failed")
		return nil, false
	}

	var result models.FamilyMetrics
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Rollup cache entry is corrupt, dropping")
		_ = c.client.Del(ctx, key)
		return nil, false
	}
	return &result, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value *models.FamilyMetrics) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to marshal rollup cache entry")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Rollup cache write failed")
	}
}

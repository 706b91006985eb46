package insights

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

// Cache stores generated insight lists. Failures degrade to regeneration.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.Insight, bool)
	Set(ctx context.Context, key string, value []models.Insight)
}

// CacheKey builds the version-tagged cache key for one entity's insights
func CacheKey(entityType, entityID string, period models.Period, graphVersion, metricsVersion int64) string {
	return fmt.Sprintf("insights:%s:%s:%s:%s:g%d:m%d",
		entityType,
		entityID,
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

// NewRedisCache creates a Redis-backed insight cache
func NewRedisCache(client *redis.Client, ttl time.Duration, logger ectologger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.Insight, bool) {
	raw, err := c.client.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Insight cache read failed")
		return nil, false
	}

	var result []models.Insight
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Insight cache entry is corrupt, dropping")
		_ = c.client.Del(ctx, key)
		return nil, false
	}
	return result, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []models.Insight) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to marshal insight cache entry")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Insight cache write failed")
	}
}

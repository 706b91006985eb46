package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// VersionTracker keeps per-creator graph and metrics version counters. Every
// edge mutation bumps the graph version and every metric upsert bumps the
// metrics version, so rollup cache keys built from both go stale the moment
// underlying data changes. A missing counter reads as 0.
type VersionTracker struct {
	client *Client
}

// NewVersionTracker creates a version tracker
func NewVersionTracker(client *Client) *VersionTracker {
	return &VersionTracker{client: client}
}

func graphVersionKey(creatorID string) string {
	return "version:graph:" + creatorID
}

func metricsVersionKey(creatorID string) string {
	return "version:metrics:" + creatorID
}

// BumpGraphVersion increments the creator's graph version
func (v *VersionTracker) BumpGraphVersion(ctx context.Context, creatorID string) error {
	_, err := v.client.Incr(ctx, graphVersionKey(creatorID))
	return err
}

// BumpMetricsVersion increments the creator's metrics version
func (v *VersionTracker) BumpMetricsVersion(ctx context.Context, creatorID string) error {
	_, err := v.client.Incr(ctx, metricsVersionKey(creatorID))
	return err
}

// GetVersions returns the creator's current graph and metrics versions
func (v *VersionTracker) GetVersions(ctx context.Context, creatorID string) (int64, int64, error) {
	graphVersion, err := v.getCounter(ctx, graphVersionKey(creatorID))
	if err != nil {
		return 0, 0, err
	}
	metricsVersion, err := v.getCounter(ctx, metricsVersionKey(creatorID))
	if err != nil {
		return 0, 0, err
	}
	return graphVersion, metricsVersion, nil
}

func (v *VersionTracker) getCounter(ctx context.Context, key string) (int64, error) {
	value, err := v.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

// Package rollup computes family-level metric aggregates with
// audience-overlap deduplication.
package rollup

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/metrics"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/standardize"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// FamilyResolver resolves the family containing a node
type FamilyResolver interface {
	GetFamily(ctx context.Context, creatorID, contentID string) (*models.ContentFamily, error)
}

// MetricStore loads raw daily metrics for a content item
type MetricStore interface {
	ListByContentAndPeriod(ctx context.Context, contentID string, period models.Period) ([]models.DailyMetric, error)
}

// OverlapStore loads the creator's stored pairwise platform overlaps
type OverlapStore interface {
	ListByCreator(ctx context.Context, creatorID string) ([]models.AudienceOverlap, error)
}

// Standardizer converts a raw metric row into canonical units
type Standardizer interface {
	Standardize(ctx context.Context, platform string, metric *models.DailyMetric) (*models.StandardizedDailyMetric, error)
}

// VersionReader reads the creator's current data versions for cache keying
type VersionReader interface {
	GetVersions(ctx context.Context, creatorID string) (graphVersion int64, metricsVersion int64, err error)
}

// Emitter publishes computed rollups for downstream consumers. Best-effort.
type Emitter interface {
	EmitRollupComputed(ctx context.Context, creatorID string, result *models.FamilyMetrics) error
}

// Engine rolls a family's standardized metrics up into one FamilyMetrics
type Engine struct {
	graph        FamilyResolver
	metricStore  MetricStore
	overlaps     OverlapStore
	standardizer Standardizer
	versions     VersionReader
	cache        Cache
	emitter      Emitter
	logger       ectologger.Logger
}

// NewEngine creates a rollup engine. Cache may be nil to always recompute;
// emitter may be nil to skip event emission.
func NewEngine(graph FamilyResolver, metricStore MetricStore, overlaps OverlapStore, standardizer Standardizer, versions VersionReader, cache Cache, emitter Emitter, logger ectologger.Logger) *Engine {
	return &Engine{
		graph:        graph,
		metricStore:  metricStore,
		overlaps:     overlaps,
		standardizer: standardizer,
		versions:     versions,
		cache:        cache,
		emitter:      emitter,
		logger:       logger,
	}
}

// ComputeFamilyMetrics resolves the family containing contentID, sums each
// member's standardized metrics over the period, dedups reach by audience
// overlap and computes growth against the prior equal-length period. A
// member whose metrics are missing or unstandardizable contributes zero and
// flips Partial; it never fails the query.
func (e *Engine) ComputeFamilyMetrics(ctx context.Context, creatorID, contentID string, period models.Period) (*models.FamilyMetrics, error) {
	ctx, span := tracing.StartSpan(ctx, "rollup.Engine.ComputeFamilyMetrics")
	defer span.End()

	start := time.Now()
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"creator_id": creatorID,
		"content_id": contentID,
	})

	graphVersion, metricsVersion, verr := e.versions.GetVersions(ctx, creatorID)
	if verr != nil {
		log.WithError(verr).Warn("Failed to read data versions, computing uncached")
	}

	family, err := e.graph.GetFamily(ctx, creatorID, contentID)
	if err != nil {
		metrics.RecordFamilyRollup("error", time.Since(start).Seconds())
		return nil, err
	}

	// Without versions the key cannot be trusted for reads or writes; a
	// stale entry under the zero-value key would outlive its invalidation
	useCache := e.cache != nil && verr == nil
	var cacheKey string
	if useCache {
		cacheKey = CacheKey(family.RootID, period, graphVersion, metricsVersion)
		if cached, ok := e.cache.Get(ctx, cacheKey); ok {
			metrics.RecordRollupCache("hit")
			return cached, nil
		}
		metrics.RecordRollupCache("miss")
	}

	result, err := e.compute(ctx, creatorID, family, period)
	if err != nil {
		metrics.RecordFamilyRollup("error", time.Since(start).Seconds())
		return nil, err
	}

	if useCache {
		e.cache.Set(ctx, cacheKey, result)
	}

	if e.emitter != nil {
		if err := e.emitter.EmitRollupComputed(ctx, creatorID, result); err != nil {
			log.WithError(err).Warn("Failed to emit rollup.computed event")
		}
	}

	metrics.RecordFamilyRollup("ok", time.Since(start).Seconds())
	return result, nil
}

func (e *Engine) compute(ctx context.Context, creatorID string, family *models.ContentFamily, period models.Period) (*models.FamilyMetrics, error) {
	result := &models.FamilyMetrics{
		RootContentID:        family.RootID,
		Period:               period,
		NodeMetrics:          make([]models.NodeMetrics, 0, len(family.Nodes)),
		PlatformBreakdown:    make([]models.BreakdownEntry, 0, 4),
		ContentTypeBreakdown: make([]models.BreakdownEntry, 0, 4),
		ContentCount:         len(family.Nodes),
		ComputedAt:           time.Now().UTC(),
	}

	platformViews := make(map[string]float64)
	platformAgg := make(map[string]*models.AggregateMetrics)
	contentTypeAgg := make(map[string]*models.AggregateMetrics)

	for _, node := range family.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nodeAgg, partial := e.aggregateNode(ctx, node, period)
		if partial {
			result.Partial = true
		}

		result.Aggregate.Add(nodeAgg)
		platformViews[node.Platform] += nodeAgg.Views

		if agg, ok := platformAgg[node.Platform]; ok {
			agg.Add(nodeAgg)
		} else {
			copied := nodeAgg
			platformAgg[node.Platform] = &copied
		}
		if agg, ok := contentTypeAgg[node.ContentType]; ok {
			agg.Add(nodeAgg)
		} else {
			copied := nodeAgg
			contentTypeAgg[node.ContentType] = &copied
		}

		result.NodeMetrics = append(result.NodeMetrics, models.NodeMetrics{
			ContentID:   node.ID,
			Platform:    node.Platform,
			ContentType: node.ContentType,
			Metrics:     nodeAgg,
		})
	}

	result.Aggregate.EngagementRate = safeRate(result.Aggregate.Engagements, result.Aggregate.Views)
	result.PlatformCount = len(platformViews)

	// Overlap dedup: discount the raw view total by the estimated share of
	// the audience counted on more than one platform.
	overlaps, err := e.overlaps.ListByCreator(ctx, creatorID)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Failed to load audience overlaps, assuming none")
		result.Partial = true
		overlaps = nil
	}
	result.EstimatedDuplication = EstimateDuplication(platformViews, overlaps)
	result.UniqueReachEstimate = result.Aggregate.Views * (1 - result.EstimatedDuplication)

	result.Aggregate.Growth = e.computeGrowth(ctx, family, period, result.Aggregate)

	result.PlatformBreakdown = buildBreakdown(platformAgg, result.Aggregate.Views)
	result.ContentTypeBreakdown = buildBreakdown(contentTypeAgg, result.Aggregate.Views)

	return result, nil
}

// aggregateNode sums one member's standardized rows for the period. Returns
// partial=true when rows were missing or skipped.
func (e *Engine) aggregateNode(ctx context.Context, node models.ContentNode, period models.Period) (models.AggregateMetrics, bool) {
	var agg models.AggregateMetrics
	partial := false

	rows, err := e.metricStore.ListByContentAndPeriod(ctx, node.ID, period)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("content_id", node.ID).Warn("Failed to load metrics for family member, treating as zero")
		return agg, true
	}
	if len(rows) == 0 {
		return agg, true
	}

	for i := range rows {
		standardized, err := e.standardizer.Standardize(ctx, node.Platform, &rows[i])
		if err != nil {
			if !standardize.IsUnknownPlatform(err) {
				e.logger.WithContext(ctx).WithError(err).WithField("content_id", node.ID).Warn("Failed to standardize metric row, skipping")
			}
			partial = true
			continue
		}
		agg.Add(models.AggregateMetrics{
			Views:        standardized.Views,
			Engagements:  standardized.Engagements,
			Shares:       standardized.Shares,
			Comments:     standardized.Comments,
			Likes:        standardized.Likes,
			ContentValue: standardized.ContentValue,
		})
	}

	agg.EngagementRate = safeRate(agg.Engagements, agg.Views)
	return agg, partial
}

// computeGrowth compares the family totals against the prior equal-length
// period, metric by metric. A zero previous value reports 0 growth, never
// infinity.
func (e *Engine) computeGrowth(ctx context.Context, family *models.ContentFamily, period models.Period, current models.AggregateMetrics) map[string]float64 {
	var previous models.AggregateMetrics
	previousPeriod := period.Previous()

	for _, node := range family.Nodes {
		nodeAgg, _ := e.aggregateNode(ctx, node, previousPeriod)
		previous.Add(nodeAgg)
	}

	return map[string]float64{
		"views":         growthRate(current.Views, previous.Views),
		"engagements":   growthRate(current.Engagements, previous.Engagements),
		"shares":        growthRate(current.Shares, previous.Shares),
		"comments":      growthRate(current.Comments, previous.Comments),
		"likes":         growthRate(current.Likes, previous.Likes),
		"content_value": growthRate(current.ContentValue, previous.ContentValue),
	}
}

func buildBreakdown(aggs map[string]*models.AggregateMetrics, totalViews float64) []models.BreakdownEntry {
	entries := make([]models.BreakdownEntry, 0, len(aggs))
	for key, agg := range aggs {
		agg.EngagementRate = safeRate(agg.Engagements, agg.Views)
		entries = append(entries, models.BreakdownEntry{
			Key:     key,
			Metrics: *agg,
			Share:   safeRate(agg.Views, totalViews),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Metrics.Views != entries[j].Metrics.Views {
			return entries[i].Metrics.Views > entries[j].Metrics.Views
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

func safeRate(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func growthRate(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous
}

package rollup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/standardize"
)

func newTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type stubResolver struct {
	family *models.ContentFamily
}

func (r *stubResolver) GetFamily(ctx context.Context, creatorID, contentID string) (*models.ContentFamily, error) {
	return r.family, nil
}

type memMetricStore struct {
	rows map[string][]models.DailyMetric
}

func (s *memMetricStore) ListByContentAndPeriod(ctx context.Context, contentID string, period models.Period) ([]models.DailyMetric, error) {
	var out []models.DailyMetric
	for _, row := range s.rows[contentID] {
		if period.Contains(row.Date) {
			out = append(out, row)
		}
	}
	return out, nil
}

type memOverlapStore struct {
	overlaps []models.AudienceOverlap
}

func (s *memOverlapStore) ListByCreator(ctx context.Context, creatorID string) ([]models.AudienceOverlap, error) {
	return s.overlaps, nil
}

// passthroughStandardizer treats raw fields as already canonical; platforms
// listed in unknown fail closed like the real engine
type passthroughStandardizer struct {
	unknown map[string]bool
	calls   int
}

func (s *passthroughStandardizer) Standardize(ctx context.Context, platform string, metric *models.DailyMetric) (*models.StandardizedDailyMetric, error) {
	s.calls++
	if s.unknown[platform] {
		return nil, standardize.NewUnknownPlatformError(platform)
	}
	raw := metric.Raw.Data
	return &models.StandardizedDailyMetric{
		ContentID:    metric.ContentID,
		Platform:     platform,
		Date:         metric.Date,
		Views:        raw["views"],
		Engagements:  raw["engagements"],
		Shares:       raw["shares"],
		Comments:     raw["comments"],
		Likes:        raw["likes"],
		ContentValue: raw["content_value"],
	}, nil
}

type stubVersions struct {
	graph   int64
	metrics int64
	err     error
}

func (v *stubVersions) GetVersions(ctx context.Context, creatorID string) (int64, int64, error) {
	if v.err != nil {
		return 0, 0, v.err
	}
	return v.graph, v.metrics, nil
}

type stubRollupEmitter struct {
	emitted []string
	err     error
}

func (e *stubRollupEmitter) EmitRollupComputed(_ context.Context, creatorID string, _ *models.FamilyMetrics) error {
	if e.err != nil {
		return e.err
	}
	e.emitted = append(e.emitted, creatorID)
	return nil
}

type memCache struct {
	entries map[string]*models.FamilyMetrics
}

func (c *memCache) Get(ctx context.Context, key string) (*models.FamilyMetrics, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *memCache) Set(ctx context.Context, key string, value *models.FamilyMetrics) {
	c.entries[key] = value
}

func day(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func metricRow(contentID string, date time.Time, raw map[string]float64) models.DailyMetric {
	return models.DailyMetric{
		ID:        fmt.Sprintf("%s-%s", contentID, date.Format("2006-01-02")),
		ContentID: contentID,
		Date:      date,
		Raw:       database.JSONB[map[string]float64]{Data: raw},
	}
}

func familyNode(id, platform, contentType string) models.ContentNode {
	return models.ContentNode{
		ID:          id,
		CreatorID:   "creator-1",
		Platform:    platform,
		ContentType: contentType,
		ExternalID:  "ext-" + id,
	}
}

// twoNodeFixture is the documented example: root R on platform A
// (views=1000, engagements=100), derivative D on platform B (views=500,
// engagements=80), overlap A<->B = 20%.
func twoNodeFixture() (*stubResolver, *memMetricStore, *memOverlapStore) {
	resolver := &stubResolver{family: &models.ContentFamily{
		RootID: "R",
		Nodes: []models.ContentNode{
			familyNode("R", "platform-a", "video"),
			familyNode("D", "platform-b", "clip"),
		},
		Edges: []models.RelationshipEdge{{
			ID: "e1", CreatorID: "creator-1", SourceID: "R", TargetID: "D",
			RelationshipType: models.RelationshipTypeClip, Confidence: 0.9,
		}},
	}}

	metricStore := &memMetricStore{rows: map[string][]models.DailyMetric{
		"R": {metricRow("R", day(5), map[string]float64{"views": 1000, "engagements": 100})},
		"D": {metricRow("D", day(6), map[string]float64{"views": 500, "engagements": 80})},
	}}

	overlapStore := &memOverlapStore{overlaps: []models.AudienceOverlap{{
		ID: "o1", CreatorID: "creator-1", PlatformA: "platform-a", PlatformB: "platform-b", Overlap: 0.2,
	}}}

	return resolver, metricStore, overlapStore
}

func augustPeriod() models.Period {
	return models.Period{Start: day(1), End: day(11)}
}

func newTestEngine(resolver *stubResolver, metricStore *memMetricStore, overlapStore *memOverlapStore, cache Cache) (*Engine, *passthroughStandardizer) {
	standardizer := &passthroughStandardizer{}
	engine := NewEngine(resolver, metricStore, overlapStore, standardizer, &stubVersions{graph: 1, metrics: 1}, cache, nil, newTestLogger())
	return engine, standardizer
}

func TestComputeFamilyMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("rolls up the documented two platform example", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		engine, _ := newTestEngine(resolver, metricStore, overlapStore, nil)

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)

		assert.Equal(t, "R", result.RootContentID)
		assert.Equal(t, float64(1500), result.Aggregate.Views)
		assert.Equal(t, float64(180), result.Aggregate.Engagements)
		assert.InDelta(t, 0.12, result.Aggregate.EngagementRate, 1e-9)
		assert.Equal(t, 2, result.ContentCount)
		assert.Equal(t, 2, result.PlatformCount)
		assert.False(t, result.Partial)

		// duplication = 0.2 * min(1000, 500) / 1500
		assert.InDelta(t, 0.2*500/1500, result.EstimatedDuplication, 1e-9)
		assert.InDelta(t, 1500*(1-0.2*500/1500), result.UniqueReachEstimate, 1e-9)
		assert.InDelta(t, 1400, result.UniqueReachEstimate, 1)
	})

	t.Run("unique reach equals total views when overlaps are zero", func(t *testing.T) {
		resolver, metricStore, _ := twoNodeFixture()
		engine, _ := newTestEngine(resolver, metricStore, &memOverlapStore{}, nil)

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		assert.Equal(t, result.Aggregate.Views, result.UniqueReachEstimate)
	})

	t.Run("unique reach never exceeds total views", func(t *testing.T) {
		resolver, metricStore, _ := twoNodeFixture()
		// pathological full overlap
		overlapStore := &memOverlapStore{overlaps: []models.AudienceOverlap{{
			CreatorID: "creator-1", PlatformA: "platform-a", PlatformB: "platform-b", Overlap: 1.0,
		}}}
		engine, _ := newTestEngine(resolver, metricStore, overlapStore, nil)

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		assert.LessOrEqual(t, result.UniqueReachEstimate, result.Aggregate.Views)
		assert.GreaterOrEqual(t, result.EstimatedDuplication, 0.0)
		assert.LessOrEqual(t, result.EstimatedDuplication, 1.0)
	})

	t.Run("family totals bound each member", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		engine, _ := newTestEngine(resolver, metricStore, overlapStore, nil)

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)

		var maxNode, sum float64
		for _, node := range result.NodeMetrics {
			if node.Metrics.Views > maxNode {
				maxNode = node.Metrics.Views
			}
			sum += node.Metrics.Views
		}
		assert.GreaterOrEqual(t, result.Aggregate.Views, maxNode)
		assert.LessOrEqual(t, result.Aggregate.Views, sum)
	})

	t.Run("all zero input stays finite", func(t *testing.T) {
		resolver := &stubResolver{family: &models.ContentFamily{
			RootID: "R",
			Nodes:  []models.ContentNode{familyNode("R", "platform-a", "video")},
		}}
		metricStore := &memMetricStore{rows: map[string][]models.DailyMetric{
			"R": {metricRow("R", day(5), map[string]float64{"views": 0, "engagements": 0})},
		}}
		engine, _ := newTestEngine(resolver, metricStore, &memOverlapStore{}, nil)

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)

		assert.Equal(t, 0.0, result.Aggregate.EngagementRate)
		assert.Equal(t, 0.0, result.EstimatedDuplication)
		assert.Equal(t, 0.0, result.UniqueReachEstimate)
		for _, growth := range result.Aggregate.Growth {
			assert.False(t, growth != growth, "growth must never be NaN")
		}
	})

	t.Run("missing member metrics flag partial without failing", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		delete(metricStore.rows, "D")
		engine, _ := newTestEngine(resolver, metricStore, overlapStore, nil)

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)

		assert.True(t, result.Partial)
		assert.Equal(t, float64(1000), result.Aggregate.Views, "missing member contributes zero")
	})

	t.Run("unstandardizable platform flags partial and skips the row", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		standardizer := &passthroughStandardizer{unknown: map[string]bool{"platform-b": true}}
		engine := NewEngine(resolver, metricStore, overlapStore, standardizer, &stubVersions{}, nil, nil, newTestLogger())

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)

		assert.True(t, result.Partial)
		assert.Equal(t, float64(1000), result.Aggregate.Views)
	})

	t.Run("computes growth against the prior equal-length period", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		// prior period: July 22 - 31
		metricStore.rows["R"] = append(metricStore.rows["R"],
			metricRow("R", time.Date(2026, 7, 25, 0, 0, 0, 0, time.UTC), map[string]float64{"views": 500, "engagements": 90}))
		engine, _ := newTestEngine(resolver, metricStore, overlapStore, nil)

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)

		assert.InDelta(t, (1500.0-500.0)/500.0, result.Aggregate.Growth["views"], 1e-9)
		assert.InDelta(t, (180.0-90.0)/90.0, result.Aggregate.Growth["engagements"], 1e-9)
		assert.Equal(t, 0.0, result.Aggregate.Growth["shares"], "zero previous reports zero growth")
	})

	t.Run("breakdowns carry view share", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		engine, _ := newTestEngine(resolver, metricStore, overlapStore, nil)

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)

		require.Len(t, result.PlatformBreakdown, 2)
		assert.Equal(t, "platform-a", result.PlatformBreakdown[0].Key, "sorted by views descending")
		assert.InDelta(t, 1000.0/1500.0, result.PlatformBreakdown[0].Share, 1e-9)

		require.Len(t, result.ContentTypeBreakdown, 2)
		assert.Equal(t, "video", result.ContentTypeBreakdown[0].Key)
	})

	t.Run("serves repeat queries from the cache", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		cache := &memCache{entries: map[string]*models.FamilyMetrics{}}
		engine, standardizer := newTestEngine(resolver, metricStore, overlapStore, cache)

		_, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		callsAfterFirst := standardizer.calls

		_, err = engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		assert.Equal(t, callsAfterFirst, standardizer.calls, "second query must not recompute")
	})

	t.Run("a version bump invalidates the cache key", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		cache := &memCache{entries: map[string]*models.FamilyMetrics{}}
		versions := &stubVersions{graph: 1, metrics: 1}
		standardizer := &passthroughStandardizer{}
		engine := NewEngine(resolver, metricStore, overlapStore, standardizer, versions, cache, nil, newTestLogger())

		_, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		callsAfterFirst := standardizer.calls

		versions.metrics = 2
		_, err = engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		assert.Greater(t, standardizer.calls, callsAfterFirst, "new version must recompute")
	})

	t.Run("skips the cache entirely when the version read fails", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		cache := &memCache{entries: map[string]*models.FamilyMetrics{}}
		standardizer := &passthroughStandardizer{}
		versions := &stubVersions{err: fmt.Errorf("redis down")}
		engine := NewEngine(resolver, metricStore, overlapStore, standardizer, versions, cache, nil, newTestLogger())

		_, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		callsAfterFirst := standardizer.calls

		_, err = engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)

		assert.Greater(t, standardizer.calls, callsAfterFirst, "unversioned queries must recompute")
		assert.Empty(t, cache.entries, "nothing may be cached under an untrusted key")
	})

	t.Run("emits a rollup event on compute but not on cache hit", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		cache := &memCache{entries: map[string]*models.FamilyMetrics{}}
		emitter := &stubRollupEmitter{}
		standardizer := &passthroughStandardizer{}
		engine := NewEngine(resolver, metricStore, overlapStore, standardizer, &stubVersions{graph: 1, metrics: 1}, cache, emitter, newTestLogger())

		_, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		require.Equal(t, []string{"creator-1"}, emitter.emitted)

		_, err = engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		assert.Len(t, emitter.emitted, 1, "a cache hit is not a new computation")
	})

	t.Run("emit failure does not fail the query", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		emitter := &stubRollupEmitter{err: fmt.Errorf("broker down")}
		standardizer := &passthroughStandardizer{}
		engine := NewEngine(resolver, metricStore, overlapStore, standardizer, &stubVersions{graph: 1, metrics: 1}, nil, emitter, newTestLogger())

		result, err := engine.ComputeFamilyMetrics(ctx, "creator-1", "R", augustPeriod())
		require.NoError(t, err)
		assert.Equal(t, float64(1500), result.Aggregate.Views)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		resolver, metricStore, overlapStore := twoNodeFixture()
		engine, _ := newTestEngine(resolver, metricStore, overlapStore, nil)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := engine.ComputeFamilyMetrics(cancelled, "creator-1", "R", augustPeriod())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEstimateDuplication(t *testing.T) {
	t.Run("empty inputs are zero", func(t *testing.T) {
		assert.Equal(t, 0.0, EstimateDuplication(nil, nil))
		assert.Equal(t, 0.0, EstimateDuplication(map[string]float64{"a": 100}, nil))
	})

	t.Run("pairs missing from the family are ignored", func(t *testing.T) {
		views := map[string]float64{"a": 1000}
		overlaps := []models.AudienceOverlap{{PlatformA: "a", PlatformB: "b", Overlap: 0.5}}
		assert.Equal(t, 0.0, EstimateDuplication(views, overlaps))
	})

	t.Run("weights each pair by the smaller side", func(t *testing.T) {
		views := map[string]float64{"a": 1000, "b": 500}
		overlaps := []models.AudienceOverlap{{PlatformA: "a", PlatformB: "b", Overlap: 0.2}}
		assert.InDelta(t, 0.2*500/1500, EstimateDuplication(views, overlaps), 1e-9)
	})

	t.Run("clamps to one", func(t *testing.T) {
		views := map[string]float64{"a": 10, "b": 10, "c": 10}
		overlaps := []models.AudienceOverlap{
			{PlatformA: "a", PlatformB: "b", Overlap: 1},
			{PlatformA: "a", PlatformB: "c", Overlap: 1},
			{PlatformA: "b", PlatformB: "c", Overlap: 1},
		}
		assert.Equal(t, 1.0, EstimateDuplication(views, overlaps))
	})
}

package insights

import (
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

func newTestLogger(t *testing.T) ectologger.Logger {
	t.Helper()
	zl, err := zap.NewDevelopment()
	require.NoError(t, err)
	return zapadapter.NewZapEctoLogger(zl, nil)
}

func currentPeriod() models.Period {
	end := time.Now().UTC()
	return models.Period{Start: end.AddDate(0, 0, -30), End: end}
}

func baseFamily() *models.FamilyMetrics {
	return &models.FamilyMetrics{
		RootContentID: "root-1",
		Period:        currentPeriod(),
		Aggregate: models.AggregateMetrics{
			Views:          10000,
			Engagements:    500,
			EngagementRate: 0.05,
			Growth:         map[string]float64{},
		},
	}
}

func findByType(insights []models.Insight, insightType models.InsightType) *models.Insight {
	for i := range insights {
		if insights[i].InsightType == insightType {
			return &insights[i]
		}
	}
	return nil
}

func TestGenerator_Growth(t *testing.T) {
	gen := NewGenerator(DefaultConfig(), newTestLogger(t))

	t.Run("fires above threshold", func(t *testing.T) {
		family := baseFamily()
		family.Aggregate.Growth = map[string]float64{"views": 0.45}

		insights := gen.Generate("root-1", "family", family)

		insight := findByType(insights, models.InsightTypeGrowth)
		require.NotNil(t, insight)
		assert.Equal(t, "root-1", insight.EntityID)
		assert.Equal(t, "family", insight.EntityType)
		assert.Contains(t, insight.Title, "45%")
		assert.Equal(t, 0.45, insight.Metrics["growth_rate"])
		assert.Equal(t, 45, insight.Priority)
		assert.NotEmpty(t, insight.RecommendationActions)
	})

	t.Run("silent below threshold", func(t *testing.T) {
		family := baseFamily()
		family.Aggregate.Growth = map[string]float64{"views": 0.10}

		insights := gen.Generate("root-1", "family", family)

		assert.Nil(t, findByType(insights, models.InsightTypeGrowth))
	})

	t.Run("one insight per growing metric", func(t *testing.T) {
		family := baseFamily()
		family.Aggregate.Growth = map[string]float64{
			"views":       0.30,
			"engagements": 0.50,
			"shares":      0.05,
		}

		insights := gen.Generate("root-1", "family", family)

		count := 0
		for _, insight := range insights {
			if insight.InsightType == models.InsightTypeGrowth {
				count++
			}
		}
		assert.Equal(t, 2, count)
	})
}

func TestGenerator_PlatformConcentration(t *testing.T) {
	gen := NewGenerator(DefaultConfig(), newTestLogger(t))

	breakdown := func(topShare float64) []models.BreakdownEntry {
		return []models.BreakdownEntry{
			{Key: "platform-a", Metrics: models.AggregateMetrics{Views: topShare * 10000}, Share: topShare},
			{Key: "platform-b", Metrics: models.AggregateMetrics{Views: (1 - topShare) * 10000}, Share: 1 - topShare},
		}
	}

	t.Run("fires when one platform dominates", func(t *testing.T) {
		family := baseFamily()
		family.PlatformBreakdown = breakdown(0.85)

		insights := gen.Generate("root-1", "family", family)

		insight := findByType(insights, models.InsightTypePlatformConcentration)
		require.NotNil(t, insight)
		assert.Contains(t, insight.Title, "platform-a")
		assert.Equal(t, 0.85, insight.Metrics["share"])
		assert.Equal(t, 85, insight.Priority)
	})

	t.Run("silent on a balanced split", func(t *testing.T) {
		family := baseFamily()
		family.PlatformBreakdown = breakdown(0.55)

		insights := gen.Generate("root-1", "family", family)

		assert.Nil(t, findByType(insights, models.InsightTypePlatformConcentration))
	})

	t.Run("silent with a single platform", func(t *testing.T) {
		family := baseFamily()
		family.PlatformBreakdown = []models.BreakdownEntry{
			{Key: "platform-a", Metrics: models.AggregateMetrics{Views: 10000}, Share: 1.0},
		}

		insights := gen.Generate("root-1", "family", family)

		assert.Nil(t, findByType(insights, models.InsightTypePlatformConcentration))
	})
}

func TestGenerator_EngagementBenchmark(t *testing.T) {
	gen := NewGenerator(DefaultConfig(), newTestLogger(t))

	t.Run("flags a rate well above benchmark", func(t *testing.T) {
		family := baseFamily()
		family.Aggregate.EngagementRate = 0.10

		insights := gen.Generate("root-1", "family", family)

		insight := findByType(insights, models.InsightTypeEngagementBenchmark)
		require.NotNil(t, insight)
		assert.Contains(t, insight.Title, "beats")
		assert.Equal(t, 0.10, insight.Metrics["engagement_rate"])
	})

	t.Run("flags a rate well below benchmark", func(t *testing.T) {
		family := baseFamily()
		family.Aggregate.EngagementRate = 0.01

		insights := gen.Generate("root-1", "family", family)

		insight := findByType(insights, models.InsightTypeEngagementBenchmark)
		require.NotNil(t, insight)
		assert.Contains(t, insight.Title, "trails")
	})

	t.Run("silent near the benchmark", func(t *testing.T) {
		family := baseFamily()
		family.Aggregate.EngagementRate = 0.055

		insights := gen.Generate("root-1", "family", family)

		assert.Nil(t, findByType(insights, models.InsightTypeEngagementBenchmark))
	})

	t.Run("silent with zero views", func(t *testing.T) {
		family := baseFamily()
		family.Aggregate.Views = 0
		family.Aggregate.EngagementRate = 0

		insights := gen.Generate("root-1", "family", family)

		assert.Nil(t, findByType(insights, models.InsightTypeEngagementBenchmark))
	})
}

func TestGenerator_ContentTypeComparison(t *testing.T) {
	gen := NewGenerator(DefaultConfig(), newTestLogger(t))

	t.Run("flags an outperforming content type", func(t *testing.T) {
		family := baseFamily()
		family.ContentTypeBreakdown = []models.BreakdownEntry{
			{Key: "video", Metrics: models.AggregateMetrics{Views: 8000, EngagementRate: 0.04}, Share: 0.8},
			{Key: "clip", Metrics: models.AggregateMetrics{Views: 2000, EngagementRate: 0.12}, Share: 0.2},
		}

		insights := gen.Generate("root-1", "family", family)

		insight := findByType(insights, models.InsightTypeContentTypeComparison)
		require.NotNil(t, insight)
		assert.Contains(t, insight.Title, "Clip")
		assert.InDelta(t, 2.4, insight.Metrics["lift"], 0.001)
	})

	t.Run("silent when types perform alike", func(t *testing.T) {
		family := baseFamily()
		family.ContentTypeBreakdown = []models.BreakdownEntry{
			{Key: "video", Metrics: models.AggregateMetrics{Views: 8000, EngagementRate: 0.05}, Share: 0.8},
			{Key: "clip", Metrics: models.AggregateMetrics{Views: 2000, EngagementRate: 0.06}, Share: 0.2},
		}

		insights := gen.Generate("root-1", "family", family)

		assert.Nil(t, findByType(insights, models.InsightTypeContentTypeComparison))
	})

	t.Run("silent with a single content type", func(t *testing.T) {
		family := baseFamily()
		family.ContentTypeBreakdown = []models.BreakdownEntry{
			{Key: "video", Metrics: models.AggregateMetrics{Views: 10000, EngagementRate: 0.05}, Share: 1.0},
		}

		insights := gen.Generate("root-1", "family", family)

		assert.Nil(t, findByType(insights, models.InsightTypeContentTypeComparison))
	})
}

func TestGenerator_OrderingAndCap(t *testing.T) {
	t.Run("sorted by priority descending", func(t *testing.T) {
		gen := NewGenerator(DefaultConfig(), newTestLogger(t))
		family := baseFamily()
		family.Aggregate.Growth = map[string]float64{"views": 0.30}
		family.PlatformBreakdown = []models.BreakdownEntry{
			{Key: "platform-a", Metrics: models.AggregateMetrics{Views: 9000}, Share: 0.9},
			{Key: "platform-b", Metrics: models.AggregateMetrics{Views: 1000}, Share: 0.1},
		}

		insights := gen.Generate("root-1", "family", family)

		require.GreaterOrEqual(t, len(insights), 2)
		for i := 1; i < len(insights); i++ {
			assert.GreaterOrEqual(t, insights[i-1].Priority, insights[i].Priority)
		}
		assert.Equal(t, models.InsightTypePlatformConcentration, insights[0].InsightType)
	})

	t.Run("caps the list at MaxInsights", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxInsights = 2
		gen := NewGenerator(cfg, newTestLogger(t))

		family := baseFamily()
		family.Aggregate.EngagementRate = 0.15
		family.Aggregate.Growth = map[string]float64{
			"views":       0.30,
			"engagements": 0.40,
			"shares":      0.50,
		}

		insights := gen.Generate("root-1", "family", family)

		assert.Len(t, insights, 2)
	})

	t.Run("stale periods rank lower than fresh ones", func(t *testing.T) {
		gen := NewGenerator(DefaultConfig(), newTestLogger(t))

		fresh := baseFamily()
		fresh.Aggregate.Growth = map[string]float64{"views": 0.40}

		stale := baseFamily()
		stale.Period = models.Period{
			Start: time.Now().UTC().AddDate(0, 0, -120),
			End:   time.Now().UTC().AddDate(0, 0, -95),
		}
		stale.Aggregate.Growth = map[string]float64{"views": 0.40}

		freshInsight := findByType(gen.Generate("root-1", "family", fresh), models.InsightTypeGrowth)
		staleInsight := findByType(gen.Generate("root-1", "family", stale), models.InsightTypeGrowth)

		require.NotNil(t, freshInsight)
		require.NotNil(t, staleInsight)
		assert.Greater(t, freshInsight.Priority, staleInsight.Priority)
	})
}

// Package insights derives ranked, human-readable observations from family
// rollups. Rule-based on purpose: the same metrics always produce the same
// insights.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

// Config tunes the insight rules
type Config struct {
	// GrowthThreshold is the minimum growth rate that fires a growth
	// insight
	GrowthThreshold float64
	// ConcentrationShare is the view share above which one platform
	// counts as dominating the family
	ConcentrationShare float64
	// EngagementBenchmark is the engagement rate considered healthy
	EngagementBenchmark float64
	// MaxInsights caps the returned list
	MaxInsights int
}

// DefaultConfig returns the documented rule defaults
func DefaultConfig() Config {
	return Config{
		GrowthThreshold:     0.20,
		ConcentrationShare:  0.70,
		EngagementBenchmark: 0.05,
		MaxInsights:         10,
	}
}

// Generator turns family metrics into insights
type Generator struct {
	cfg    Config
	logger ectologger.Logger
}

// NewGenerator creates an insight generator
func NewGenerator(cfg Config, logger ectologger.Logger) *Generator {
	if cfg.GrowthThreshold <= 0 {
		cfg.GrowthThreshold = 0.20
	}
	if cfg.ConcentrationShare <= 0 {
		cfg.ConcentrationShare = 0.70
	}
	if cfg.EngagementBenchmark <= 0 {
		cfg.EngagementBenchmark = 0.05
	}
	if cfg.MaxInsights <= 0 {
		cfg.MaxInsights = 10
	}
	return &Generator{cfg: cfg, logger: logger}
}

// Generate runs every rule over the rollup and returns insights sorted by
// priority descending, capped at MaxInsights
func (g *Generator) Generate(entityID, entityType string, family *models.FamilyMetrics) []models.Insight {
	now := time.Now().UTC()
	recency := recencyFactor(family.Period, now)

	insights := make([]models.Insight, 0, 8)
	insights = append(insights, g.growthInsights(entityID, entityType, family, recency, now)...)
	insights = append(insights, g.concentrationInsights(entityID, entityType, family, recency, now)...)
	insights = append(insights, g.engagementInsights(entityID, entityType, family, recency, now)...)
	insights = append(insights, g.contentTypeInsights(entityID, entityType, family, recency, now)...)

	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].Priority != insights[j].Priority {
			return insights[i].Priority > insights[j].Priority
		}
		return insights[i].Title < insights[j].Title
	})

	if len(insights) > g.cfg.MaxInsights {
		insights = insights[:g.cfg.MaxInsights]
	}
	return insights
}

// growthInsights fires once per metric whose growth beats the threshold
func (g *Generator) growthInsights(entityID, entityType string, family *models.FamilyMetrics, recency float64, now time.Time) []models.Insight {
	out := make([]models.Insight, 0, 2)
	for metric, growth := range family.Aggregate.Growth {
		if growth < g.cfg.GrowthThreshold {
			continue
		}
		label := strings.ReplaceAll(metric, "_", " ")
		out = append(out, models.Insight{
			EntityID:    entityID,
			EntityType:  entityType,
			InsightType: models.InsightTypeGrowth,
			Title:       fmt.Sprintf("%s grew %.0f%% period over period", titleCase(label), growth*100),
			Description: fmt.Sprintf("This content family's %s increased %.0f%% compared to the previous period of the same length.", label, growth*100),
			Metrics: map[string]float64{
				"growth_rate": growth,
			},
			RecommendationActions: []string{
				fmt.Sprintf("Publish follow-up derivatives while %s momentum holds", label),
			},
			Priority:  priority(growth*100, recency),
			CreatedAt: now,
		})
	}
	return out
}

// concentrationInsights fires when one platform carries most of the views
func (g *Generator) concentrationInsights(entityID, entityType string, family *models.FamilyMetrics, recency float64, now time.Time) []models.Insight {
	if len(family.PlatformBreakdown) < 2 {
		return nil
	}
	top := family.PlatformBreakdown[0]
	if top.Share < g.cfg.ConcentrationShare {
		return nil
	}
	return []models.Insight{{
		EntityID:    entityID,
		EntityType:  entityType,
		InsightType: models.InsightTypePlatformConcentration,
		Title:       fmt.Sprintf("%.0f%% of views come from %s", top.Share*100, top.Key),
		Description: fmt.Sprintf("Views for this family are concentrated on %s. Reach on other platforms is underdeveloped relative to the audience there.", top.Key),
		Metrics: map[string]float64{
			"share": top.Share,
			"views": top.Metrics.Views,
		},
		RecommendationActions: []string{
			"Repurpose the family's strongest pieces for the smaller platforms",
		},
		Priority:  priority(top.Share*100, recency),
		CreatedAt: now,
	}}
}

// engagementInsights benchmarks the family engagement rate
func (g *Generator) engagementInsights(entityID, entityType string, family *models.FamilyMetrics, recency float64, now time.Time) []models.Insight {
	rate := family.Aggregate.EngagementRate
	if family.Aggregate.Views == 0 {
		return nil
	}

	delta := (rate - g.cfg.EngagementBenchmark) / g.cfg.EngagementBenchmark
	if math.Abs(delta) < 0.25 {
		// close enough to the benchmark is not worth surfacing
		return nil
	}

	insight := models.Insight{
		EntityID:    entityID,
		EntityType:  entityType,
		InsightType: models.InsightTypeEngagementBenchmark,
		Metrics: map[string]float64{
			"engagement_rate": rate,
			"benchmark":       g.cfg.EngagementBenchmark,
		},
		Priority:  priority(math.Abs(delta)*50, recency),
		CreatedAt: now,
	}

	if delta > 0 {
		insight.Title = fmt.Sprintf("Engagement rate %.1f%% beats the benchmark", rate*100)
		insight.Description = fmt.Sprintf("The family's engagement rate of %.1f%% is well above the %.1f%% benchmark.", rate*100, g.cfg.EngagementBenchmark*100)
		insight.RecommendationActions = []string{"Highlight this family in partnership pitches"}
	} else {
		insight.Title = fmt.Sprintf("Engagement rate %.1f%% trails the benchmark", rate*100)
		insight.Description = fmt.Sprintf("The family's engagement rate of %.1f%% is below the %.1f%% benchmark.", rate*100, g.cfg.EngagementBenchmark*100)
		insight.RecommendationActions = []string{"Test formats that drove engagement elsewhere in the catalog"}
	}
	return []models.Insight{insight}
}

// contentTypeInsights compares content types against the family average
func (g *Generator) contentTypeInsights(entityID, entityType string, family *models.FamilyMetrics, recency float64, now time.Time) []models.Insight {
	if len(family.ContentTypeBreakdown) < 2 || family.Aggregate.EngagementRate == 0 {
		return nil
	}

	var best *models.BreakdownEntry
	for i := range family.ContentTypeBreakdown {
		entry := &family.ContentTypeBreakdown[i]
		if entry.Metrics.Views == 0 {
			continue
		}
		if best == nil || entry.Metrics.EngagementRate > best.Metrics.EngagementRate {
			best = entry
		}
	}
	if best == nil {
		return nil
	}

	lift := best.Metrics.EngagementRate / family.Aggregate.EngagementRate
	if lift < 1.5 {
		return nil
	}

	return []models.Insight{{
		EntityID:    entityID,
		EntityType:  entityType,
		InsightType: models.InsightTypeContentTypeComparison,
		Title:       fmt.Sprintf("%s content engages %.1fx the family average", titleCase(best.Key), lift),
		Description: fmt.Sprintf("%s pieces in this family earn %.1f%% engagement against a family average of %.1f%%.", titleCase(best.Key), best.Metrics.EngagementRate*100, family.Aggregate.EngagementRate*100),
		Metrics: map[string]float64{
			"engagement_rate": best.Metrics.EngagementRate,
			"family_rate":     family.Aggregate.EngagementRate,
			"lift":            lift,
		},
		RecommendationActions: []string{
			fmt.Sprintf("Shift derivative production toward %s content", best.Key),
		},
		Priority:  priority(lift*20, recency),
		CreatedAt: now,
	}}
}

// priority combines rule magnitude with recency. Fresh periods outrank stale
// ones at equal magnitude.
func priority(magnitude, recency float64) int {
	p := int(math.Round(magnitude * recency))
	if p < 1 {
		p = 1
	}
	return p
}

// recencyFactor decays from 1.0 for a period ending now toward 0.5 for one
// ending 90+ days ago
func recencyFactor(period models.Period, now time.Time) float64 {
	if period.End.IsZero() {
		return 1.0
	}
	ageDays := now.Sub(period.End).Hours() / 24
	if ageDays <= 0 {
		return 1.0
	}
	if ageDays >= 90 {
		return 0.5
	}
	return 1.0 - ageDays/180
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

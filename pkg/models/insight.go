package models

import "time"

// InsightType enumerates the rule families the generator can fire
type InsightType string

const (
	InsightTypeGrowth                InsightType = "growth"
	InsightTypePlatformConcentration InsightType = "platform_concentration"
	InsightTypeEngagementBenchmark   InsightType = "engagement_benchmark"
	InsightTypeContentTypeComparison InsightType = "content_type_comparison"
)

// Insight is a derived, reproducible observation over aggregate metrics.
// Never a source of truth; always recomputable, cached with a TTL at most.
type Insight struct {
	EntityID              string             `json:"entity_id"`
	EntityType            string             `json:"entity_type"`
	InsightType           InsightType        `json:"insight_type"`
	Title                 string             `json:"title"`
	Description           string             `json:"description"`
	Metrics               map[string]float64 `json:"metrics,omitempty"`
	RecommendationActions []string           `json:"recommendation_actions,omitempty"`
	Priority              int                `json:"priority"`
	CreatedAt             time.Time          `json:"created_at"`
}

// InsightListResponse is the API response for generated insights
type InsightListResponse struct {
	EntityID   string    `json:"entity_id"`
	EntityType string    `json:"entity_type"`
	Items      []Insight `json:"items"`
}

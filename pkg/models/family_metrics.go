package models

import "time"

// NodeMetrics is one family member's aggregate for the queried period
type NodeMetrics struct {
	ContentID   string           `json:"content_id"`
	Platform    string           `json:"platform"`
	ContentType string           `json:"content_type"`
	Metrics     AggregateMetrics `json:"metrics"`
}

// BreakdownEntry is a per-platform or per-content-type slice of the family totals
type BreakdownEntry struct {
	Key     string           `json:"key"`
	Metrics AggregateMetrics `json:"metrics"`
	Share   float64          `json:"share"`
}

// FamilyMetrics is the rolled-up view of one content family for a period.
// UniqueReachEstimate discounts the raw view total by the estimated audience
// duplication across platforms; it is a documented heuristic, not exact
// deduplication. Partial is set when any member's metrics were missing or
// could not be standardized.
type FamilyMetrics struct {
	RootContentID        string           `json:"root_content_id"`
	Period               Period           `json:"period"`
	Aggregate            AggregateMetrics `json:"aggregate"`
	PlatformBreakdown    []BreakdownEntry `json:"platform_breakdown"`
	ContentTypeBreakdown []BreakdownEntry `json:"content_type_breakdown"`
	NodeMetrics          []NodeMetrics    `json:"node_metrics"`
	EstimatedDuplication float64          `json:"estimated_duplication"`
	UniqueReachEstimate  float64          `json:"unique_reach_estimate"`
	ContentCount         int              `json:"content_count"`
	PlatformCount        int              `json:"platform_count"`
	Partial              bool             `json:"partial"`
	ComputedAt           time.Time        `json:"computed_at"`
}

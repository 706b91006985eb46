package models

import (
	"time"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
)

// DailyMetric is one day of raw, platform-native metrics for one content
// item. Upserts are idempotent keyed by (content_id, date); a later sync for
// the same day overwrites.
type DailyMetric struct {
	ID        string                              `json:"id" db:"id"`
	ContentID string                              `json:"content_id" db:"content_id"`
	Date      time.Time                           `json:"date" db:"date"`
	Raw       database.JSONB[map[string]float64]  `json:"raw" db:"raw"`
	CreatedAt time.Time                           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time                           `json:"updated_at" db:"updated_at"`
}

// UpsertDailyMetricRequest is the request body for an on-demand metric sync
type UpsertDailyMetricRequest struct {
	Date time.Time          `json:"date" validate:"required"`
	Raw  map[string]float64 `json:"raw" validate:"required"`
}

// StandardizedDailyMetric is one day of metrics expressed in canonical units
// after a StandardizationProfile has been applied.
type StandardizedDailyMetric struct {
	ContentID        string    `json:"content_id"`
	Platform         string    `json:"platform"`
	Date             time.Time `json:"date"`
	Views            float64   `json:"views"`
	Engagements      float64   `json:"engagements"`
	Shares           float64   `json:"shares"`
	Comments         float64   `json:"comments"`
	Likes            float64   `json:"likes"`
	WatchTimeMinutes float64   `json:"watch_time_minutes"`
	EngagementScore  float64   `json:"engagement_score"`
	ContentValue     float64   `json:"content_value"`
}

// AggregateMetrics is a rollup over standardized daily rows for a period.
// EngagementRate is 0 when Views is 0, never NaN.
type AggregateMetrics struct {
	Views          float64            `json:"views"`
	Engagements    float64            `json:"engagements"`
	Shares         float64            `json:"shares"`
	Comments       float64            `json:"comments"`
	Likes          float64            `json:"likes"`
	ContentValue   float64            `json:"content_value"`
	EngagementRate float64            `json:"engagement_rate"`
	Growth         map[string]float64 `json:"growth,omitempty"`
}

// Add accumulates another aggregate into the receiver (additive fields only)
func (a *AggregateMetrics) Add(other AggregateMetrics) {
	a.Views += other.Views
	a.Engagements += other.Engagements
	a.Shares += other.Shares
	a.Comments += other.Comments
	a.Likes += other.Likes
	a.ContentValue += other.ContentValue
}

// Period is a half-open [Start, End) date range
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Previous returns the equal-length period immediately before this one
func (p Period) Previous() Period {
	length := p.End.Sub(p.Start)
	return Period{Start: p.Start.Add(-length), End: p.Start}
}

// Contains reports whether t falls inside the period
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

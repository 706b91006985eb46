// Package standardize converts platform-native daily metrics into canonical
// units using per-platform standardization profiles.
package standardize

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/metrics"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// Canonical metric field names. Profile metric mappings translate
// platform-native names (e.g. "impressions") onto these.
const (
	FieldViews            = "views"
	FieldEngagements      = "engagements"
	FieldShares           = "shares"
	FieldComments         = "comments"
	FieldLikes            = "likes"
	FieldWatchTimeMinutes = "watch_time_minutes"
)

// Engine applies standardization profiles to raw daily metrics
type Engine struct {
	profiles *ProfileCache
	logger   ectologger.Logger
}

// NewEngine creates a standardization engine
func NewEngine(profiles *ProfileCache, logger ectologger.Logger) *Engine {
	return &Engine{
		profiles: profiles,
		logger:   logger,
	}
}

// Standardize converts one raw daily metric row into canonical units. An
// unregistered platform returns UnknownPlatformError; the row is never
// passed through raw.
func (e *Engine) Standardize(ctx context.Context, platform string, metric *models.DailyMetric) (*models.StandardizedDailyMetric, error) {
	ctx, span := tracing.StartSpan(ctx, "standardize.Engine.Standardize")
	defer span.End()

	profile, err := e.profiles.Get(ctx, platform)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		e.logger.WithContext(ctx).WithFields(map[string]any{
			"platform":   platform,
			"content_id": metric.ContentID,
		}).Warn("Skipping metric row for unregistered platform")
		metrics.RecordStandardization(platform, "unknown_platform")
		return nil, NewUnknownPlatformError(platform)
	}

	canonical := applyMappings(metric.Raw.Data, profile.MetricMappings.Data)

	row := &models.StandardizedDailyMetric{
		ContentID:        metric.ContentID,
		Platform:         platform,
		Date:             metric.Date,
		Views:            canonical[FieldViews],
		Engagements:      canonical[FieldEngagements],
		Shares:           canonical[FieldShares],
		Comments:         canonical[FieldComments],
		Likes:            canonical[FieldLikes],
		WatchTimeMinutes: canonical[FieldWatchTimeMinutes],
	}

	row.EngagementScore = engagementScore(row, profile)
	row.ContentValue = contentValue(row, profile)

	metrics.RecordStandardization(platform, "ok")
	return row, nil
}

// applyMappings renames raw fields onto canonical names. Unmapped fields
// keep their own name; colliding fields accumulate.
func applyMappings(raw map[string]float64, mappings map[string]string) map[string]float64 {
	canonical := make(map[string]float64, len(raw))
	for field, value := range raw {
		name := field
		if mapped, ok := mappings[field]; ok {
			name = mapped
		}
		canonical[name] += value
	}
	return canonical
}

// engagementScore weights the engagement-family fields and scales by the
// platform engagement factor so scores are comparable across platforms
func engagementScore(row *models.StandardizedDailyMetric, profile *models.StandardizationProfile) float64 {
	weighted := row.Engagements*profile.EngagementWeight +
		row.Shares*profile.ShareWeight +
		row.Comments*profile.CommentWeight +
		row.Likes*profile.LikeWeight
	return weighted * profile.PlatformEngagementFactor
}

// contentValue is a linear, per-mille estimate from weighted views and the
// engagement score. Best-effort comparison signal, not a financial figure.
func contentValue(row *models.StandardizedDailyMetric, profile *models.StandardizationProfile) float64 {
	return (row.Views*profile.ViewWeight + row.EngagementScore) / 1000 * profile.PlatformValueFactor
}

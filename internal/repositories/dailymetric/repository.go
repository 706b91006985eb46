package dailymetric

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// DailyMetricRepository persists raw per-day metric rows. Writes are
// idempotent upserts keyed by (content_id, date); a later sync for the same
// day overwrites the earlier row.
type DailyMetricRepository interface {
	Upsert(ctx context.Context, contentID string, req models.UpsertDailyMetricRequest) (*models.DailyMetric, error)
	ListByContentAndPeriod(ctx context.Context, contentID string, period models.Period) ([]models.DailyMetric, error)
}

// Repository implements DailyMetricRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new daily metric repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "daily_metrics"

var columns = []string{"id", "content_id", "date", "raw", "created_at", "updated_at"}

// Upsert writes one day of raw metrics for a content item. The date is
// truncated to UTC midnight so two syncs on the same calendar day collide.
func (r *Repository) Upsert(ctx context.Context, contentID string, req models.UpsertDailyMetricRequest) (*models.DailyMetric, error) {
	ctx, span := tracing.StartSpan(ctx, "DailyMetricRepository.Upsert")
	defer span.End()

	now := time.Now()
	day := req.Date.UTC().Truncate(24 * time.Hour)

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "content_id", "date", "raw", "created_at", "updated_at")
	sb.Values(uuid.New().String(), contentID, day, database.JSONB[map[string]float64]{Data: req.Raw}, now, now)

	ub := sb.OnConflict("content_id", "date")
	ub.Set(
		ub.Assign("raw", database.Excluded("raw")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"content_id": contentID,
			"date":       day.Format("2006-01-02"),
		}).Error("failed to upsert daily metric")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upsert daily metric: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"content_id": contentID,
		"date":       day.Format("2006-01-02"),
	}).Info("upserted daily metric")

	return r.getByContentAndDate(ctx, contentID, day)
}

// ListByContentAndPeriod loads the raw rows for one content item inside the
// half-open [start, end) period, oldest first
func (r *Repository) ListByContentAndPeriod(ctx context.Context, contentID string, period models.Period) ([]models.DailyMetric, error) {
	ctx, span := tracing.StartSpan(ctx, "DailyMetricRepository.ListByContentAndPeriod")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("content_id", contentID),
		sb.GreaterEqualThan("date", period.Start),
		sb.LessThan("date", period.End),
	)
	sb.OrderBy("date ASC")

	query, args := sb.Build()

	var items []models.DailyMetric
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("content_id", contentID).Error("failed to list daily metrics")
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}

	return items, nil
}

func (r *Repository) getByContentAndDate(ctx context.Context, contentID string, day time.Time) (*models.DailyMetric, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("content_id", contentID),
		sb.Equal("date", day),
	)

	query, args := sb.Build()

	var metric models.DailyMetric
	err := r.db.GetContext(ctx, &metric, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("content_id", contentID).Error("failed to get daily metric")
		return nil, fmt.Errorf("failed to get daily metric: %w", err)
	}

	return &metric, nil
}

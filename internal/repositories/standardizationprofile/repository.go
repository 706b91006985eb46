package standardizationprofile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// StandardizationProfileRepository manages per-platform standardization
// coefficients. Profiles are global, not per creator; one row per platform.
type StandardizationProfileRepository interface {
	Create(ctx context.Context, req models.CreateStandardizationProfileRequest) (*models.StandardizationProfile, error)
	GetByPlatform(ctx context.Context, platform string) (*models.StandardizationProfile, error)
	List(ctx context.Context) ([]models.StandardizationProfile, error)
	Update(ctx context.Context, platform string, req models.UpdateStandardizationProfileRequest) (*models.StandardizationProfile, error)
}

// Repository implements StandardizationProfileRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new standardization profile repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "standardization_profiles"

const uniqueViolation = "23505"

var columns = []string{"id", "platform", "engagement_weight", "view_weight", "share_weight", "comment_weight", "like_weight", "platform_engagement_factor", "platform_value_factor", "metric_mappings", "created_at", "updated_at"}

// Create registers a new platform profile
func (r *Repository) Create(ctx context.Context, req models.CreateStandardizationProfileRequest) (*models.StandardizationProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "StandardizationProfileRepository.Create")
	defer span.End()

	now := time.Now()
	id := uuid.New().String()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "platform", "engagement_weight", "view_weight", "share_weight", "comment_weight", "like_weight", "platform_engagement_factor", "platform_value_factor", "metric_mappings", "created_at", "updated_at")
	sb.Values(id, req.Platform, req.EngagementWeight, req.ViewWeight, req.ShareWeight, req.CommentWeight, req.LikeWeight, req.PlatformEngagementFactor, req.PlatformValueFactor, database.JSONB[map[string]string]{Data: req.MetricMappings}, now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "profile for platform %s already exists", req.Platform)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("platform", req.Platform).Error("failed to create standardization profile")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create standardization profile: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":       id,
		"platform": req.Platform,
	}).Info("created standardization profile")

	return r.GetByPlatform(ctx, req.Platform)
}

// GetByPlatform gets a profile by platform name. Missing platforms return
// (nil, nil); the standardization engine turns that into a fail-closed error.
func (r *Repository) GetByPlatform(ctx context.Context, platform string) (*models.StandardizationProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "StandardizationProfileRepository.GetByPlatform")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("platform", platform),
	)

	query, args := sb.Build()

	var profile models.StandardizationProfile
	err := r.db.GetContext(ctx, &profile, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("platform", platform).Error("failed to get standardization profile")
		return nil, fmt.Errorf("failed to get standardization profile: %w", err)
	}

	return &profile, nil
}

// List lists every registered platform profile
func (r *Repository) List(ctx context.Context) ([]models.StandardizationProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "StandardizationProfileRepository.List")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("platform ASC")

	query, args := sb.Build()

	var items []models.StandardizationProfile
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list standardization profiles")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list standardization profiles: %s", err.Error())
	}

	return items, nil
}

// Update updates a platform profile's coefficients
func (r *Repository) Update(ctx context.Context, platform string, req models.UpdateStandardizationProfileRequest) (*models.StandardizationProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "StandardizationProfileRepository.Update")
	defer span.End()

	existing, err := r.GetByPlatform(ctx, platform)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sb := sqlbuilder.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("updated_at", time.Now()))

	if req.EngagementWeight != nil {
		sb.Set(sb.Assign("engagement_weight", *req.EngagementWeight))
	}
	if req.ViewWeight != nil {
		sb.Set(sb.Assign("view_weight", *req.ViewWeight))
	}
	if req.ShareWeight != nil {
		sb.Set(sb.Assign("share_weight", *req.ShareWeight))
	}
	if req.CommentWeight != nil {
		sb.Set(sb.Assign("comment_weight", *req.CommentWeight))
	}
	if req.LikeWeight != nil {
		sb.Set(sb.Assign("like_weight", *req.LikeWeight))
	}
	if req.PlatformEngagementFactor != nil {
		sb.Set(sb.Assign("platform_engagement_factor", *req.PlatformEngagementFactor))
	}
	if req.PlatformValueFactor != nil {
		sb.Set(sb.Assign("platform_value_factor", *req.PlatformValueFactor))
	}
	if req.MetricMappings != nil {
		sb.Set(sb.Assign("metric_mappings", database.JSONB[map[string]string]{Data: req.MetricMappings}))
	}

	sb.Where(
		sb.Equal("platform", platform),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("platform", platform).Error("failed to update standardization profile")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update standardization profile: %s", err.Error())
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"platform":      platform,
		"rows_affected": rowsAffected,
	}).Info("updated standardization profile")

	return r.GetByPlatform(ctx, platform)
}

package audienceoverlap

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

// AudienceOverlapRepository stores pairwise platform overlap estimates per
// creator. Pairs are stored in lexical order so each pair has one row.
type AudienceOverlapRepository interface {
	Upsert(ctx context.Context, creatorID, platformA, platformB string, overlap float64) (*models.AudienceOverlap, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.AudienceOverlap, error)
}

// Repository implements AudienceOverlapRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new audience overlap repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "audience_overlaps"

var columns = []string{"id", "creator_id", "platform_a", "platform_b", "overlap", "created_at", "updated_at"}

// Upsert writes the overlap estimate for one platform pair, normalizing the
// pair to lexical order first
func (r *Repository) Upsert(ctx context.Context, creatorID, platformA, platformB string, overlap float64) (*models.AudienceOverlap, error) {
	ctx, span := tracing.StartSpan(ctx, "AudienceOverlapRepository.Upsert")
	defer span.End()

	if platformA > platformB {
		platformA, platformB = platformB, platformA
	}

	now := time.Now()

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "creator_id", "platform_a", "platform_b", "overlap", "created_at", "updated_at")
	sb.Values(uuid.New().String(), creatorID, platformA, platformB, overlap, now, now)

	ub := sb.OnConflict("creator_id", "platform_a", "platform_b")
	ub.Set(
		ub.Assign("overlap", database.Excluded("overlap")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"creator_id": creatorID,
			"platform_a": platformA,
			"platform_b": platformB,
		}).Error("failed to upsert audience overlap")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upsert audience overlap: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"creator_id": creatorID,
		"platform_a": platformA,
		"platform_b": platformB,
		"overlap":    overlap,
	}).Info("upserted audience overlap")

	return r.getByPair(ctx, creatorID, platformA, platformB)
}

// ListByCreator loads every overlap pair for a creator
func (r *Repository) ListByCreator(ctx context.Context, creatorID string) ([]models.AudienceOverlap, error) {
	ctx, span := tracing.StartSpan(ctx, "AudienceOverlapRepository.ListByCreator")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("creator_id", creatorID),
	)
	sb.OrderBy("platform_a ASC, platform_b ASC")

	query, args := sb.Build()

	var items []models.AudienceOverlap
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("creator_id", creatorID).Error("failed to list audience overlaps")
		return nil, fmt.Errorf("failed to list audience overlaps: %w", err)
	}

	return items, nil
}

func (r *Repository) getByPair(ctx context.Context, creatorID, platformA, platformB string) (*models.AudienceOverlap, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("creator_id", creatorID),
		sb.Equal("platform_a", platformA),
		sb.Equal("platform_b", platformB),
	)

	query, args := sb.Build()

	var pair models.AudienceOverlap
	err := r.db.GetContext(ctx, &pair, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("creator_id", creatorID).Error("failed to get audience overlap")
		return nil, fmt.Errorf("failed to get audience overlap: %w", err)
	}

	return &pair, nil
}

package relationshipedge

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// RelationshipEdgeRepository persists the relationship edge set. Forest
// invariants (single parent, no cycles) are enforced by the graph builder
// under a per-creator lock, not here.
type RelationshipEdgeRepository interface {
	ListByCreator(ctx context.Context, creatorID string) ([]models.RelationshipEdge, error)
	Create(ctx context.Context, edge *models.RelationshipEdge) error
	Update(ctx context.Context, edge *models.RelationshipEdge) error
	Delete(ctx context.Context, creatorID, sourceID, targetID string) error
}

// Repository implements RelationshipEdgeRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new relationship edge repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "relationship_edges"

var columns = []string{"id", "creator_id", "source_id", "target_id", "relationship_type", "confidence", "created_by", "created_at", "updated_at"}

// ListByCreator loads the creator's full edge set. Graph traversal always
// works on the whole forest, so there is no paginated variant.
func (r *Repository) ListByCreator(ctx context.Context, creatorID string) ([]models.RelationshipEdge, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipEdgeRepository.ListByCreator")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("creator_id", creatorID),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var items []models.RelationshipEdge
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("creator_id", creatorID).Error("failed to list relationship edges")
		return nil, fmt.Errorf("failed to list relationship edges: %w", err)
	}

	return items, nil
}

// Create inserts a new relationship edge
func (r *Repository) Create(ctx context.Context, edge *models.RelationshipEdge) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipEdgeRepository.Create")
	defer span.End()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "creator_id", "source_id", "target_id", "relationship_type", "confidence", "created_by", "created_at", "updated_at")
	sb.Values(edge.ID, edge.CreatorID, edge.SourceID, edge.TargetID, edge.RelationshipType, edge.Confidence, edge.CreatedBy, edge.CreatedAt, edge.UpdatedAt)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":         edge.ID,
			"creator_id": edge.CreatorID,
			"source_id":  edge.SourceID,
			"target_id":  edge.TargetID,
		}).Error("failed to create relationship edge")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create relationship edge: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         edge.ID,
		"creator_id": edge.CreatorID,
		"source_id":  edge.SourceID,
		"target_id":  edge.TargetID,
	}).Info("created relationship edge")

	return nil
}

// Update rewrites an existing edge's type, confidence and origin in place
func (r *Repository) Update(ctx context.Context, edge *models.RelationshipEdge) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipEdgeRepository.Update")
	defer span.End()

	sb := sqlbuilder.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("relationship_type", edge.RelationshipType),
		sb.Assign("confidence", edge.Confidence),
		sb.Assign("created_by", edge.CreatedBy),
		sb.Assign("updated_at", time.Now()),
	)
	sb.Where(
		sb.Equal("id", edge.ID),
		sb.Equal("creator_id", edge.CreatorID),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":         edge.ID,
			"creator_id": edge.CreatorID,
		}).Error("failed to update relationship edge")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update relationship edge: %s", err.Error())
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            edge.ID,
		"creator_id":    edge.CreatorID,
		"rows_affected": rowsAffected,
	}).Info("updated relationship edge")

	return nil
}

// Delete removes an edge by its endpoints. Hard delete: a removed edge has no
// further meaning to traversal or history.
func (r *Repository) Delete(ctx context.Context, creatorID, sourceID, targetID string) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipEdgeRepository.Delete")
	defer span.End()

	sb := sqlbuilder.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(
		sb.Equal("creator_id", creatorID),
		sb.Equal("source_id", sourceID),
		sb.Equal("target_id", targetID),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"creator_id": creatorID,
			"source_id":  sourceID,
			"target_id":  targetID,
		}).Error("failed to delete relationship edge")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete relationship edge: %s", err.Error())
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"creator_id":    creatorID,
		"source_id":     sourceID,
		"target_id":     targetID,
		"rows_affected": rowsAffected,
	}).Info("deleted relationship edge")

	return nil
}

package contentnode

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

	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// ContentNodeRepository defines the interface for content node operations
type ContentNodeRepository interface {
	Create(ctx context.Context, creatorID string, req models.CreateContentNodeRequest) (*models.ContentNode, error)
	Get(ctx context.Context, id string) (*models.ContentNode, error)
	GetByExternalID(ctx context.Context, creatorID, platform, externalID string) (*models.ContentNode, error)
	List(ctx context.Context, creatorID string, page, pageSize int) ([]models.ContentNode, int, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.ContentNode, error)
	Update(ctx context.Context, creatorID, id string, req models.UpdateContentNodeRequest) (*models.ContentNode, error)
	Delete(ctx context.Context, creatorID, id string) error
}

// Repository implements ContentNodeRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new content node repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "content_nodes"

const uniqueViolation = "23505"

var columns = []string{"id", "creator_id", "platform", "external_id", "content_type", "title", "description", "url", "published_at", "created_at", "updated_at", "deleted_at"}

// Create creates a new content node. A second create for the same
// (creator, platform, external id) returns a duplicate content error.
func (r *Repository) Create(ctx context.Context, creatorID string, req models.CreateContentNodeRequest) (*models.ContentNode, error) {
	ctx, span := tracing.StartSpan(ctx, "ContentNodeRepository.Create")
	defer span.End()

	now := time.Now()
	id := uuid.New().String()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "creator_id", "platform", "external_id", "content_type", "title", "description", "url", "published_at", "created_at", "updated_at")
	sb.Values(id, creatorID, req.Platform, req.ExternalID, req.ContentType, req.Title, req.Description, req.URL, req.PublishedAt, now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, contentgraph.NewDuplicateContentError(req.Platform, req.ExternalID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":          id,
			"creator_id":  creatorID,
			"platform":    req.Platform,
			"external_id": req.ExternalID,
		}).Error("failed to create content node")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create content node: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          id,
		"creator_id":  creatorID,
		"platform":    req.Platform,
		"external_id": req.ExternalID,
	}).Info("created content node")

	return r.Get(ctx, id)
}

// Get gets a content node by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.ContentNode, error) {
	ctx, span := tracing.StartSpan(ctx, "ContentNodeRepository.Get")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var node models.ContentNode
	err := r.db.GetContext(ctx, &node, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("failed to get content node")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get content node: %s", err.Error())
	}

	return &node, nil
}

// GetByExternalID gets a content node by its platform identity
func (r *Repository) GetByExternalID(ctx context.Context, creatorID, platform, externalID string) (*models.ContentNode, error) {
	ctx, span := tracing.StartSpan(ctx, "ContentNodeRepository.GetByExternalID")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("creator_id", creatorID),
		sb.Equal("platform", platform),
		sb.Equal("external_id", externalID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var node models.ContentNode
	err := r.db.GetContext(ctx, &node, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"creator_id":  creatorID,
			"platform":    platform,
			"external_id": externalID,
		}).Error("failed to get content node by external ID")
		return nil, fmt.Errorf("failed to get content node: %w", err)
	}

	return &node, nil
}

// List lists content nodes for a creator with pagination
func (r *Repository) List(ctx context.Context, creatorID string, page, pageSize int) ([]models.ContentNode, int, error) {
	ctx, span := tracing.StartSpan(ctx, "ContentNodeRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	countSb.Where(
		countSb.Equal("creator_id", creatorID),
		countSb.IsNull("deleted_at"),
	)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count content nodes")
		return nil, 0, fmt.Errorf("failed to count content nodes: %w", err)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("creator_id", creatorID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("published_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.ContentNode
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"creator_id": creatorID,
			"page":       page,
			"page_size":  pageSize,
		}).Error("failed to list content nodes")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list content nodes: %s", err.Error())
	}

	return items, totalCount, nil
}

// ListByCreator loads every live content node for a creator. Used by graph
// traversal and suggestion pooling, which need the full set.
func (r *Repository) ListByCreator(ctx context.Context, creatorID string) ([]models.ContentNode, error) {
	ctx, span := tracing.StartSpan(ctx, "ContentNodeRepository.ListByCreator")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("creator_id", creatorID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("published_at DESC")

	query, args := sb.Build()

	var items []models.ContentNode
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("creator_id", creatorID).Error("failed to list content nodes by creator")
		return nil, fmt.Errorf("failed to list content nodes: %w", err)
	}

	return items, nil
}

// Update updates a content node's mutable metadata. Identity fields never
// change after create.
func (r *Repository) Update(ctx context.Context, creatorID, id string, req models.UpdateContentNodeRequest) (*models.ContentNode, error) {
	ctx, span := tracing.StartSpan(ctx, "ContentNodeRepository.Update")
	defer span.End()

	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.CreatorID != creatorID {
		return nil, nil
	}

	sb := sqlbuilder.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("updated_at", time.Now()))

	if req.Title != nil {
		sb.Set(sb.Assign("title", *req.Title))
	}
	if req.Description != nil {
		sb.Set(sb.Assign("description", *req.Description))
	}
	if req.URL != nil {
		sb.Set(sb.Assign("url", *req.URL))
	}

	sb.Where(
		sb.Equal("id", id),
		sb.Equal("creator_id", creatorID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":         id,
			"creator_id": creatorID,
		}).Error("failed to update content node")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update content node: %s", err.Error())
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"creator_id":    creatorID,
		"rows_affected": rowsAffected,
	}).Info("updated content node")

	return r.Get(ctx, id)
}

// Delete soft deletes a content node
func (r *Repository) Delete(ctx context.Context, creatorID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ContentNodeRepository.Delete")
	defer span.End()

	sb := sqlbuilder.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("deleted_at", time.Now()))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("creator_id", creatorID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":         id,
			"creator_id": creatorID,
		}).Error("failed to delete content node")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete content node: %s", err.Error())
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"creator_id":    creatorID,
		"rows_affected": rowsAffected,
	}).Info("deleted content node")

	return nil
}

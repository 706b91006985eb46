// Package content exposes the content node API: registration, metadata
// updates and on-demand metric ingestion.
package content

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/contentnode"
	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/dailymetric"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	ctxutil "github.com/bronxpinstripes/engagerr-analytics/pkg/context"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/graphdb"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/redis"
)

var validate = validator.New()

// Register registers content node routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
	g.POST("/:id/metrics", UpsertMetrics)
}

// List returns the creator's content nodes with pagination
func List(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*contentnode.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, creatorID, page, pageSize)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list content nodes")
	}

	return c.JSON(http.StatusOK, models.ContentNodeListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Create registers a new content node
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	var req models.CreateContentNodeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*contentnode.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Create(ctx, creatorID, req)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create content node")
	}

	// Best-effort mirror write; edge projection re-merges endpoints anyway
	if ctx2, projector, err := ectoinject.GetContext[*graphdb.Projector](ctx); err == nil {
		_ = projector.ProjectNode(ctx2, result)
	}

	return c.JSON(http.StatusCreated, result)
}

// Get returns a single content node by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	contentID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*contentnode.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Get(ctx, contentID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get content node")
	}
	if result == nil || result.CreatorID != creatorID {
		return httperror.NewHTTPError(http.StatusNotFound, "content node not found")
	}

	return c.JSON(http.StatusOK, result)
}

// Update updates a content node's mutable metadata
func Update(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	contentID := c.Param("id")

	var req models.UpdateContentNodeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*contentnode.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Update(ctx, creatorID, contentID, req)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update content node")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "content node not found")
	}

	return c.JSON(http.StatusOK, result)
}

// Delete soft deletes a content node
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	contentID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*contentnode.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := repo.Get(ctx, contentID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get content node")
	}
	if existing == nil || existing.CreatorID != creatorID {
		return httperror.NewHTTPError(http.StatusNotFound, "content node not found")
	}

	if err := repo.Delete(ctx, creatorID, contentID); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete content node")
	}

	if ctx2, projector, err := ectoinject.GetContext[*graphdb.Projector](ctx); err == nil {
		_ = projector.RemoveNode(ctx2, creatorID, contentID)
	}

	return c.NoContent(http.StatusNoContent)
}

// UpsertMetrics writes one day of raw metrics for a content node and bumps
// the creator's metrics version so cached rollups go stale
func UpsertMetrics(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	contentID := c.Param("id")

	var req models.UpsertDailyMetricRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, nodeRepo, err := ectoinject.GetContext[*contentnode.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	node, err := nodeRepo.Get(ctx, contentID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get content node")
	}
	if node == nil || node.CreatorID != creatorID {
		return httperror.NewHTTPError(http.StatusNotFound, "content node not found")
	}

	ctx, metricRepo, err := ectoinject.GetContext[*dailymetric.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := metricRepo.Upsert(ctx, contentID, req)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert daily metric")
	}

	ctx, versions, err := ectoinject.GetContext[*redis.VersionTracker](ctx)
	if err == nil {
		// Best-effort: a failed bump only delays cache invalidation to TTL
		_ = versions.BumpMetricsVersion(ctx, creatorID)
	}

	return c.JSON(http.StatusOK, result)
}

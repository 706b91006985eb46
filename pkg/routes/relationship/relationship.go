// Package relationship exposes the relationship edge API. All mutations go
// through the graph builder, which enforces the forest invariants.
package relationship

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	ctxutil "github.com/bronxpinstripes/engagerr-analytics/pkg/context"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

var validate = validator.New()

// Register registers relationship edge routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.DELETE("/:source_id/:target_id", Delete)
	g.GET("/:id", ListForContent)
}

// Create adds a parent -> derivative edge
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	var req models.AddEdgeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, builder, err := ectoinject.GetContext[*contentgraph.Builder](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get graph builder")
	}

	edge, err := builder.AddEdge(ctx, creatorID, req, models.EdgeOriginUser)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create relationship")
	}

	return c.JSON(http.StatusCreated, edge)
}

// Delete removes the edge between source_id and target_id. The target's own
// derivatives stay attached to it.
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	sourceID := c.Param("source_id")
	targetID := c.Param("target_id")
	if sourceID == "" || targetID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "source_id and target_id are required")
	}

	ctx, builder, err := ectoinject.GetContext[*contentgraph.Builder](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get graph builder")
	}

	if err := builder.RemoveEdge(ctx, creatorID, sourceID, targetID); err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationship")
	}

	return c.NoContent(http.StatusNoContent)
}

// ListForContent returns the edges touching one content node: its parent
// edge, if any, plus edges to its direct derivatives
func ListForContent(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	contentID := c.Param("id")

	ctx, builder, err := ectoinject.GetContext[*contentgraph.Builder](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get graph builder")
	}

	edges, err := builder.GetRelationships(ctx, creatorID, contentID)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list relationships")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"content_id": contentID,
		"edges":      edges,
	})
}

// Package suggestion exposes the relationship suggestion API. Suggestions
// are advisory; accepting one replays it through edge validation.
package suggestion

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	ctxutil "github.com/bronxpinstripes/engagerr-analytics/pkg/context"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/suggest"
)

var validate = validator.New()

// Register registers suggestion routes
func Register(g *echo.Group) {
	g.GET("/:id", List)
	g.POST("/accept", Accept)
}

// List returns ranked relationship suggestions for a content node
func List(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	contentID := c.Param("id")

	threshold := 0.0
	if raw := c.QueryParam("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "threshold must be a number in [0,1]")
		}
		threshold = parsed
	}

	ctx, engine, err := ectoinject.GetContext[*suggest.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get suggestion engine")
	}

	suggestions, err := engine.SuggestRelationships(ctx, creatorID, contentID, c.QueryParams()["candidate"], threshold)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute suggestions")
	}

	return c.JSON(http.StatusOK, models.SuggestionListResponse{
		ContentID:   contentID,
		Threshold:   threshold,
		Suggestions: suggestions,
	})
}

// Accept turns a suggestion into a real edge. The edge is created with
// system origin and revalidated; a stale suggestion is rejected here.
func Accept(c echo.Context) error {
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

	edge, err := builder.AddEdge(ctx, creatorID, req, models.EdgeOriginSystem)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to accept suggestion")
	}

	return c.JSON(http.StatusCreated, edge)
}

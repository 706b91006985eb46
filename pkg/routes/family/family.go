// Package family exposes content family resolution, rollup metrics and the
// graph mirror used for visualization.
package family

import (
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/bronxpinstripes/engagerr-analytics/config"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	ctxutil "github.com/bronxpinstripes/engagerr-analytics/pkg/context"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/graphdb"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/rollup"
)

// Register registers family routes
func Register(g *echo.Group) {
	g.GET("/:id", Get)
	g.GET("/:id/metrics", Metrics)
	g.GET("/:id/graph", Graph)
}

// Get resolves the family containing a content node
func Get(c echo.Context) error {
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

	family, err := builder.GetFamily(ctx, creatorID, contentID)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve family")
	}

	return c.JSON(http.StatusOK, family)
}

// Metrics computes the family rollup for a period. Defaults to the trailing
// 30 days when no period is given.
func Metrics(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	contentID := c.Param("id")

	period, err := ParsePeriod(c.QueryParam("start"), c.QueryParam("end"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, engine, err := ectoinject.GetContext[*rollup.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get rollup engine")
	}

	result, err := engine.ComputeFamilyMetrics(ctx, creatorID, contentID, period)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute family metrics")
	}

	return c.JSON(http.StatusOK, result)
}

// Graph returns the projected family subgraph from the graph mirror
func Graph(c echo.Context) error {
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

	// Resolve up to the root first so any family member works as input
	family, err := builder.GetFamily(ctx, creatorID, contentID)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve family")
	}

	ctx, query, err := ectoinject.GetContext[*graphdb.QueryService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "graph mirror is not available")
	}

	ctx, cfg, err := ectoinject.GetContext[config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config")
	}

	subgraph, err := query.FamilySubgraph(ctx, creatorID, family.RootID, cfg.MaxFamilyDepth)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to query family graph")
	}

	return c.JSON(http.StatusOK, subgraph)
}

// ParsePeriod parses start/end date params (2006-01-02) into a half-open
// period. Missing params default to the trailing 30 days ending tomorrow
// UTC, so today's rows are included.
func ParsePeriod(startRaw, endRaw string) (models.Period, error) {
	if startRaw == "" && endRaw == "" {
		end := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
		return models.Period{Start: end.AddDate(0, 0, -30), End: end}, nil
	}

	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		return models.Period{}, errors.New("start must be a date formatted as 2006-01-02")
	}
	end, err := time.Parse("2006-01-02", endRaw)
	if err != nil {
		return models.Period{}, errors.New("end must be a date formatted as 2006-01-02")
	}
	if !end.After(start) {
		return models.Period{}, errors.New("end must be after start")
	}
	return models.Period{Start: start, End: end}, nil
}

// Package insight exposes generated insights for a content family.
package insight

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	ctxutil "github.com/bronxpinstripes/engagerr-analytics/pkg/context"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/insights"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/redis"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/rollup"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/family"
)

const entityTypeFamily = "family"

// Register registers insight routes
func Register(g *echo.Group) {
	g.GET("/:id", Get)
}

// Get generates insights for the family containing a content node. Results
// are cached with a short TTL keyed by the creator's data versions, so a
// graph or metrics change produces fresh insights on the next request.
func Get(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	contentID := c.Param("id")

	period, err := family.ParsePeriod(c.QueryParam("start"), c.QueryParam("end"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, engine, err := ectoinject.GetContext[*rollup.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get rollup engine")
	}

	ctx, generator, err := ectoinject.GetContext[*insights.Generator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get insight generator")
	}

	var cache insights.Cache
	var cacheKey string
	ctx, redisCache, cacheErr := ectoinject.GetContext[*insights.RedisCache](ctx)
	if cacheErr == nil {
		cache = redisCache
		if ctx2, versions, err := ectoinject.GetContext[*redis.VersionTracker](ctx); err == nil {
			ctx = ctx2
			graphVersion, metricsVersion, verr := versions.GetVersions(ctx, creatorID)
			if verr == nil {
				cacheKey = insights.CacheKey(entityTypeFamily, contentID, period, graphVersion, metricsVersion)
				if cached, ok := cache.Get(ctx, cacheKey); ok {
					return c.JSON(http.StatusOK, models.InsightListResponse{
						EntityID:   contentID,
						EntityType: entityTypeFamily,
						Items:      cached,
					})
				}
			}
		}
	}

	familyMetrics, err := engine.ComputeFamilyMetrics(ctx, creatorID, contentID, period)
	if err != nil {
		var ge *contentgraph.GraphError
		if errors.As(err, &ge) {
			return ge.ToHTTPError()
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute family metrics")
	}

	items := generator.Generate(contentID, entityTypeFamily, familyMetrics)

	if cache != nil && cacheKey != "" {
		cache.Set(ctx, cacheKey, items)
	}

	return c.JSON(http.StatusOK, models.InsightListResponse{
		EntityID:   contentID,
		EntityType: entityTypeFamily,
		Items:      items,
	})
}

// Package overlap exposes audience overlap estimates used by rollup
// deduplication.
package overlap

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/audienceoverlap"
	ctxutil "github.com/bronxpinstripes/engagerr-analytics/pkg/context"
)

var validate = validator.New()

// Register registers audience overlap routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.PUT("", Upsert)
}

// UpsertOverlapRequest is the request body for setting a platform pair's
// overlap estimate
type UpsertOverlapRequest struct {
	PlatformA string  `json:"platform_a" validate:"required"`
	PlatformB string  `json:"platform_b" validate:"required"`
	Overlap   float64 `json:"overlap" validate:"gte=0,lte=1"`
}

// List returns the creator's stored overlap pairs
func List(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*audienceoverlap.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list audience overlaps")
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Upsert sets the overlap estimate for one platform pair
func Upsert(c echo.Context) error {
	ctx := c.Request().Context()

	creatorID := ctxutil.GetCreatorID(ctx)
	if creatorID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "creator_id is required")
	}

	var req UpsertOverlapRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PlatformA == req.PlatformB {
		return httperror.NewHTTPError(http.StatusBadRequest, "platform_a and platform_b must differ")
	}

	ctx, repo, err := ectoinject.GetContext[*audienceoverlap.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Upsert(ctx, creatorID, req.PlatformA, req.PlatformB, req.Overlap)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert audience overlap")
	}

	return c.JSON(http.StatusOK, result)
}

// Package profile exposes standardization profile management. Profiles are
// operator-level configuration, not per-creator data.
package profile

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/standardizationprofile"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/standardize"
)

var validate = validator.New()

// Register registers standardization profile routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:platform", Get)
	g.PUT("/:platform", Update)
}

// List returns every registered platform profile
func List(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*standardizationprofile.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.List(ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list standardization profiles")
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Create registers a new platform profile
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateStandardizationProfileRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*standardizationprofile.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	invalidateProfile(ctx, req.Platform)

	return c.JSON(http.StatusCreated, result)
}

// Get returns a single platform profile
func Get(c echo.Context) error {
	ctx := c.Request().Context()

	platform := c.Param("platform")

	ctx, repo, err := ectoinject.GetContext[*standardizationprofile.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByPlatform(ctx, platform)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get standardization profile")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "standardization profile not found")
	}

	return c.JSON(http.StatusOK, result)
}

// Update updates a platform profile's coefficients. New metrics standardize
// with the new profile immediately; stored rollups refresh on TTL or the
// next version bump.
func Update(c echo.Context) error {
	ctx := c.Request().Context()

	platform := c.Param("platform")

	var req models.UpdateStandardizationProfileRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*standardizationprofile.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Update(ctx, platform, req)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update standardization profile")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "standardization profile not found")
	}

	invalidateProfile(ctx, platform)

	return c.JSON(http.StatusOK, result)
}

// invalidateProfile drops the in-process profile cache entry so the next
// standardization picks up the change
func invalidateProfile(ctx context.Context, platform string) {
	if _, cache, err := ectoinject.GetContext[*standardize.ProfileCache](ctx); err == nil {
		cache.Invalidate(platform)
	}
}

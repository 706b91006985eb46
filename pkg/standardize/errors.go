package standardize

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// UnknownPlatformError is returned when no standardization profile is
// registered for a platform. Standardization fails closed: raw numbers from
// an unprofiled platform never leak into aggregates.
type UnknownPlatformError struct {
	Platform string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("no standardization profile registered for platform '%s'", e.Platform)
}

func NewUnknownPlatformError(platform string) *UnknownPlatformError {
	return &UnknownPlatformError{Platform: platform}
}

// IsUnknownPlatform reports whether err is (or wraps) an UnknownPlatformError
func IsUnknownPlatform(err error) bool {
	var upe *UnknownPlatformError
	return errors.As(err, &upe)
}

// ToHTTPError maps the failure to an httperror for the API boundary
func (e *UnknownPlatformError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).
		AddMetaValue("platform", e.Platform)
}

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/apperr"
)

const (
	LoginPath        = "/account/login"
	AccessDeniedPath = apperr.AccessDeniedPath
)

// RequireAuth rejects anonymous requests.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserIDFromContext(c.Request().Context()) == "" {
				return unauthenticated()
			}
			return next(c)
		}
	}
}

// RequireRole returns middleware that checks the caller holds at least one
// of roles. Admin is not a wildcard: each surface names the roles it serves.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if UserIDFromContext(ctx) == "" {
				return unauthenticated()
			}
			if !RolesFromContext(ctx).HasAny(roles...) {
				return echo.NewHTTPError(http.StatusForbidden, map[string]string{
					"message":     fmt.Sprintf("required role: %s", strings.Join(names, " or ")),
					"redirect_to": AccessDeniedPath,
				})
			}
			return next(c)
		}
	}
}

func unauthenticated() error {
	return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
		"message":     "authentication required",
		"redirect_to": LoginPath,
	})
}

package middleware

import (
	"github.com/labstack/echo/v4"
)

const CurrentAPIVersion = "v1"

// VersionRoute creates the route group for version and tags every response
// with it.
func VersionRoute(e *echo.Echo, version string) *echo.Group {
	group := e.Group("/api/" + version)
	group.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", version)
			return next(c)
		}
	})
	return group
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/theratrack/theratrack-api/internal/model"
)

// RequireRole enforces that the authenticated caller holds one of the given
// roles. Comparison is against the closed Role type, never a stringified
// enum name. Assumes JWTAuth ran earlier in the chain; a missing identity
// is treated the same as a disallowed role.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := CallerIdentity(c)
			if !ok || !allowed[ident.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

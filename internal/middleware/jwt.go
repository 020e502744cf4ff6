// Package middleware provides reusable HTTP middleware: bearer-token
// authentication, role enforcement, rate limiting and response caching.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/theratrack/theratrack-api/internal/auth"
)

// identityKey is the context key under which the verified caller identity
// is stored for the duration of a request.
const identityKey = "identity"

// JWTAuth returns middleware that validates the Bearer access token and
// injects the typed identity into the request context. Claims are parsed
// exactly once here; handlers retrieve the result via CallerIdentity. Every
// verification failure, expired, bad signature or malformed alike, maps to
// the same 401 so callers learn nothing about why.
func JWTAuth(tokens *auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			ident, err := tokens.VerifyAccessToken(raw)
			if err != nil {
				// ErrExpired / ErrBadSignature / ErrMalformed stay distinct
				// for logs but are indistinguishable to the client.
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(identityKey, ident)
			return next(c)
		}
	}
}

// CallerIdentity returns the identity stored by JWTAuth. The boolean is
// false on routes that did not run the middleware.
func CallerIdentity(c echo.Context) (auth.Identity, bool) {
	ident, ok := c.Get(identityKey).(auth.Identity)
	return ident, ok
}

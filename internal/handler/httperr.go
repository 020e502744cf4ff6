// Package handler implements the HTTP layer: request binding, identity
// threading, and the mapping from the internal error taxonomy to status
// codes. Handlers hold their collaborators as constructor-injected fields;
// nothing is resolved from a global container.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/theratrack/theratrack-api/internal/repository"
)

// respondError translates a service or repository error into the wire
// format. Every failure is a structured {"error": reason} body; raw storage
// errors never leak.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session already completed (read-only)"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reference or value"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

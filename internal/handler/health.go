package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness plus database reachability.
type HealthHandler struct{ DB *sql.DB }

func NewHealthHandler(db *sql.DB) *HealthHandler { return &HealthHandler{DB: db} }

// Get handles GET /api/health.
func (h *HealthHandler) Get(c echo.Context) error {
	dbState := "Up"
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if h.DB == nil || h.DB.PingContext(ctx) != nil {
		dbState = "Down"
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "OK", "db": dbState})
}

// Package router registers the HTTP routes and wires the middleware chain:
// rate limiting on the public auth surface, bearer authentication plus role
// enforcement on everything else.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/config"
	"github.com/theratrack/theratrack-api/internal/handler"
	"github.com/theratrack/theratrack-api/internal/middleware"
	"github.com/theratrack/theratrack-api/internal/model"
)

// Handlers groups the handler set the router mounts. Every field is
// required except Dev, which is only registered in the dev environment
// (the handler itself also refuses outside dev).
type Handlers struct {
	Auth       *handler.AuthHandler
	Health     *handler.HealthHandler
	Clients    *handler.ClientHandler
	Clinicians *handler.ClinicianHandler
	Goals      *handler.GoalHandler
	Sessions   *handler.SessionHandler
	Dev        *handler.DevHandler
}

// Register mounts all routes under /api. rdb may be nil; rate limiting and
// response caching then degrade to pass-throughs.
func Register(e *echo.Echo, h Handlers, tokens *auth.TokenService, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/api/health", h.Health.Get)

	// Public auth surface; the only brute-forceable endpoints, so the
	// limiter lives here.
	pub := e.Group("/api/auth", limiter)
	pub.POST("/register", h.Auth.Register)
	pub.POST("/login", h.Auth.Login)
	pub.POST("/refresh", h.Auth.Refresh)

	if h.Dev != nil {
		e.POST("/api/dev/seed", h.Dev.Seed)
	}

	// Everything below requires a verified bearer token. The JWT middleware
	// parses claims once and stores the typed identity for the handlers.
	api := e.Group("/api", middleware.JWTAuth(tokens))

	api.GET("/secure/ping", h.Auth.Ping)

	// Role-scoped reads, cached per caller.
	api.GET("/clients", h.Clients.List, cache)
	api.GET("/goals", h.Goals.List, cache)
	api.GET("/sessions", h.Sessions.List)
	api.GET("/sessions/:id", h.Sessions.Get)

	// Admin-only management surface.
	admin := api.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.POST("/clients", h.Clients.Create)
	admin.PUT("/clients/:id", h.Clients.Update)
	admin.POST("/goals", h.Goals.Create)
	admin.PUT("/goals/:id", h.Goals.Update)
	admin.DELETE("/goals/:id", h.Goals.Delete)
	admin.GET("/clinicians", h.Clinicians.List)
	admin.POST("/sessions", h.Sessions.Create)
	admin.PUT("/sessions/:id/status", h.Sessions.AdminSetStatus)
	admin.PUT("/sessions/:id/payroll-lock", h.Sessions.SetPayrollLock)

	// Clinician-only mutations on their own sessions.
	clinician := api.Group("", middleware.RequireRole(model.RoleClinician))
	clinician.PUT("/sessions/:id", h.Sessions.UpdateOwnStatus)
	clinician.POST("/sessions/:id/entries", h.Sessions.AddEntry)
	clinician.POST("/sessions/:id/note", h.Sessions.AddNote)
}

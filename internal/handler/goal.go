package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/theratrack/theratrack-api/internal/middleware"
	"github.com/theratrack/theratrack-api/internal/model"
	"github.com/theratrack/theratrack-api/internal/policy"
	"github.com/theratrack/theratrack-api/internal/repository"
)

// GoalHandler serves goal CRUD. Clinician visibility runs through client
// assignment, not session assignment.
type GoalHandler struct {
	Goals   *repository.GoalRepo
	Clients *repository.ClientRepo
	Log     *zap.Logger
}

func NewGoalHandler(goals *repository.GoalRepo, clients *repository.ClientRepo, log *zap.Logger) *GoalHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GoalHandler{Goals: goals, Clients: clients, Log: log}
}

// goalDTO keeps the response contract the UI was built against: Title is
// exposed as "name", MeasureType as "unit", and targetValue is always null
// (not part of the model).
type goalDTO struct {
	ID          int64  `json:"id"`
	ClientID    int64  `json:"clientId"`
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	TargetValue *int   `json:"targetValue"`
}

func toGoalDTO(g model.Goal) goalDTO {
	return goalDTO{ID: g.ID, ClientID: g.ClientID, Name: g.Title, Unit: string(g.MeasureType)}
}

// List handles GET /api/goals?clientId=. Clinicians see only goals of
// clients assigned to them.
func (h *GoalHandler) List(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var clientID *int64
	if raw := strings.TrimSpace(c.QueryParam("clientId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid clientId"})
		}
		clientID = &id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	scope := policy.ClientScope(ident)
	goals, err := h.Goals.List(ctx, clientID, scope.ClinicianID)
	if err != nil {
		h.Log.Error("goals: list failed", zap.Error(err))
		return respondError(c, err)
	}
	out := make([]goalDTO, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalDTO(g))
	}
	return c.JSON(http.StatusOK, out)
}

type goalWriteReq struct {
	ClientID    int64  `json:"clientId"`
	Title       string `json:"title"`
	MeasureType string `json:"measureType"`
}

// Create handles POST /api/goals (admin). The client must exist.
func (h *GoalHandler) Create(c echo.Context) error {
	var req goalWriteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	measure, ok := model.ParseMeasureType(req.MeasureType)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "measureType must be PERCENT or COUNT"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	exists, err := h.Clients.Exists(ctx, req.ClientID)
	if err != nil {
		h.Log.Error("goals: client lookup failed", zap.Error(err))
		return respondError(c, err)
	}
	if !exists {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client does not exist"})
	}

	goal, err := h.Goals.Create(ctx, req.ClientID, req.Title, measure)
	if err != nil {
		h.Log.Error("goals: create failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toGoalDTO(goal))
}

// Update handles PUT /api/goals/:id (admin).
func (h *GoalHandler) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req goalWriteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	measure, ok := model.ParseMeasureType(req.MeasureType)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "measureType must be PERCENT or COUNT"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	goal, err := h.Goals.Update(ctx, id, req.Title, measure)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toGoalDTO(goal))
}

// Delete handles DELETE /api/goals/:id (admin). Entries referencing the
// goal cascade away with it.
func (h *GoalHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Goals.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

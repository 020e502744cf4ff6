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
)

// ClientStore is the client persistence surface of the roster and seed
// handlers.
type ClientStore interface {
	List(ctx context.Context, assignedClinicianID *int64) ([]model.Client, error)
	Create(ctx context.Context, name string, assignedClinicianID *int64) (model.Client, error)
	Update(ctx context.Context, id int64, name string, assignedClinicianID *int64) (model.Client, error)
}

// ClientHandler serves the client roster. Listing is role-scoped;
// creation and update are admin-only (enforced by route middleware).
type ClientHandler struct {
	Clients ClientStore
	Log     *zap.Logger
}

func NewClientHandler(clients ClientStore, log *zap.Logger) *ClientHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ClientHandler{Clients: clients, Log: log}
}

type clientDTO struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	AssignedClinicianID *int64 `json:"assignedClinicianId"`
}

func toClientDTO(c model.Client) clientDTO {
	return clientDTO{ID: c.ID, Name: c.Name, AssignedClinicianID: c.AssignedClinicianID}
}

// List handles GET /api/clients. Admins see every client; clinicians see
// only clients assigned to them, so an unassigned client is admin-only.
func (h *ClientHandler) List(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	scope := policy.ClientScope(ident)
	clients, err := h.Clients.List(ctx, scope.ClinicianID)
	if err != nil {
		h.Log.Error("clients: list failed", zap.Error(err))
		return respondError(c, err)
	}
	out := make([]clientDTO, 0, len(clients))
	for _, cl := range clients {
		out = append(out, toClientDTO(cl))
	}
	return c.JSON(http.StatusOK, out)
}

type clientWriteReq struct {
	Name                string `json:"name"`
	AssignedClinicianID *int64 `json:"assignedClinicianId"`
}

// Create handles POST /api/clients (admin).
func (h *ClientHandler) Create(c echo.Context) error {
	var req clientWriteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Clients.Create(ctx, req.Name, req.AssignedClinicianID)
	if err != nil {
		h.Log.Error("clients: create failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toClientDTO(client))
}

// Update handles PUT /api/clients/:id (admin).
func (h *ClientHandler) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req clientWriteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Clients.Update(ctx, id, req.Name, req.AssignedClinicianID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toClientDTO(client))
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/theratrack/theratrack-api/internal/config"
	"github.com/theratrack/theratrack-api/internal/model"
	"github.com/theratrack/theratrack-api/internal/repository"
)

// GoalStore is the slice of goal persistence the seed handler needs.
type GoalStore interface {
	List(ctx context.Context, clientID, assignedClinicianID *int64) ([]model.Goal, error)
	Create(ctx context.Context, clientID int64, title string, measure model.MeasureType) (model.Goal, error)
}

// DevHandler seeds demo data. The endpoint answers 404 outside the dev
// environment so it is indistinguishable from a missing route.
type DevHandler struct {
	Cfg     config.Config
	Users   UserStore
	Clients ClientStore
	Goals   GoalStore
	Log     *zap.Logger
}

func NewDevHandler(cfg config.Config, users UserStore, clients ClientStore, goals GoalStore, log *zap.Logger) *DevHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DevHandler{Cfg: cfg, Users: users, Clients: clients, Goals: goals, Log: log}
}

const (
	seedClinicianEmail = "clinician@example.com"
	seedPassword       = "Passw0rd!"
	seedClientName     = "Client Alpha"
)

// Seed handles POST /api/dev/seed: idempotently creates a clinician, a
// client assigned to them, and two goals with different measure types.
func (h *DevHandler) Seed(c echo.Context) error {
	if h.Cfg.Env != "dev" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	clinician, err := h.Users.GetByEmail(ctx, seedClinicianEmail)
	if errors.Is(err, repository.ErrNotFound) {
		uid, createErr := h.Users.Create(ctx, "Clinician One", seedClinicianEmail, seedPassword,
			model.RoleClinician, 3000, h.Cfg.BcryptCost)
		if createErr != nil {
			h.Log.Error("seed: create clinician failed", zap.Error(createErr))
			return respondError(c, createErr)
		}
		clinician = model.User{ID: uid}
	} else if err != nil {
		return respondError(c, err)
	}

	// Name lookup is deliberately unscoped: the seeded client stays unique
	// even after an admin reassigns it to another clinician.
	clients, err := h.Clients.List(ctx, nil)
	if err != nil {
		return respondError(c, err)
	}
	var client model.Client
	for _, cl := range clients {
		if cl.Name == seedClientName {
			client = cl
			break
		}
	}
	if client.ID == 0 {
		client, err = h.Clients.Create(ctx, seedClientName, &clinician.ID)
		if err != nil {
			return respondError(c, err)
		}
	}

	goals, err := h.Goals.List(ctx, &client.ID, nil)
	if err != nil {
		return respondError(c, err)
	}
	if len(goals) == 0 {
		if _, err := h.Goals.Create(ctx, client.ID, "Follow simple directions", model.MeasurePercent); err != nil {
			return respondError(c, err)
		}
		if _, err := h.Goals.Create(ctx, client.ID, "Requests using words", model.MeasureCount); err != nil {
			return respondError(c, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"seeded":         true,
		"clinicianEmail": seedClinicianEmail,
		"password":       seedPassword,
	})
}

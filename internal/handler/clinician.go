package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/theratrack/theratrack-api/internal/repository"
)

// ClinicianHandler lists clinician accounts for admins assigning clients
// and sessions.
type ClinicianHandler struct {
	Users *repository.UserRepo
	Log   *zap.Logger
}

func NewClinicianHandler(users *repository.UserRepo, log *zap.Logger) *ClinicianHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ClinicianHandler{Users: users, Log: log}
}

// List handles GET /api/clinicians (admin).
func (h *ClinicianHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	clinicians, err := h.Users.ListClinicians(ctx)
	if err != nil {
		h.Log.Error("clinicians: list failed", zap.Error(err))
		return respondError(c, err)
	}

	type clinicianDTO struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	out := make([]clinicianDTO, 0, len(clinicians))
	for _, u := range clinicians {
		out = append(out, clinicianDTO{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return c.JSON(http.StatusOK, out)
}

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
	"github.com/theratrack/theratrack-api/internal/service"
)

// SessionHandler exposes the session facade over HTTP. All authorization
// and state-machine decisions live in the service; the handler only binds,
// validates shapes, and maps errors.
type SessionHandler struct {
	Sessions *service.SessionService
	Log      *zap.Logger
}

func NewSessionHandler(sessions *service.SessionService, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{Sessions: sessions, Log: log}
}

// ----- DTOs -----

type sessionDTO struct {
	ID               int64      `json:"id"`
	ClientID         int64      `json:"clientId"`
	ClinicianID      int64      `json:"clinicianId"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          *time.Time `json:"endTime"`
	Status           string     `json:"status"`
	LockedForPayroll bool       `json:"lockedForPayroll"`
}

func toSessionDTO(s model.Session) sessionDTO {
	return sessionDTO{
		ID:               s.ID,
		ClientID:         s.ClientID,
		ClinicianID:      s.ClinicianID,
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		Status:           string(s.Status),
		LockedForPayroll: s.LockedForPayroll,
	}
}

type sessionListDTO struct {
	sessionDTO
	ClientName    string `json:"clientName"`
	ClinicianName string `json:"clinicianName"`
}

type entryDTO struct {
	ID     int64 `json:"id"`
	GoalID int64 `json:"goalId"`
	Value  int   `json:"value"`
}

type noteDTO struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"sessionId"`
	SoapText  string `json:"soapText"`
}

type sessionDetailDTO struct {
	sessionDTO
	Note    *noteDTO   `json:"note"`
	Entries []entryDTO `json:"entries"`
}

// List handles GET /api/sessions: all sessions for admins, own sessions
// for clinicians, newest first.
func (h *SessionHandler) List(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sums, err := h.Sessions.List(ctx, ident)
	if err != nil {
		h.Log.Error("sessions: list failed", zap.Error(err))
		return respondError(c, err)
	}
	out := make([]sessionListDTO, 0, len(sums))
	for _, s := range sums {
		out = append(out, sessionListDTO{
			sessionDTO:    toSessionDTO(s.Session),
			ClientName:    s.ClientName,
			ClinicianName: s.ClinicianName,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/sessions/:id, returning the note and entries too.
func (h *SessionHandler) Get(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Sessions.Get(ctx, ident, id)
	if err != nil {
		return respondError(c, err)
	}

	dto := sessionDetailDTO{sessionDTO: toSessionDTO(detail.Session), Entries: make([]entryDTO, 0, len(detail.Entries))}
	if detail.Note != nil {
		dto.Note = &noteDTO{ID: detail.Note.ID, SessionID: detail.Note.SessionID, SoapText: detail.Note.SoapText}
	}
	for _, e := range detail.Entries {
		dto.Entries = append(dto.Entries, entryDTO{ID: e.ID, GoalID: e.GoalID, Value: e.Value})
	}
	return c.JSON(http.StatusOK, dto)
}

type createSessionReq struct {
	ClientID    int64      `json:"clientId"`
	ClinicianID int64      `json:"clinicianId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

// Create handles POST /api/sessions (admin). New sessions start SCHEDULED
// and unlocked.
func (h *SessionHandler) Create(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ClientID == 0 || req.ClinicianID == 0 || req.StartTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "clientId/clinicianId/startTime required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.Create(ctx, ident, req.ClientID, req.ClinicianID, req.StartTime, req.EndTime)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toSessionDTO(sess))
}

type statusReq struct {
	Status string `json:"status"`
}

func bindStatus(c echo.Context) (model.SessionStatus, bool) {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	return model.ParseSessionStatus(req.Status)
}

// UpdateOwnStatus handles PUT /api/sessions/:id (clinician). Entering
// COMPLETED stamps the end time; a session owned by someone else reads as
// 404, never 403.
func (h *SessionHandler) UpdateOwnStatus(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	status, ok := bindStatus(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.UpdateOwnStatus(ctx, ident, id, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionDTO(sess))
}

// AdminSetStatus handles PUT /api/sessions/:id/status (admin override).
// Moving a session off COMPLETED reopens it by clearing the end time.
func (h *SessionHandler) AdminSetStatus(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	status, ok := bindStatus(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.AdminOverrideStatus(ctx, ident, id, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionDTO(sess))
}

type payrollLockReq struct {
	Locked bool `json:"locked"`
}

// SetPayrollLock handles PUT /api/sessions/:id/payroll-lock (admin).
func (h *SessionHandler) SetPayrollLock(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req payrollLockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.SetPayrollLock(ctx, ident, id, req.Locked)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionDTO(sess))
}

type createEntryReq struct {
	GoalID int64 `json:"goalId"`
	Value  int   `json:"value"`
}

// AddEntry handles POST /api/sessions/:id/entries (clinician, own session,
// not completed).
func (h *SessionHandler) AddEntry(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req createEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, err := h.Sessions.AddEntry(ctx, ident, id, req.GoalID, req.Value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entryDTO{ID: entry.ID, GoalID: entry.GoalID, Value: entry.Value})
}

type createNoteReq struct {
	SoapText string `json:"soapText"`
}

// AddNote handles POST /api/sessions/:id/note (clinician, own session, not
// completed). The note is a singleton; a second write replaces the text.
func (h *SessionHandler) AddNote(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req createNoteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.SoapText) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "soapText is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	note, err := h.Sessions.AddOrUpdateNote(ctx, ident, id, req.SoapText)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, noteDTO{ID: note.ID, SessionID: note.SessionID, SoapText: note.SoapText})
}

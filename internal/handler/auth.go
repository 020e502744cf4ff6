package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/config"
	"github.com/theratrack/theratrack-api/internal/middleware"
	"github.com/theratrack/theratrack-api/internal/model"
	"github.com/theratrack/theratrack-api/internal/repository"
)

// UserStore is the user persistence surface the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, name, email, password string, role model.Role, hourlyRateCents, bcryptCost int) (int64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	StoreRefresh(ctx context.Context, userID int64, tokenHash string, exp time.Time) error
	RefreshCandidates(ctx context.Context) ([]model.User, error)
}

// AuthHandler bundles the dependencies of the auth endpoints. Every
// successful register, login and refresh rotates the refresh token: the
// new hash+expiry overwrite the user row, revoking the old token.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens *auth.TokenService
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens *auth.TokenService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Role            string `json:"role"` // ADMIN | CLINICIAN
	HourlyRateCents int    `json:"hourlyRateCents"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type authResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

// issuePair creates a fresh access/refresh pair for the user and persists
// the new refresh hash, rotating out any previous token.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
	access, err := h.Tokens.NewAccessToken(u)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := h.Tokens.NewRefreshToken()
	if err != nil {
		return authResp{}, err
	}
	if err := h.Users.StoreRefresh(ctx, u.ID, refresh.Hash, refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw, // plaintext goes to the client exactly once
		Name:         u.Name,
		Email:        u.Email,
		Role:         string(u.Role),
	}, nil
}

// Register creates a user and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be ADMIN or CLINICIAN"})
	}
	if req.HourlyRateCents < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hourlyRateCents must be non-negative"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, req.HourlyRateCents, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respondError(c, err)
		}
		h.Log.Error("register: create user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	resp, err := h.issuePair(ctx, model.User{ID: uid, Name: req.Name, Email: req.Email, Role: role})
	if err != nil {
		h.Log.Error("register: issue tokens failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a fresh pair. Bad email and bad
// password are indistinguishable to the caller. There is no lockout
// policy; any number of failures leaves the account usable.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Log.Error("login: query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		h.Log.Error("login: issue tokens failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a valid refresh token for a new pair, rotating the
// stored hash. Replaying the old token after rotation always fails. The
// stored value is a one-way hash, so the lookup loads every non-expired
// candidate and verifies in memory; a concurrent refresh race resolves by
// last-write-wins and the loser simply re-authenticates.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	candidates, err := h.Users.RefreshCandidates(ctx)
	if err != nil {
		h.Log.Error("refresh: candidate query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	var user *model.User
	for i := range candidates {
		if h.Tokens.VerifyRefreshToken(raw, candidates[i].RefreshTokenHash) {
			user = &candidates[i]
			break
		}
	}
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	resp, err := h.issuePair(ctx, *user)
	if err != nil {
		h.Log.Error("refresh: issue tokens failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Ping is the minimal protected endpoint: it echoes the verified identity.
func (h *AuthHandler) Ping(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "userId": ident.UserID, "role": ident.Role})
}

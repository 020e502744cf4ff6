package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/config"
	"github.com/theratrack/theratrack-api/internal/model"
	"github.com/theratrack/theratrack-api/internal/repository"
)

// fakeUserStore is an in-memory UserStore. Create hashes the password the
// same way the SQL repository does, so login verification is exercised for
// real.
type fakeUserStore struct {
	users  map[string]*model.User // keyed by email
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserStore) Create(_ context.Context, name, email, password string, role model.Role, hourlyRateCents, bcryptCost int) (int64, error) {
	if _, ok := f.users[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := auth.HashPassword(password, bcryptCost)
	if err != nil {
		return 0, err
	}
	id := f.nextID
	f.nextID++
	f.users[email] = &model.User{
		ID:              id,
		Name:            name,
		Email:           email,
		Role:            role,
		HourlyRateCents: hourlyRateCents,
		PasswordHash:    hash,
	}
	return id, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.users[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (f *fakeUserStore) StoreRefresh(_ context.Context, userID int64, tokenHash string, exp time.Time) error {
	for _, u := range f.users {
		if u.ID == userID {
			u.RefreshTokenHash = &tokenHash
			u.RefreshTokenExpiresAt = &exp
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeUserStore) RefreshCandidates(_ context.Context) ([]model.User, error) {
	now := time.Now().UTC()
	var out []model.User
	for _, u := range f.users {
		if u.RefreshTokenHash != nil && u.RefreshTokenExpiresAt != nil && u.RefreshTokenExpiresAt.After(now) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func newAuthTestHandler(t *testing.T, store *fakeUserStore) *AuthHandler {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret", "theratrack-api", "theratrack-ui", 60, 7)
	require.NoError(t, err)
	cfg := config.Config{Env: "test", BcryptCost: 4}
	return NewAuthHandler(cfg, store, tokens, nil)
}

func seedUser(t *testing.T, store *fakeUserStore) {
	t.Helper()
	_, err := store.Create(context.Background(), "Clinician One", "clinician@example.com", "Passw0rd!",
		model.RoleClinician, 3000, 4)
	require.NoError(t, err)
}

func decodeAuthResp(t *testing.T, body string) authResp {
	t.Helper()
	var resp authResp
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func TestLoginWrongPasswordThenCorrect(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store)
	h := newAuthTestHandler(t, store)

	// Repeated failures never lock the account.
	for i := 0; i < 3; i++ {
		rec := invoke(t, h.Login, http.MethodPost, "/auth/login",
			`{"email":"clinician@example.com","password":"wrong"}`, auth.Identity{})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := invoke(t, h.Login, http.MethodPost, "/auth/login",
		`{"email":"clinician@example.com","password":"Passw0rd!"}`, auth.Identity{})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAuthResp(t, rec.Body.String())
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "CLINICIAN", resp.Role)
}

func TestLoginUnknownEmailIndistinguishable(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store)
	h := newAuthTestHandler(t, store)

	bad := invoke(t, h.Login, http.MethodPost, "/auth/login",
		`{"email":"clinician@example.com","password":"wrong"}`, auth.Identity{})
	unknown := invoke(t, h.Login, http.MethodPost, "/auth/login",
		`{"email":"nobody@example.com","password":"Passw0rd!"}`, auth.Identity{})

	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, bad.Body.String(), unknown.Body.String())
}

func TestRefreshRotationInvalidatesOldToken(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store)
	h := newAuthTestHandler(t, store)

	rec := invoke(t, h.Login, http.MethodPost, "/auth/login",
		`{"email":"clinician@example.com","password":"Passw0rd!"}`, auth.Identity{})
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeAuthResp(t, rec.Body.String())

	rec = invoke(t, h.Refresh, http.MethodPost, "/auth/refresh",
		`{"refreshToken":"`+first.RefreshToken+`"}`, auth.Identity{})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeAuthResp(t, rec.Body.String())
	require.NotEmpty(t, second.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The rotated-out token is dead.
	rec = invoke(t, h.Refresh, http.MethodPost, "/auth/refresh",
		`{"refreshToken":"`+first.RefreshToken+`"}`, auth.Identity{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The replacement still works.
	rec = invoke(t, h.Refresh, http.MethodPost, "/auth/refresh",
		`{"refreshToken":"`+second.RefreshToken+`"}`, auth.Identity{})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshGarbageToken(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store)
	h := newAuthTestHandler(t, store)

	rec := invoke(t, h.Refresh, http.MethodPost, "/auth/refresh",
		`{"refreshToken":"definitely-not-issued"}`, auth.Identity{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = invoke(t, h.Refresh, http.MethodPost, "/auth/refresh", `{"refreshToken":""}`, auth.Identity{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterReturnsPairAndRejectsDuplicate(t *testing.T) {
	store := newFakeUserStore()
	h := newAuthTestHandler(t, store)

	body := `{"name":"Admin","email":"admin@example.com","password":"s3cret","role":"ADMIN","hourlyRateCents":0}`
	rec := invoke(t, h.Register, http.MethodPost, "/auth/register", body, auth.Identity{})
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeAuthResp(t, rec.Body.String())
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "ADMIN", resp.Role)

	rec = invoke(t, h.Register, http.MethodPost, "/auth/register", body, auth.Identity{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = invoke(t, h.Register, http.MethodPost, "/auth/register",
		`{"name":"X","email":"x@example.com","password":"pw","role":"SUPERUSER"}`, auth.Identity{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

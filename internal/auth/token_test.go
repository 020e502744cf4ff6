package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theratrack/theratrack-api/internal/model"
)

const (
	testSecret   = "test-secret-not-for-production"
	testIssuer   = "theratrack-api"
	testAudience = "theratrack-ui"
)

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, testIssuer, testAudience, 60, 7)
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceRejectsEmptySecret(t *testing.T) {
	_, err := NewTokenService("", testIssuer, testAudience, 60, 7)
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)
	u := model.User{ID: 42, Name: "Clinician One", Email: "clinician@example.com", Role: model.RoleClinician}

	access, err := svc.NewAccessToken(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(60*time.Minute), access.Exp, 5*time.Second)

	ident, err := svc.VerifyAccessToken(access.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ident.UserID)
	assert.Equal(t, model.RoleClinician, ident.Role)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	svc := newTestService(t)

	// Expired well beyond the 30s leeway.
	claims := jwt.MapClaims{
		"sub":  "7",
		"role": string(model.RoleAdmin),
		"iss":  testIssuer,
		"aud":  testAudience,
		"exp":  time.Now().Add(-10 * time.Minute).Unix(),
		"iat":  time.Now().Add(-70 * time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyAccessTokenBadSignature(t *testing.T) {
	svc := newTestService(t)
	other, err := NewTokenService("a-different-secret", testIssuer, testAudience, 60, 7)
	require.NoError(t, err)

	access, err := other.NewAccessToken(model.User{ID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(access.Token)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyAccessTokenMalformed(t *testing.T) {
	svc := newTestService(t)

	cases := map[string]string{
		"garbage":   "not-a-token",
		"empty":     "",
		"truncated": "eyJhbGciOiJIUzI1NiJ9",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyAccessToken(raw)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestVerifyAccessTokenNonIntegerSubject(t *testing.T) {
	svc := newTestService(t)

	claims := jwt.MapClaims{
		"sub":  "not-a-number",
		"role": string(model.RoleAdmin),
		"iss":  testIssuer,
		"aud":  testAudience,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(signed)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyAccessTokenWrongIssuer(t *testing.T) {
	svc := newTestService(t)
	other, err := NewTokenService(testSecret, "someone-else", testAudience, 60, 7)
	require.NoError(t, err)

	access, err := other.NewAccessToken(model.User{ID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(access.Token)
	require.Error(t, err)
}

func TestRefreshTokenEntropyAndHash(t *testing.T) {
	svc := newTestService(t)

	refresh, err := svc.NewRefreshToken()
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(refresh.Raw)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(decoded), 64)

	assert.Equal(t, HashRefreshRaw(refresh.Raw), refresh.Hash)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), refresh.Exp, 5*time.Second)
}

func TestVerifyRefreshToken(t *testing.T) {
	svc := newTestService(t)

	refresh, err := svc.NewRefreshToken()
	require.NoError(t, err)

	assert.True(t, svc.VerifyRefreshToken(refresh.Raw, &refresh.Hash))
	assert.False(t, svc.VerifyRefreshToken("wrong-token", &refresh.Hash))
	assert.False(t, svc.VerifyRefreshToken(refresh.Raw, nil))
	empty := ""
	assert.False(t, svc.VerifyRefreshToken(refresh.Raw, &empty))
}

// Rotation invalidates the previous token: once the stored hash is
// replaced, the old plaintext no longer verifies and the new one does.
func TestRefreshRotationInvalidatesOldToken(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.NewRefreshToken()
	require.NoError(t, err)
	stored := first.Hash
	require.True(t, svc.VerifyRefreshToken(first.Raw, &stored))

	second, err := svc.NewRefreshToken()
	require.NoError(t, err)
	stored = second.Hash // overwrite, as StoreRefresh does

	assert.False(t, svc.VerifyRefreshToken(first.Raw, &stored))
	assert.True(t, svc.VerifyRefreshToken(second.Raw, &stored))
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("Passw0rd!", 4) // min cost keeps the test fast
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "Passw0rd!"))
	assert.False(t, VerifyPassword(hash, "passw0rd!"))
}

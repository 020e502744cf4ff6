// Package auth implements the token lifecycle: short-lived signed access
// tokens, opaque rotated refresh tokens, and the typed identity extracted
// from verified claims. Refresh tokens are stored only as SHA-256 hashes;
// the plaintext is returned to the client once and never re-derivable.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/theratrack/theratrack-api/internal/model"
)

// Verification failures are distinct for logging but all map to the same
// caller-visible 401.
var (
	ErrExpired      = errors.New("token expired")
	ErrBadSignature = errors.New("token signature invalid")
	ErrMalformed    = errors.New("token malformed")
)

// refreshTokenBytes is the entropy of an opaque refresh token before
// base64 encoding.
const refreshTokenBytes = 64

// clockSkew is the leeway allowed when checking exp/iat on access tokens.
const clockSkew = 30 * time.Second

// TokenService issues and verifies both token kinds. It is constructed once
// at startup from configuration; an empty secret is a construction error so
// a misconfigured deployment fails before serving traffic.
type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService builds a TokenService. ttlMin and ttlDays of zero fall
// back to the defaults (60 minutes, 7 days).
func NewTokenService(secret, issuer, audience string, accessTTLMin, refreshTTLDays int) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if accessTTLMin <= 0 {
		accessTTLMin = 60
	}
	if refreshTTLDays <= 0 {
		refreshTTLDays = 7
	}
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		audience:   audience,
		accessTTL:  time.Duration(accessTTLMin) * time.Minute,
		refreshTTL: time.Duration(refreshTTLDays) * 24 * time.Hour,
	}, nil
}

// AccessToken is a signed JWT plus its expiry, returned to the client in
// the auth response and expected back in the Authorization header.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken carries the plaintext returned to the client and the hash
// persisted on the user row. Raw is shown exactly once.
type RefreshToken struct {
	Raw  string
	Hash string
	Exp  time.Time
}

// NewAccessToken signs an HS256 JWT for the user with sub/email/name/role
// plus issuer, audience, exp and iat claims.
func (s *TokenService) NewAccessToken(u model.User) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(s.accessTTL)
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(u.ID, 10),
		"email": u.Email,
		"name":  u.Name,
		"role":  string(u.Role),
		"iss":   s.issuer,
		"aud":   s.audience,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken generates an opaque high-entropy token. Only the SHA-256
// hash is meant for storage; compare with VerifyRefreshToken.
func (s *TokenService) NewRefreshToken() (RefreshToken, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	raw := base64.StdEncoding.EncodeToString(buf)
	return RefreshToken{
		Raw:  raw,
		Hash: HashRefreshRaw(raw),
		Exp:  time.Now().UTC().Add(s.refreshTTL),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 digest of a raw refresh token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyRefreshToken compares a presented plaintext against a stored hash
// in constant time. A nil stored hash always fails.
func (s *TokenService) VerifyRefreshToken(raw string, storedHash *string) bool {
	if storedHash == nil || *storedHash == "" {
		return false
	}
	presented := HashRefreshRaw(raw)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(*storedHash)) == 1
}

// VerifyAccessToken checks signature, issuer, audience and expiry (with a
// small skew allowance) and returns the typed identity from the claims.
// A subject that does not parse as an integer, or an unknown role, is
// treated as malformed.
func (s *TokenService) VerifyAccessToken(raw string) (Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrBadSignature):
			return Identity{}, ErrBadSignature
		default:
			return Identity{}, ErrMalformed
		}
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Identity{}, ErrMalformed
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, ErrMalformed
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Identity{}, ErrMalformed
	}
	roleStr, _ := claims["role"].(string)
	role, ok := model.ParseRole(roleStr)
	if !ok {
		return Identity{}, ErrMalformed
	}
	return Identity{UserID: uid, Role: role}, nil
}

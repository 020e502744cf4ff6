package model

import (
	"strings"
	"time"
)

// Role is the closed set of privilege levels a user can hold. Role is the
// sole privilege axis in the system; there are no per-resource ACLs.
type Role string

const (
	RoleAdmin     Role = "ADMIN"     // unrestricted read/write
	RoleClinician Role = "CLINICIAN" // scoped to own clients and sessions
)

// ParseRole normalizes a raw string into a Role. The second return value is
// false when the input names no known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleClinician:
		return RoleClinician, true
	}
	return "", false
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClinician
}

// User mirrors the `users` table. The refresh token columns implement the
// single-active-token model: at most one hash+expiry pair per user, and
// issuing a new refresh token overwrites the old pair, revoking it.
type User struct {
	ID                    int64      // users.id
	Name                  string     // users.name (display name)
	Email                 string     // users.email (unique)
	Role                  Role       // users.role
	HourlyRateCents       int        // users.hourly_rate_cents
	PasswordHash          string     // users.password_hash (bcrypt)
	RefreshTokenHash      *string    // users.refresh_token_hash (nullable)
	RefreshTokenExpiresAt *time.Time // users.refresh_token_expires_at (nullable)
}

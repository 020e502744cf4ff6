package auth

import "github.com/theratrack/theratrack-api/internal/model"

// Identity is the caller's verified identity, produced exactly once per
// request from the access token claims and threaded explicitly into policy
// and service calls. Handlers never re-parse claims.
type Identity struct {
	UserID int64
	Role   model.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// IsClinician reports whether the caller holds the CLINICIAN role.
func (i Identity) IsClinician() bool { return i.Role == model.RoleClinician }

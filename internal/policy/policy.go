// Package policy centralizes the role-scoped data-access rules. Every
// decision takes the caller's verified identity; anonymous requests are
// rejected by middleware before any policy function runs.
//
// Two independent scoping paths exist for clinicians: client assignment
// scopes the clients/goals listings, while session assignment scopes
// session reads and mutations. A session's clinician need not equal the
// client's assigned clinician.
package policy

import "github.com/theratrack/theratrack-api/internal/auth"

// Scope is an optional row-level filter applied before listing a
// collection. A nil ClinicianID means unscoped (admin sees everything).
type Scope struct {
	ClinicianID *int64
}

// Unscoped reports whether the scope applies no filter.
func (s Scope) Unscoped() bool { return s.ClinicianID == nil }

// ClientScope returns the filter for listing clients and goals: admins are
// unscoped, clinicians see only clients assigned to them.
func ClientScope(id auth.Identity) Scope {
	if id.IsAdmin() {
		return Scope{}
	}
	uid := id.UserID
	return Scope{ClinicianID: &uid}
}

// SessionScope returns the filter for listing sessions: admins are
// unscoped, clinicians see only sessions they perform.
func SessionScope(id auth.Identity) Scope {
	if id.IsAdmin() {
		return Scope{}
	}
	uid := id.UserID
	return Scope{ClinicianID: &uid}
}

// CanViewSession reports whether the caller may read a session performed by
// the given clinician: admins always, clinicians only their own.
func CanViewSession(id auth.Identity, clinicianID int64) bool {
	return id.IsAdmin() || id.UserID == clinicianID
}

// OwnsSession reports whether the caller is the clinician assigned to the
// session. Admins do not own sessions; admin mutations go through the
// override operations instead.
func OwnsSession(id auth.Identity, clinicianID int64) bool {
	return id.IsClinician() && id.UserID == clinicianID
}

// CanManageRecords reports whether the caller may create or update clients
// and goals, create sessions, override session status, or toggle the
// payroll lock. These are admin-only.
func CanManageRecords(id auth.Identity) bool {
	return id.IsAdmin()
}

// CanListClinicians reports whether the caller may enumerate clinician
// accounts. Admin-only.
func CanListClinicians(id auth.Identity) bool {
	return id.IsAdmin()
}

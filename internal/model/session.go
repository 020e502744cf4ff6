package model

import (
	"strings"
	"time"
)

// SessionStatus is the closed set of states a therapy session moves through.
// SCHEDULED is the initial state; CANCELED and NO_SHOW are terminal for
// clinicians (only an admin override moves a session out of them).
type SessionStatus string

const (
	StatusScheduled SessionStatus = "SCHEDULED"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusCanceled  SessionStatus = "CANCELED"
	StatusNoShow    SessionStatus = "NO_SHOW"
)

// ParseSessionStatus normalizes a raw string into a SessionStatus.
func ParseSessionStatus(raw string) (SessionStatus, bool) {
	switch SessionStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusScheduled:
		return StatusScheduled, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusCanceled:
		return StatusCanceled, true
	case StatusNoShow:
		return StatusNoShow, true
	}
	return "", false
}

// Session mirrors the `sessions` table. The clinician performing a session
// is independent of the client's assigned clinician. Invariant held by the
// state machine (not by storage): Status == COMPLETED exactly when EndTime
// is set. LockedForPayroll is an admin-controlled flag orthogonal to status.
type Session struct {
	ID               int64         // sessions.id
	ClientID         int64         // sessions.client_id
	ClinicianID      int64         // sessions.clinician_id (FK to users)
	StartTime        time.Time     // sessions.start_time
	EndTime          *time.Time    // sessions.end_time (nullable)
	Status           SessionStatus // sessions.status
	LockedForPayroll bool          // sessions.locked_for_payroll
}

// SessionEntry mirrors the `session_entries` table. Entries are immutable
// once created; there is no update or delete operation.
type SessionEntry struct {
	ID        int64 // session_entries.id
	SessionID int64 // session_entries.session_id
	GoalID    int64 // session_entries.goal_id
	Value     int   // session_entries.value (non-negative)
}

// SessionNote mirrors the `session_notes` table. At most one note exists
// per session (unique session_id); writing a second note overwrites the
// SOAP text of the existing row.
type SessionNote struct {
	ID        int64  // session_notes.id
	SessionID int64  // session_notes.session_id (unique)
	SoapText  string // session_notes.soap_text
}

// SessionSummary is the denormalized list row returned by the sessions
// listing: the raw session plus display names joined at read time.
type SessionSummary struct {
	Session
	ClientName    string
	ClinicianName string
}

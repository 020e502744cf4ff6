package model

import "strings"

// Client mirrors the `clients` table. A client is owned by zero or one
// clinician; a client with no assignment is visible only to admins.
type Client struct {
	ID                  int64  // clients.id
	Name                string // clients.name
	AssignedClinicianID *int64 // clients.assigned_clinician_id (nullable FK to users)
}

// MeasureType is the closed set of ways a goal's progress is quantified.
type MeasureType string

const (
	MeasurePercent MeasureType = "PERCENT" // binary success/fail per entry
	MeasureCount   MeasureType = "COUNT"   // cumulative tally
)

// ParseMeasureType normalizes a raw string into a MeasureType.
func ParseMeasureType(raw string) (MeasureType, bool) {
	switch MeasureType(strings.ToUpper(strings.TrimSpace(raw))) {
	case MeasurePercent:
		return MeasurePercent, true
	case MeasureCount:
		return MeasureCount, true
	}
	return "", false
}

// Goal mirrors the `goals` table. Goals belong to exactly one client and
// are cascade-deleted with it.
type Goal struct {
	ID          int64       // goals.id
	ClientID    int64       // goals.client_id
	Title       string      // goals.title
	MeasureType MeasureType // goals.measure_type
}

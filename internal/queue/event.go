// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// SessionCompletedEvent is published when a therapy session transitions
// into COMPLETED. It carries enough for downstream payroll and audit
// consumers to log without querying the primary database.
type SessionCompletedEvent struct {
	SessionID        int64  `json:"session_id"`
	ClientID         int64  `json:"client_id"`
	ClinicianID      int64  `json:"clinician_id"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	LockedForPayroll bool   `json:"locked_for_payroll"`
}

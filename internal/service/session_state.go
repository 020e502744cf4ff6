// Package service implements the session access facade: the composition of
// the authorization policy and the session state machine over the
// persistence layer. All business-rule failures are normalized to the
// repository sentinel errors before they leave this package.
package service

import (
	"time"

	"github.com/theratrack/theratrack-api/internal/model"
)

// applyClinicianStatus performs the clinician-facing transition: the status
// is set to target, and entering COMPLETED with no end time stamps it with
// the current UTC time. An already-set end time is left untouched, so
// repeating the transition is idempotent. This path never clears the end
// time; only the admin override can reopen a session.
func applyClinicianStatus(s *model.Session, target model.SessionStatus, now time.Time) {
	s.Status = target
	if target == model.StatusCompleted && s.EndTime == nil {
		t := now.UTC()
		s.EndTime = &t
	}
}

// applyAdminStatus performs the admin override: any target status is
// allowed from any state. Moving off COMPLETED clears the end time
// (reopen); moving into COMPLETED stamps it when absent, matching the
// clinician path. Keeps the invariant COMPLETED <=> end time set.
func applyAdminStatus(s *model.Session, target model.SessionStatus, now time.Time) {
	s.Status = target
	if target != model.StatusCompleted {
		s.EndTime = nil
		return
	}
	if s.EndTime == nil {
		t := now.UTC()
		s.EndTime = &t
	}
}

// clinicalContentWritable reports whether notes and entries may still be
// added or modified. A completed session is read-only for clinical content;
// the payroll lock does not factor in.
func clinicalContentWritable(s model.Session) bool {
	return s.Status != model.StatusCompleted
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/model"
	"github.com/theratrack/theratrack-api/internal/policy"
	"github.com/theratrack/theratrack-api/internal/queue"
	"github.com/theratrack/theratrack-api/internal/repository"
)

// SessionStore is the persistence surface the facade needs for sessions,
// their entries and the singleton note.
type SessionStore interface {
	List(ctx context.Context, clinicianID *int64) ([]model.SessionSummary, error)
	GetByID(ctx context.Context, id int64) (model.Session, error)
	Create(ctx context.Context, clientID, clinicianID int64, start time.Time, end *time.Time) (model.Session, error)
	UpdateState(ctx context.Context, s model.Session) error
	InsertEntry(ctx context.Context, sessionID, goalID int64, value int) (model.SessionEntry, error)
	ListEntries(ctx context.Context, sessionID int64) ([]model.SessionEntry, error)
	GetNote(ctx context.Context, sessionID int64) (model.SessionNote, error)
	UpsertNote(ctx context.Context, sessionID int64, soapText string) (model.SessionNote, error)
}

// ClientStore is the client lookup surface used to validate session
// creation.
type ClientStore interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ClinicianStore validates that a session's performer is a clinician user.
type ClinicianStore interface {
	ClinicianExists(ctx context.Context, id int64) (bool, error)
}

// CompletedPublisher emits a best-effort event when a session transitions
// into COMPLETED. Failures are logged, never surfaced to the caller.
type CompletedPublisher func(ctx context.Context, ev queue.SessionCompletedEvent) error

// SessionDetail is the full read model for a single session: the row plus
// its note (nil when none) and entry list.
type SessionDetail struct {
	Session model.Session
	Note    *model.SessionNote
	Entries []model.SessionEntry
}

// SessionService is the session access facade. All collaborators are passed
// at construction; there is no ambient container.
type SessionService struct {
	sessions SessionStore
	clients  ClientStore
	users    ClinicianStore
	publish  CompletedPublisher
	log      *zap.Logger
}

// NewSessionService wires the facade. publish may be nil to disable
// completion events; log falls back to a no-op logger.
func NewSessionService(sessions SessionStore, clients ClientStore, users ClinicianStore, publish CompletedPublisher, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{sessions: sessions, clients: clients, users: users, publish: publish, log: log}
}

// List returns sessions visible to the caller, newest first: everything for
// admins, own sessions for clinicians.
func (s *SessionService) List(ctx context.Context, caller auth.Identity) ([]model.SessionSummary, error) {
	scope := policy.SessionScope(caller)
	return s.sessions.List(ctx, scope.ClinicianID)
}

// Get returns the full session detail. Any authenticated caller may look up
// by id, but non-admin non-owners get ErrForbidden.
func (s *SessionService) Get(ctx context.Context, caller auth.Identity, id int64) (SessionDetail, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return SessionDetail{}, err
	}
	if !policy.CanViewSession(caller, sess.ClinicianID) {
		return SessionDetail{}, repository.ErrForbidden
	}
	detail := SessionDetail{Session: sess}
	note, err := s.sessions.GetNote(ctx, id)
	switch err {
	case nil:
		detail.Note = &note
	case repository.ErrNotFound:
		// no note yet
	default:
		return SessionDetail{}, err
	}
	detail.Entries, err = s.sessions.ListEntries(ctx, id)
	if err != nil {
		return SessionDetail{}, err
	}
	return detail, nil
}

// Create schedules a new session (admin only). The client must exist and
// the clinician id must reference a CLINICIAN user, otherwise
// ErrValidation.
func (s *SessionService) Create(ctx context.Context, caller auth.Identity, clientID, clinicianID int64, start time.Time, end *time.Time) (model.Session, error) {
	if !policy.CanManageRecords(caller) {
		return model.Session{}, repository.ErrForbidden
	}
	ok, err := s.clients.Exists(ctx, clientID)
	if err != nil {
		return model.Session{}, err
	}
	if !ok {
		return model.Session{}, repository.ErrValidation
	}
	ok, err = s.users.ClinicianExists(ctx, clinicianID)
	if err != nil {
		return model.Session{}, err
	}
	if !ok {
		return model.Session{}, repository.ErrValidation
	}
	return s.sessions.Create(ctx, clientID, clinicianID, start, end)
}

// UpdateOwnStatus applies a clinician-initiated transition on the caller's
// own session. A session that exists but belongs to another clinician is
// reported as ErrNotFound, deliberately not ErrForbidden, so non-owners
// cannot probe for existence.
func (s *SessionService) UpdateOwnStatus(ctx context.Context, caller auth.Identity, id int64, target model.SessionStatus) (model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if !policy.OwnsSession(caller, sess.ClinicianID) {
		return model.Session{}, repository.ErrNotFound
	}
	wasCompleted := sess.Status == model.StatusCompleted
	applyClinicianStatus(&sess, target, time.Now())
	if err := s.sessions.UpdateState(ctx, sess); err != nil {
		return model.Session{}, err
	}
	if !wasCompleted && sess.Status == model.StatusCompleted {
		s.emitCompleted(ctx, sess)
	}
	return sess, nil
}

// AdminOverrideStatus forces any status from any state. Moving away from
// COMPLETED reopens the session by clearing its end time.
func (s *SessionService) AdminOverrideStatus(ctx context.Context, caller auth.Identity, id int64, target model.SessionStatus) (model.Session, error) {
	if !policy.CanManageRecords(caller) {
		return model.Session{}, repository.ErrForbidden
	}
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	wasCompleted := sess.Status == model.StatusCompleted
	applyAdminStatus(&sess, target, time.Now())
	if err := s.sessions.UpdateState(ctx, sess); err != nil {
		return model.Session{}, err
	}
	if !wasCompleted && sess.Status == model.StatusCompleted {
		s.emitCompleted(ctx, sess)
	}
	return sess, nil
}

// SetPayrollLock toggles the admin-controlled payroll flag. The lock is
// orthogonal to status and does not gate clinical edits.
func (s *SessionService) SetPayrollLock(ctx context.Context, caller auth.Identity, id int64, locked bool) (model.Session, error) {
	if !policy.CanManageRecords(caller) {
		return model.Session{}, repository.ErrForbidden
	}
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	sess.LockedForPayroll = locked
	if err := s.sessions.UpdateState(ctx, sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// AddEntry records a goal-progress value on the caller's own, not yet
// completed session. Ownership failures are masked as ErrNotFound; a
// completed session yields ErrConflict. The goal is not checked to belong
// to the session's client; only referential existence is enforced, by the
// foreign key.
func (s *SessionService) AddEntry(ctx context.Context, caller auth.Identity, sessionID, goalID int64, value int) (model.SessionEntry, error) {
	if value < 0 {
		return model.SessionEntry{}, repository.ErrValidation
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return model.SessionEntry{}, err
	}
	if !policy.OwnsSession(caller, sess.ClinicianID) {
		return model.SessionEntry{}, repository.ErrNotFound
	}
	if !clinicalContentWritable(sess) {
		return model.SessionEntry{}, repository.ErrConflict
	}
	return s.sessions.InsertEntry(ctx, sessionID, goalID, value)
}

// AddOrUpdateNote upserts the singleton SOAP note on the caller's own, not
// yet completed session, with the same masking and completion gating as
// AddEntry.
func (s *SessionService) AddOrUpdateNote(ctx context.Context, caller auth.Identity, sessionID int64, soapText string) (model.SessionNote, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return model.SessionNote{}, err
	}
	if !policy.OwnsSession(caller, sess.ClinicianID) {
		return model.SessionNote{}, repository.ErrNotFound
	}
	if !clinicalContentWritable(sess) {
		return model.SessionNote{}, repository.ErrConflict
	}
	return s.sessions.UpsertNote(ctx, sessionID, soapText)
}

func (s *SessionService) emitCompleted(ctx context.Context, sess model.Session) {
	if s.publish == nil {
		return
	}
	ev := queue.SessionCompletedEvent{
		SessionID:        sess.ID,
		ClientID:         sess.ClientID,
		ClinicianID:      sess.ClinicianID,
		StartTime:        sess.StartTime.Format(time.RFC3339),
		LockedForPayroll: sess.LockedForPayroll,
	}
	if sess.EndTime != nil {
		ev.EndTime = sess.EndTime.Format(time.RFC3339)
	}
	if err := s.publish(ctx, ev); err != nil {
		s.log.Warn("session.completed publish failed", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
}

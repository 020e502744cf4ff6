package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/theratrack/theratrack-api/internal/model"
)

// SessionRepo persists sessions plus their entries and singleton note.
// Mutations are explicit single-row writes; there is no version column, so
// concurrent writers on the same session are last-write-wins.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = "id, client_id, clinician_id, start_time, end_time, status, locked_for_payroll"

func scanSession(row interface{ Scan(...any) error }) (model.Session, error) {
	var (
		s      model.Session
		end    sql.NullTime
		status string
	)
	err := row.Scan(&s.ID, &s.ClientID, &s.ClinicianID, &s.StartTime, &end, &status, &s.LockedForPayroll)
	if err != nil {
		return model.Session{}, err
	}
	if end.Valid {
		t := end.Time.UTC()
		s.EndTime = &t
	}
	s.StartTime = s.StartTime.UTC()
	s.Status = model.SessionStatus(status)
	return s, nil
}

// List returns session summaries newest-first, denormalizing client and
// clinician display names with a read-time join. A nil clinician filter
// returns all sessions (admin scope).
func (r *SessionRepo) List(ctx context.Context, clinicianID *int64) ([]model.SessionSummary, error) {
	query := `SELECT s.id, s.client_id, s.clinician_id, s.start_time, s.end_time, s.status, s.locked_for_payroll,
		c.name, u.name
		FROM sessions s
		JOIN clients c ON c.id = s.client_id
		JOIN users u ON u.id = s.clinician_id`
	var args []any
	if clinicianID != nil {
		query += " WHERE s.clinician_id=?"
		args = append(args, *clinicianID)
	}
	query += " ORDER BY s.start_time DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SessionSummary
	for rows.Next() {
		var (
			sum    model.SessionSummary
			end    sql.NullTime
			status string
		)
		err := rows.Scan(&sum.ID, &sum.ClientID, &sum.ClinicianID, &sum.StartTime, &end, &status,
			&sum.LockedForPayroll, &sum.ClientName, &sum.ClinicianName)
		if err != nil {
			return nil, err
		}
		if end.Valid {
			t := end.Time.UTC()
			sum.EndTime = &t
		}
		sum.StartTime = sum.StartTime.UTC()
		sum.Status = model.SessionStatus(status)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetByID fetches a session by id.
func (r *SessionRepo) GetByID(ctx context.Context, id int64) (model.Session, error) {
	s, err := scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	return s, err
}

// Create inserts a session in its initial SCHEDULED, unlocked state.
func (r *SessionRepo) Create(ctx context.Context, clientID, clinicianID int64, start time.Time, end *time.Time) (model.Session, error) {
	s := model.Session{
		ClientID:    clientID,
		ClinicianID: clinicianID,
		StartTime:   start.UTC(),
		Status:      model.StatusScheduled,
	}
	if end != nil {
		t := end.UTC()
		s.EndTime = &t
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (client_id, clinician_id, start_time, end_time, status, locked_for_payroll) VALUES (?,?,?,?,?,?)",
		s.ClientID, s.ClinicianID, s.StartTime, s.EndTime, string(s.Status), s.LockedForPayroll)
	if err != nil {
		return model.Session{}, err
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return model.Session{}, err
	}
	return s, nil
}

// UpdateState writes back a session's status, end time and payroll lock
// after the state machine computed the new values.
func (r *SessionRepo) UpdateState(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET status=?, end_time=?, locked_for_payroll=? WHERE id=?",
		string(s.Status), s.EndTime, s.LockedForPayroll, s.ID)
	return err
}

// InsertEntry appends an immutable goal-progress entry to a session. A
// dangling goal id trips the foreign key and surfaces as ErrValidation.
func (r *SessionRepo) InsertEntry(ctx context.Context, sessionID, goalID int64, value int) (model.SessionEntry, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO session_entries (session_id, goal_id, value) VALUES (?,?,?)",
		sessionID, goalID, value)
	if err != nil {
		// MySQL 1452 = foreign key constraint fails
		if strings.Contains(err.Error(), "1452") {
			return model.SessionEntry{}, ErrValidation
		}
		return model.SessionEntry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.SessionEntry{}, err
	}
	return model.SessionEntry{ID: id, SessionID: sessionID, GoalID: goalID, Value: value}, nil
}

// ListEntries returns all entries of a session in insertion order.
func (r *SessionRepo) ListEntries(ctx context.Context, sessionID int64) ([]model.SessionEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, session_id, goal_id, value FROM session_entries WHERE session_id=? ORDER BY id", sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SessionEntry
	for rows.Next() {
		var e model.SessionEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.GoalID, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetNote returns the session's note or ErrNotFound when none exists.
func (r *SessionRepo) GetNote(ctx context.Context, sessionID int64) (model.SessionNote, error) {
	var n model.SessionNote
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, session_id, soap_text FROM session_notes WHERE session_id=? LIMIT 1", sessionID).
		Scan(&n.ID, &n.SessionID, &n.SoapText)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionNote{}, ErrNotFound
	}
	return n, err
}

// UpsertNote creates the session's singleton note or overwrites its SOAP
// text, relying on the unique session_id index.
func (r *SessionRepo) UpsertNote(ctx context.Context, sessionID int64, soapText string) (model.SessionNote, error) {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO session_notes (session_id, soap_text) VALUES (?,?) ON DUPLICATE KEY UPDATE soap_text=VALUES(soap_text)",
		sessionID, soapText)
	if err != nil {
		return model.SessionNote{}, err
	}
	return r.GetNote(ctx, sessionID)
}

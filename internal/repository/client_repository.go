package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/theratrack/theratrack-api/internal/model"
)

// ClientRepo persists clients.
type ClientRepo struct{ DB *sql.DB }

func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{DB: db} }

func scanClient(row interface{ Scan(...any) error }) (model.Client, error) {
	var (
		c        model.Client
		assigned sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &assigned); err != nil {
		return model.Client{}, err
	}
	if assigned.Valid {
		c.AssignedClinicianID = &assigned.Int64
	}
	return c, nil
}

// List returns clients, optionally filtered to those assigned to one
// clinician. A nil filter returns everything (admin scope).
func (r *ClientRepo) List(ctx context.Context, assignedClinicianID *int64) ([]model.Client, error) {
	query := "SELECT id, name, assigned_clinician_id FROM clients"
	var args []any
	if assignedClinicianID != nil {
		query += " WHERE assigned_clinician_id=?"
		args = append(args, *assignedClinicianID)
	}
	query += " ORDER BY id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a client and returns it with its new id.
func (r *ClientRepo) Create(ctx context.Context, name string, assignedClinicianID *int64) (model.Client, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO clients (name, assigned_clinician_id) VALUES (?,?)",
		name, assignedClinicianID)
	if err != nil {
		return model.Client{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Client{}, err
	}
	return model.Client{ID: id, Name: name, AssignedClinicianID: assignedClinicianID}, nil
}

// Update rewrites a client's name and assignment. ErrNotFound when the id
// does not exist.
func (r *ClientRepo) Update(ctx context.Context, id int64, name string, assignedClinicianID *int64) (model.Client, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE clients SET name=?, assigned_clinician_id=? WHERE id=?",
		name, assignedClinicianID, id)
	if err != nil {
		return model.Client{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Distinguish a missing row from a no-op update on identical values.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return model.Client{}, getErr
		}
	}
	return model.Client{ID: id, Name: name, AssignedClinicianID: assignedClinicianID}, nil
}

// GetByID fetches a client by id.
func (r *ClientRepo) GetByID(ctx context.Context, id int64) (model.Client, error) {
	c, err := scanClient(r.DB.QueryRowContext(ctx,
		"SELECT id, name, assigned_clinician_id FROM clients WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Client{}, ErrNotFound
	}
	return c, err
}

// Exists reports whether a client row exists.
func (r *ClientRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(1) FROM clients WHERE id=?", id).Scan(&n)
	return n > 0, err
}

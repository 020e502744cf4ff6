package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/theratrack/theratrack-api/internal/model"
)

// GoalRepo persists goals. Clinician scoping for goals runs through the
// owning client's assignment, so the list query joins clients.
type GoalRepo struct{ DB *sql.DB }

func NewGoalRepo(db *sql.DB) *GoalRepo { return &GoalRepo{DB: db} }

// List returns goals ordered by client then title. clientID narrows to one
// client when non-nil; assignedClinicianID applies the clinician scope
// (goals of clients assigned to that clinician) when non-nil.
func (r *GoalRepo) List(ctx context.Context, clientID, assignedClinicianID *int64) ([]model.Goal, error) {
	query := "SELECT g.id, g.client_id, g.title, g.measure_type FROM goals g JOIN clients c ON c.id = g.client_id"
	var (
		conds []string
		args  []any
	)
	if clientID != nil {
		conds = append(conds, "g.client_id=?")
		args = append(args, *clientID)
	}
	if assignedClinicianID != nil {
		conds = append(conds, "c.assigned_clinician_id=?")
		args = append(args, *assignedClinicianID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY g.client_id, g.title"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Goal
	for rows.Next() {
		var (
			g  model.Goal
			mt string
		)
		if err := rows.Scan(&g.ID, &g.ClientID, &g.Title, &mt); err != nil {
			return nil, err
		}
		g.MeasureType = model.MeasureType(mt)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Create inserts a goal for an existing client.
func (r *GoalRepo) Create(ctx context.Context, clientID int64, title string, measure model.MeasureType) (model.Goal, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO goals (client_id, title, measure_type) VALUES (?,?,?)",
		clientID, title, string(measure))
	if err != nil {
		return model.Goal{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Goal{}, err
	}
	return model.Goal{ID: id, ClientID: clientID, Title: title, MeasureType: measure}, nil
}

// GetByID fetches a goal by id.
func (r *GoalRepo) GetByID(ctx context.Context, id int64) (model.Goal, error) {
	var (
		g  model.Goal
		mt string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, client_id, title, measure_type FROM goals WHERE id=? LIMIT 1", id).
		Scan(&g.ID, &g.ClientID, &g.Title, &mt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Goal{}, ErrNotFound
	}
	if err != nil {
		return model.Goal{}, err
	}
	g.MeasureType = model.MeasureType(mt)
	return g, nil
}

// Update rewrites a goal's title and measure type.
func (r *GoalRepo) Update(ctx context.Context, id int64, title string, measure model.MeasureType) (model.Goal, error) {
	g, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Goal{}, err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE goals SET title=?, measure_type=? WHERE id=?",
		title, string(measure), id)
	if err != nil {
		return model.Goal{}, err
	}
	g.Title = title
	g.MeasureType = measure
	return g, nil
}

// Delete removes a goal. ErrNotFound when nothing was deleted.
func (r *GoalRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM goals WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

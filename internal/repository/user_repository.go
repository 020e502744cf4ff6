package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/model"
)

// UserRepo persists user accounts and their single active refresh token.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, name, email, role, hourly_rate_cents, password_hash, refresh_token_hash, refresh_token_expires_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u    model.User
		role string
		hash sql.NullString
		exp  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.HourlyRateCents, &u.PasswordHash, &hash, &exp)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if hash.Valid {
		u.RefreshTokenHash = &hash.String
	}
	if exp.Valid {
		t := exp.Time.UTC()
		u.RefreshTokenExpiresAt = &t
	}
	return u, nil
}

// Create inserts a user, hashing the password with bcrypt, and returns the
// new id. Duplicate emails surface as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, role model.Role, hourlyRateCents, bcryptCost int) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := auth.HashPassword(password, bcryptCost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, role, hourly_rate_cents, password_hash) VALUES (?,?,?,?,?)",
		name, email, string(role), hourlyRateCents, hash)
	if err != nil {
		// MySQL 1062 = duplicate key (unique email index)
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// StoreRefresh overwrites the user's refresh token hash and expiry. The
// previous token, if any, is implicitly revoked by the overwrite.
func (r *UserRepo) StoreRefresh(ctx context.Context, userID int64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=?, refresh_token_expires_at=? WHERE id=?",
		tokenHash, exp, userID)
	return err
}

// RefreshCandidates returns all users holding a non-expired refresh token
// hash. Hash verification cannot be pushed into SQL, so the refresh flow
// scans these rows and compares in memory; O(active users) per call, which
// is acceptable at this scale.
func (r *UserRepo) RefreshCandidates(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE refresh_token_hash IS NOT NULL AND refresh_token_expires_at > UTC_TIMESTAMP()")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListClinicians returns all users with the CLINICIAN role.
func (r *UserRepo) ListClinicians(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? ORDER BY name", string(model.RoleClinician))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ClinicianExists reports whether a user with the given id exists and holds
// the CLINICIAN role. Used to validate session creation.
func (r *UserRepo) ClinicianExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE id=? AND role=?", id, string(model.RoleClinician)).Scan(&n)
	return n > 0, err
}

// Package repository provides data access for user accounts.
package repository

import (
	"context"
	"errors"
	"time"

	"quotebuilder_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User is an account row.
type User struct {
	ID                    uuid.UUID
	Email                 string
	PasswordHash          string
	Tier                  string
	DefaultMarkupPercent  *float64
	DefaultLaborRateCents *int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// UpdateDefaultsParams holds the optional per-user quoting defaults.
type UpdateDefaultsParams struct {
	UserID                uuid.UUID
	DefaultMarkupPercent  *float64
	DefaultLaborRateCents *int64
}

// Repository provides Postgres access to users.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new identity repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, tier, default_markup_percent, default_labor_rate_cents, created_at, updated_at`

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordHash, user.Tier,
		user.DefaultMarkupPercent, user.DefaultLaborRateCents,
		user.CreatedAt, user.UpdatedAt)
	return err
}

// GetByEmail retrieves a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpdateDefaults stores the user's quoting defaults.
func (r *Repository) UpdateDefaults(ctx context.Context, params UpdateDefaultsParams) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET default_markup_percent = $2, default_labor_rate_cents = $3, updated_at = $4
		 WHERE id = $1`,
		params.UserID, params.DefaultMarkupPercent, params.DefaultLaborRateCents, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Tier,
		&u.DefaultMarkupPercent, &u.DefaultLaborRateCents, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &u, nil
}

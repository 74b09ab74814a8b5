package user

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles user data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new user repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UserByID retrieves a user by ID
func (r *Repository) UserByID(ctx context.Context, userID string) (*User, error) {
	query := `
		SELECT user_id, name, primary_circle_id, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	u := &User{}
	var primaryCircleID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID,
		&u.Name,
		&primaryCircleID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if primaryCircleID.Valid {
		u.PrimaryCircleID = &primaryCircleID.Int64
	}

	return u, nil
}

// UpsertUser inserts the user or refreshes the display name
func (r *Repository) UpsertUser(ctx context.Context, in *User) (*User, error) {
	query := `
		INSERT INTO users (user_id, name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING user_id, name, primary_circle_id, created_at, updated_at
	`

	u := &User{}
	var primaryCircleID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, in.ID, in.Name).Scan(
		&u.ID,
		&u.Name,
		&primaryCircleID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if primaryCircleID.Valid {
		u.PrimaryCircleID = &primaryCircleID.Int64
	}

	return u, nil
}

package circle

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles circle data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new circle repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateCircle inserts a new circle. Duplicate names are allowed.
func (r *Repository) CreateCircle(ctx context.Context, name, createdBy string) (*Circle, error) {
	query := `
		INSERT INTO circles (name, created_by)
		VALUES ($1, $2)
		RETURNING id, name, created_by, created_at
	`

	c := &Circle{}
	err := r.db.QueryRowContext(ctx, query, name, createdBy).Scan(
		&c.ID,
		&c.Name,
		&c.CreatedBy,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create circle: %w", err)
	}

	return c, nil
}

// CircleByID retrieves a circle by its ID
func (r *Repository) CircleByID(ctx context.Context, id int64) (*Circle, error) {
	query := `
		SELECT id, name, created_by, created_at
		FROM circles
		WHERE id = $1
	`

	c := &Circle{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.CreatedBy,
		&c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get circle: %w", err)
	}

	return c, nil
}

// CirclesByName retrieves all circles with the exact given name
func (r *Repository) CirclesByName(ctx context.Context, name string) ([]*Circle, error) {
	query := `
		SELECT id, name, created_by, created_at
		FROM circles
		WHERE name = $1
		ORDER BY created_at
	`

	return r.queryCircles(ctx, query, name)
}

// SearchCircles finds circles by case-insensitive substring match
func (r *Repository) SearchCircles(ctx context.Context, query string) ([]*Circle, error) {
	q := `
		SELECT id, name, created_by, created_at
		FROM circles
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT 20
	`

	return r.queryCircles(ctx, q, "%"+query+"%")
}

// CirclesForUser lists the circles the user is an active member of,
// most recently joined first
func (r *Repository) CirclesForUser(ctx context.Context, userID string) ([]*Circle, error) {
	query := `
		SELECT c.id, c.name, c.created_by, c.created_at
		FROM circles c
		JOIN user_circles uc ON c.id = uc.circle_id
		WHERE uc.user_id = $1 AND uc.status = 'active'
		ORDER BY uc.joined_at DESC
	`

	return r.queryCircles(ctx, query, userID)
}

func (r *Repository) queryCircles(ctx context.Context, query string, args ...interface{}) ([]*Circle, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query circles: %w", err)
	}
	defer rows.Close()

	var circles []*Circle
	for rows.Next() {
		c := &Circle{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan circle: %w", err)
		}
		circles = append(circles, c)
	}

	return circles, rows.Err()
}

// Membership retrieves a user's membership row regardless of status
func (r *Repository) Membership(ctx context.Context, userID string, circleID int64) (*Membership, error) {
	query := `
		SELECT id, user_id, circle_id, status, joined_at, left_at
		FROM user_circles
		WHERE user_id = $1 AND circle_id = $2
	`

	m := &Membership{}
	var leftAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID, circleID).Scan(
		&m.ID,
		&m.UserID,
		&m.CircleID,
		&m.Status,
		&m.JoinedAt,
		&leftAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	if leftAt.Valid {
		m.LeftAt = &leftAt.Time
	}

	return m, nil
}

// Enroll activates the membership in a single statement, so two racing
// joins cannot double-enroll: a fresh row is inserted, a left or removed
// one is reactivated with the join timestamp refreshed, and an already
// active row updates nothing and reports ErrAlreadyMember.
func (r *Repository) Enroll(ctx context.Context, circleID int64, userID string) error {
	query := `
		INSERT INTO user_circles (user_id, circle_id, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (user_id, circle_id) DO UPDATE
		SET status = 'active', joined_at = NOW(), left_at = NULL
		WHERE user_circles.status <> 'active'
	`

	result, err := r.db.ExecContext(ctx, query, userID, circleID)
	if err != nil {
		return fmt.Errorf("failed to enroll member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyMember
	}

	return nil
}

// DeactivateMember marks an active membership as left or removed
func (r *Repository) DeactivateMember(ctx context.Context, userID string, circleID int64, status MembershipStatus) error {
	query := `
		UPDATE user_circles
		SET status = $3, left_at = NOW()
		WHERE user_id = $1 AND circle_id = $2 AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, userID, circleID, status)
	if err != nil {
		return fmt.Errorf("failed to deactivate member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotMember
	}

	return nil
}

// Members lists active members with their display names
func (r *Repository) Members(ctx context.Context, circleID int64, excludeUserID string) ([]*Member, error) {
	query := `
		SELECT u.user_id, u.name, uc.joined_at
		FROM users u
		JOIN user_circles uc ON u.user_id = uc.user_id
		WHERE uc.circle_id = $1 AND uc.status = 'active' AND u.user_id != $2
		ORDER BY u.name
	`

	rows, err := r.db.QueryContext(ctx, query, circleID, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.UserID, &m.Name, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// PrimaryCircleID returns the user's primary circle id, if set
func (r *Repository) PrimaryCircleID(ctx context.Context, userID string) (int64, bool, error) {
	query := `SELECT primary_circle_id FROM users WHERE user_id = $1`

	var primaryID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&primaryID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get primary circle: %w", err)
	}

	if !primaryID.Valid {
		return 0, false, nil
	}
	return primaryID.Int64, true, nil
}

// SetPrimaryCircle points the user's primary circle at the given circle
func (r *Repository) SetPrimaryCircle(ctx context.Context, userID string, circleID int64) error {
	query := `UPDATE users SET primary_circle_id = $1, updated_at = NOW() WHERE user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, circleID, userID); err != nil {
		return fmt.Errorf("failed to set primary circle: %w", err)
	}
	return nil
}

// SetPrimaryCircleIfUnset sets the pointer only while the user has no
// primary circle; the guard runs in the same statement as the write
func (r *Repository) SetPrimaryCircleIfUnset(ctx context.Context, userID string, circleID int64) error {
	query := `
		UPDATE users
		SET primary_circle_id = $1, updated_at = NOW()
		WHERE user_id = $2 AND primary_circle_id IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, circleID, userID); err != nil {
		return fmt.Errorf("failed to set primary circle: %w", err)
	}
	return nil
}

// ClearPrimaryCircle unsets the user's primary circle only while it
// still points at the given circle
func (r *Repository) ClearPrimaryCircle(ctx context.Context, userID string, circleID int64) error {
	query := `
		UPDATE users
		SET primary_circle_id = NULL, updated_at = NOW()
		WHERE user_id = $1 AND primary_circle_id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, userID, circleID); err != nil {
		return fmt.Errorf("failed to clear primary circle: %w", err)
	}
	return nil
}

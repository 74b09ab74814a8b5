package event

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles event data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new event repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateEvent inserts the event and its participant rows in one
// transaction so a half-created event can never be observed.
func (r *Repository) CreateEvent(ctx context.Context, e *Event, participants []*Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	eventQuery := `
		INSERT INTO events (circle_id, event_name, organizer_id, total_amount, split_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRowContext(ctx, eventQuery,
		e.CircleID, e.Name, e.OrganizerID, e.TotalAmount, e.SplitAmount, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	participantQuery := `
		INSERT INTO event_participants (event_id, user_id, user_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	for _, p := range participants {
		p.EventID = e.ID
		err = tx.QueryRowContext(ctx, participantQuery, e.ID, p.UserID, p.UserName).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}

	return nil
}

// EventByID retrieves an event by its ID
func (r *Repository) EventByID(ctx context.Context, id int64) (*Event, error) {
	query := `
		SELECT id, circle_id, event_name, organizer_id, total_amount, split_amount, status, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	e := &Event{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID,
		&e.CircleID,
		&e.Name,
		&e.OrganizerID,
		&e.TotalAmount,
		&e.SplitAmount,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return e, nil
}

// EventsForUser retrieves events the user organizes or participates in,
// newest first
func (r *Repository) EventsForUser(ctx context.Context, userID string) ([]*Event, error) {
	query := `
		SELECT e.id, e.circle_id, e.event_name, e.organizer_id, e.total_amount, e.split_amount, e.status, e.created_at, e.updated_at
		FROM events e
		LEFT JOIN event_participants ep ON ep.event_id = e.id AND ep.user_id = $1
		WHERE e.organizer_id = $1 OR ep.user_id IS NOT NULL
		ORDER BY e.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(
			&e.ID,
			&e.CircleID,
			&e.Name,
			&e.OrganizerID,
			&e.TotalAmount,
			&e.SplitAmount,
			&e.Status,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// Participants retrieves the event's participant rows in enrollment order
func (r *Repository) Participants(ctx context.Context, eventID int64) ([]*Participant, error) {
	query := `
		SELECT id, event_id, user_id, user_name, reported, reported_at, approved_at, created_at
		FROM event_participants
		WHERE event_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// Participant retrieves one participant row by event and user
func (r *Repository) Participant(ctx context.Context, eventID int64, userID string) (*Participant, error) {
	query := `
		SELECT id, event_id, user_id, user_name, reported, reported_at, approved_at, created_at
		FROM event_participants
		WHERE event_id = $1 AND user_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, eventID, userID)
	p, err := scanParticipant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return p, nil
}

// MarkReported stamps the participant's payment report
func (r *Repository) MarkReported(ctx context.Context, eventID int64, userID string) (*Participant, error) {
	query := `
		UPDATE event_participants
		SET reported = TRUE, reported_at = NOW()
		WHERE event_id = $1 AND user_id = $2
		RETURNING id, event_id, user_id, user_name, reported, reported_at, approved_at, created_at
	`

	row := r.db.QueryRowContext(ctx, query, eventID, userID)
	p, err := scanParticipant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark reported: %w", err)
	}

	return p, nil
}

// CircleMembers maps the circle's active member ids to display names
func (r *Repository) CircleMembers(ctx context.Context, circleID int64) (map[string]string, error) {
	query := `
		SELECT u.user_id, u.name
		FROM users u
		JOIN user_circles uc ON u.user_id = uc.user_id
		WHERE uc.circle_id = $1 AND uc.status = 'active'
	`

	rows, err := r.db.QueryContext(ctx, query, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get circle members: %w", err)
	}
	defer rows.Close()

	members := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members[id] = name
	}

	return members, rows.Err()
}

// UnpaidParticipants lists unreported, unapproved participants of active
// events, oldest enrollment first
func (r *Repository) UnpaidParticipants(ctx context.Context) ([]*UnpaidParticipant, error) {
	query := `
		SELECT ep.user_id, ep.event_id, e.event_name, e.split_amount, ep.created_at
		FROM event_participants ep
		JOIN events e ON ep.event_id = e.id
		WHERE ep.reported = FALSE
		  AND ep.approved_at IS NULL
		  AND e.status IN ('confirmed', 'selecting')
		ORDER BY ep.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpaid participants: %w", err)
	}
	defer rows.Close()

	var participants []*UnpaidParticipant
	for rows.Next() {
		p := &UnpaidParticipant{}
		if err := rows.Scan(&p.UserID, &p.EventID, &p.EventName, &p.SplitAmount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unpaid participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// PaymentStatuses returns the user's payment overview, newest first
func (r *Repository) PaymentStatuses(ctx context.Context, userID string) ([]*PaymentStatus, error) {
	query := `
		SELECT e.id, e.event_name, e.split_amount, ep.reported, ep.approved_at IS NOT NULL
		FROM events e
		JOIN event_participants ep ON e.id = ep.event_id
		WHERE ep.user_id = $1
		ORDER BY e.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*PaymentStatus
	for rows.Next() {
		s := &PaymentStatus{}
		if err := rows.Scan(&s.EventID, &s.EventName, &s.Amount, &s.Reported, &s.Approved); err != nil {
			return nil, fmt.Errorf("failed to scan payment status: %w", err)
		}
		statuses = append(statuses, s)
	}

	return statuses, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanParticipant(row rowScanner) (*Participant, error) {
	p := &Participant{}
	var reportedAt, approvedAt sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.EventID,
		&p.UserID,
		&p.UserName,
		&p.Reported,
		&reportedAt,
		&approvedAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reportedAt.Valid {
		p.ReportedAt = &reportedAt.Time
	}
	if approvedAt.Valid {
		p.ApprovedAt = &approvedAt.Time
	}

	return p, nil
}

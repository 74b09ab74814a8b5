package approval

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Repository handles approval data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new approval repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PendingForOrganizer lists reported-but-unapproved participants across the
// organizer's events, most recently reported first
func (r *Repository) PendingForOrganizer(ctx context.Context, organizerID string) ([]*Approval, error) {
	query := `
		SELECT ep.id, ep.event_id, ep.user_id, ep.user_name, e.event_name, e.split_amount, ep.reported_at
		FROM event_participants ep
		JOIN events e ON ep.event_id = e.id
		WHERE e.organizer_id = $1
		  AND ep.reported = TRUE
		  AND ep.approved_at IS NULL
		ORDER BY ep.reported_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*Approval
	for rows.Next() {
		a := &Approval{}
		var reportedAt sql.NullTime
		if err := rows.Scan(&a.ParticipantID, &a.EventID, &a.UserID, &a.UserName, &a.EventName, &a.Amount, &reportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}
		if reportedAt.Valid {
			a.ReportedAt = &reportedAt.Time
		}
		approvals = append(approvals, a)
	}

	return approvals, rows.Err()
}

// Approve flips the selected participant rows to approved and completes any
// event whose participants are all approved afterwards. The selected rows and
// their events are locked for the duration of the transaction so the
// completion check cannot race a concurrent approve.
func (r *Repository) Approve(ctx context.Context, organizerID string, participantIDs []int64) (*Result, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lockQuery := `
		SELECT ep.id, ep.event_id, ep.user_id, ep.user_name, e.event_name, e.split_amount, e.organizer_id, u.name, ep.approved_at
		FROM event_participants ep
		JOIN events e ON ep.event_id = e.id
		JOIN users u ON u.user_id = e.organizer_id
		WHERE ep.id = ANY($1)
		FOR UPDATE OF ep, e
	`

	rows, err := tx.QueryContext(ctx, lockQuery, pq.Array(participantIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to lock participants: %w", err)
	}

	type lockedRow struct {
		participant *ApprovedParticipant
		organizerID string
		approvedAt  sql.NullTime
	}

	locked := make(map[int64]*lockedRow, len(participantIDs))
	for rows.Next() {
		lr := &lockedRow{participant: &ApprovedParticipant{}}
		p := lr.participant
		if err := rows.Scan(&p.ParticipantID, &p.EventID, &p.UserID, &p.UserName, &p.EventName, &p.Amount, &lr.organizerID, &p.OrganizerName, &lr.approvedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan locked participant: %w", err)
		}
		locked[p.ParticipantID] = lr
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read locked participants: %w", err)
	}
	rows.Close()

	result := &Result{}
	var newlyApproved []int64
	eventIDs := make(map[int64]struct{})

	for _, id := range participantIDs {
		lr, ok := locked[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrParticipantNotFound, id)
		}
		if lr.organizerID != organizerID {
			return nil, ErrNotOrganizer
		}
		if lr.approvedAt.Valid {
			// Already approved, skip without re-notifying
			continue
		}
		newlyApproved = append(newlyApproved, id)
		result.Approved = append(result.Approved, lr.participant)
		eventIDs[lr.participant.EventID] = struct{}{}
	}

	if len(newlyApproved) > 0 {
		approveQuery := `
			UPDATE event_participants
			SET approved_at = NOW()
			WHERE id = ANY($1)
		`
		if _, err := tx.ExecContext(ctx, approveQuery, pq.Array(newlyApproved)); err != nil {
			return nil, fmt.Errorf("failed to approve participants: %w", err)
		}
	}

	completeQuery := `
		UPDATE events
		SET status = 'completed', updated_at = NOW()
		WHERE id = $1
		  AND status <> 'completed'
		  AND NOT EXISTS (
			SELECT 1 FROM event_participants
			WHERE event_id = $1 AND approved_at IS NULL
		  )
	`

	for eventID := range eventIDs {
		res, err := tx.ExecContext(ctx, completeQuery, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to complete event: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check event completion: %w", err)
		}
		if affected > 0 {
			result.CompletedEventIDs = append(result.CompletedEventIDs, eventID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	return result, nil
}

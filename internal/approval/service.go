package approval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hiroyukim/warikan/internal/notification"
)

// Common errors
var (
	ErrNoneSelected        = errors.New("at least one participant must be selected")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotOrganizer        = errors.New("only the event organizer may approve payments")
)

// Store is the persistence interface the service depends on
type Store interface {
	// PendingForOrganizer lists reported-but-unapproved participant rows
	// across the organizer's events, most recently reported first.
	PendingForOrganizer(ctx context.Context, organizerID string) ([]*Approval, error)

	// Approve flips the given participant rows to approved on behalf of
	// the organizer and completes every event whose participants are all
	// approved afterwards. The check and the transition are atomic per
	// event. It fails with ErrParticipantNotFound if any id is unknown
	// and ErrNotOrganizer if any row's event belongs to someone else;
	// in either case nothing is changed.
	Approve(ctx context.Context, organizerID string, participantIDs []int64) (*Result, error)
}

// Service presents and mutates the pending-approval queue
type Service struct {
	store      Store
	dispatcher notification.Dispatcher
}

// NewService creates a new approval service
func NewService(store Store, dispatcher notification.Dispatcher) *Service {
	return &Service{store: store, dispatcher: dispatcher}
}

// ListPending returns the organizer's approval queue
func (s *Service) ListPending(ctx context.Context, organizerID string) ([]*Approval, error) {
	return s.store.PendingForOrganizer(ctx, organizerID)
}

// Approve bulk-approves participant rows and notifies each participant
// whose row flipped. Already-approved ids are no-ops and not counted.
// Returns the number of newly approved rows.
func (s *Service) Approve(ctx context.Context, organizerID string, participantIDs []int64) (int, error) {
	if len(participantIDs) == 0 {
		return 0, ErrNoneSelected
	}

	result, err := s.store.Approve(ctx, organizerID, dedupe(participantIDs))
	if err != nil {
		return 0, err
	}

	slog.Info("payments approved",
		"organizer", organizerID,
		"approved", len(result.Approved),
		"completed_events", len(result.CompletedEventIDs),
	)

	// Delivery failures never roll back the approval
	for _, p := range result.Approved {
		message := notification.PaymentApproved(p.OrganizerName, p.EventName, p.Amount)
		if err := s.dispatcher.Dispatch(ctx, p.UserID, message); err != nil {
			slog.Error("approval notification failed", "participant_id", p.ParticipantID, "user_id", p.UserID, "error", err)
		}
	}

	return len(result.Approved), nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

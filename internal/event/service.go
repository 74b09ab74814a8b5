package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hiroyukim/warikan/internal/notification"
)

// Common errors
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidName         = errors.New("event name must not be empty")
	ErrInvalidAmount       = errors.New("total amount must be positive")
	ErrNoParticipants      = errors.New("at least one participant is required")
	ErrNotCircleMember     = errors.New("user is not a member of the circle")
)

// Store is the persistence interface the service depends on.
// Lookups return nil, nil when the row does not exist.
type Store interface {
	// CreateEvent persists the event and its participant rows atomically,
	// filling in the generated ids and timestamps.
	CreateEvent(ctx context.Context, e *Event, participants []*Participant) error
	EventByID(ctx context.Context, id int64) (*Event, error)
	// EventsForUser returns events the user organizes or participates in,
	// newest first.
	EventsForUser(ctx context.Context, userID string) ([]*Event, error)
	Participants(ctx context.Context, eventID int64) ([]*Participant, error)
	Participant(ctx context.Context, eventID int64, userID string) (*Participant, error)
	MarkReported(ctx context.Context, eventID int64, userID string) (*Participant, error)

	// CircleMembers maps active member ids of a circle to display names
	CircleMembers(ctx context.Context, circleID int64) (map[string]string, error)
	// UnpaidParticipants lists unreported, unapproved participants of
	// active events across all circles (reminder sweep).
	UnpaidParticipants(ctx context.Context) ([]*UnpaidParticipant, error)
	PaymentStatuses(ctx context.Context, userID string) ([]*PaymentStatus, error)
}

// Service handles event creation, split computation and payment reports
type Service struct {
	store      Store
	dispatcher notification.Dispatcher
}

// NewService creates a new event service
func NewService(store Store, dispatcher notification.Dispatcher) *Service {
	return &Service{store: store, dispatcher: dispatcher}
}

// Create creates an event in the circle and enrolls the selected members
// as participants, each owing the floor share of the total. Every
// participant (and the organizer) must be an active member of the circle.
// The event starts in the confirmed state and each participant is
// notified of their share.
func (s *Service) Create(ctx context.Context, circleID int64, organizerID, name string, totalAmount int64, participantIDs []string) (*Event, []*Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, ErrInvalidName
	}
	if totalAmount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if len(participantIDs) == 0 {
		return nil, nil, ErrNoParticipants
	}

	members, err := s.store.CircleMembers(ctx, circleID)
	if err != nil {
		return nil, nil, err
	}

	organizerName, ok := members[organizerID]
	if !ok {
		return nil, nil, ErrNotCircleMember
	}

	ids := dedupe(participantIDs)
	participants := make([]*Participant, len(ids))
	for i, id := range ids {
		memberName, ok := members[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotCircleMember, id)
		}
		participants[i] = &Participant{
			UserID:   id,
			UserName: memberName,
		}
	}

	e := &Event{
		CircleID:    circleID,
		Name:        name,
		OrganizerID: organizerID,
		TotalAmount: totalAmount,
		SplitAmount: SplitAmount(totalAmount, len(ids)),
		Status:      StatusConfirmed,
	}

	if err := s.store.CreateEvent(ctx, e, participants); err != nil {
		return nil, nil, err
	}

	slog.Info("event created",
		"event_id", e.ID,
		"circle_id", circleID,
		"organizer", organizerID,
		"total", totalAmount,
		"split", e.SplitAmount,
		"participants", len(participants),
	)

	// Delivery failures never roll back the event
	message := notification.EventCreated(organizerName, e.Name, e.SplitAmount)
	for _, p := range participants {
		if err := s.dispatcher.Dispatch(ctx, p.UserID, message); err != nil {
			slog.Error("participant notification failed", "event_id", e.ID, "user_id", p.UserID, "error", err)
		}
	}

	return e, participants, nil
}

// Report records a participant's self-reported payment. Reporting twice
// is a no-op that returns the current row.
func (s *Service) Report(ctx context.Context, eventID int64, userID string) (*Participant, error) {
	e, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}

	p, err := s.store.Participant(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	if p.Reported {
		return p, nil
	}

	updated, err := s.store.MarkReported(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	slog.Info("payment reported", "event_id", eventID, "user_id", userID)
	return updated, nil
}

// Get retrieves an event with its participants
func (s *Service) Get(ctx context.Context, eventID int64) (*Event, []*Participant, error) {
	e, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, nil, ErrEventNotFound
	}

	participants, err := s.store.Participants(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}

	return e, participants, nil
}

// ListForUser returns the events the user organizes or participates in,
// newest first
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Event, error) {
	return s.store.EventsForUser(ctx, userID)
}

// PaymentStatuses returns the user's payment overview, newest first
func (s *Service) PaymentStatuses(ctx context.Context, userID string) ([]*PaymentStatus, error) {
	return s.store.PaymentStatuses(ctx, userID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package event_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hiroyukim/warikan/internal/circle"
	"github.com/hiroyukim/warikan/internal/event"
	"github.com/hiroyukim/warikan/internal/storage/memory"
	"github.com/hiroyukim/warikan/internal/user"
)

// recordingDispatcher captures outbound notifications for assertions
type recordingDispatcher struct {
	sent []sentMessage
	err  error
}

type sentMessage struct {
	userID  string
	message string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, userID, message string) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, sentMessage{userID: userID, message: message})
	return nil
}

// setupEventService builds a circle with the given members, the first of
// which is the creator
func setupEventService(t *testing.T, memberIDs ...string) (*event.Service, *recordingDispatcher, *memory.Store, int64) {
	t.Helper()

	store := memory.NewStore()
	userSvc := user.NewService(store)
	circleSvc := circle.NewService(store)
	ctx := context.Background()

	for i, id := range memberIDs {
		if _, err := userSvc.Register(ctx, id, "User "+fmt.Sprint(i)); err != nil {
			t.Fatalf("Register(%s) failed: %v", id, err)
		}
	}

	c, err := circleSvc.Create(ctx, memberIDs[0], "Tennis Club")
	if err != nil {
		t.Fatalf("Create circle failed: %v", err)
	}
	for _, id := range memberIDs[1:] {
		if _, err := circleSvc.Join(ctx, id, c.ID); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}

	dispatcher := &recordingDispatcher{}
	return event.NewService(store, dispatcher), dispatcher, store, c.ID
}

func TestCreateEvent(t *testing.T) {
	svc, dispatcher, _, circleID := setupEventService(t, "alice", "bob", "carol")
	ctx := context.Background()

	e, participants, err := svc.Create(ctx, circleID, "alice", "Dinner", 10000, []string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if e.ID == 0 {
		t.Error("expected non-zero event ID")
	}
	if e.Status != event.StatusConfirmed {
		t.Errorf("status: expected confirmed, got %s", e.Status)
	}
	if e.TotalAmount != 10000 {
		t.Errorf("total: expected 10000, got %d", e.TotalAmount)
	}
	if e.SplitAmount != 3333 {
		t.Errorf("split: expected 3333, got %d", e.SplitAmount)
	}
	if len(participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(participants))
	}
	for _, p := range participants {
		if p.Reported || p.Approved() {
			t.Errorf("participant %s should start unreported and unapproved", p.UserID)
		}
	}

	// Every participant gets a share notification
	if len(dispatcher.sent) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(dispatcher.sent))
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	svc, _, _, circleID := setupEventService(t, "alice", "bob")
	ctx := context.Background()

	tests := []struct {
		name         string
		eventName    string
		total        int64
		participants []string
		wantErr      error
	}{
		{
			name:         "empty name",
			eventName:    "  ",
			total:        1000,
			participants: []string{"alice"},
			wantErr:      event.ErrInvalidName,
		},
		{
			name:         "zero amount",
			eventName:    "Dinner",
			total:        0,
			participants: []string{"alice"},
			wantErr:      event.ErrInvalidAmount,
		},
		{
			name:         "negative amount",
			eventName:    "Dinner",
			total:        -500,
			participants: []string{"alice"},
			wantErr:      event.ErrInvalidAmount,
		},
		{
			name:         "no participants",
			eventName:    "Dinner",
			total:        1000,
			participants: nil,
			wantErr:      event.ErrNoParticipants,
		},
		{
			name:         "participant outside the circle",
			eventName:    "Dinner",
			total:        1000,
			participants: []string{"alice", "mallory"},
			wantErr:      event.ErrNotCircleMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Create(ctx, circleID, "alice", tt.eventName, tt.total, tt.participants)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateEvent_OrganizerMustBeMember(t *testing.T) {
	svc, _, _, circleID := setupEventService(t, "alice", "bob")

	_, _, err := svc.Create(context.Background(), circleID, "mallory", "Dinner", 1000, []string{"alice"})
	if !errors.Is(err, event.ErrNotCircleMember) {
		t.Errorf("expected ErrNotCircleMember, got %v", err)
	}
}

func TestCreateEvent_DuplicateParticipants(t *testing.T) {
	svc, dispatcher, _, circleID := setupEventService(t, "alice", "bob")

	e, participants, err := svc.Create(context.Background(), circleID, "alice", "Dinner", 1000, []string{"alice", "bob", "bob", "alice"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(participants) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 participants, got %d", len(participants))
	}
	if e.SplitAmount != 500 {
		t.Errorf("split computed over deduped count: expected 500, got %d", e.SplitAmount)
	}
	if len(dispatcher.sent) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(dispatcher.sent))
	}
}

func TestCreateEvent_NotificationFailureDoesNotFail(t *testing.T) {
	svc, dispatcher, _, circleID := setupEventService(t, "alice", "bob")
	dispatcher.err = errors.New("push endpoint down")

	e, _, err := svc.Create(context.Background(), circleID, "alice", "Dinner", 1000, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("Create should survive notification failure, got %v", err)
	}
	if e.ID == 0 {
		t.Error("expected event to be persisted")
	}
}

func TestReportPayment(t *testing.T) {
	svc, _, _, circleID := setupEventService(t, "alice", "bob")
	ctx := context.Background()

	e, _, err := svc.Create(ctx, circleID, "alice", "Dinner", 1000, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	p, err := svc.Report(ctx, e.ID, "bob")
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !p.Reported || p.ReportedAt == nil {
		t.Error("expected participant marked reported with a timestamp")
	}

	// Reporting again is a no-op returning the same state
	again, err := svc.Report(ctx, e.ID, "bob")
	if err != nil {
		t.Fatalf("second Report failed: %v", err)
	}
	if !again.Reported {
		t.Error("expected participant to stay reported")
	}
	if !again.ReportedAt.Equal(*p.ReportedAt) {
		t.Error("expected reported_at unchanged on repeat report")
	}
}

func TestReportPayment_NotFound(t *testing.T) {
	svc, _, _, circleID := setupEventService(t, "alice", "bob", "carol")
	ctx := context.Background()

	if _, err := svc.Report(ctx, 999, "bob"); !errors.Is(err, event.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}

	e, _, err := svc.Create(ctx, circleID, "alice", "Dinner", 1000, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// carol is a circle member but not enrolled in this event
	if _, err := svc.Report(ctx, e.ID, "carol"); !errors.Is(err, event.ErrParticipantNotFound) {
		t.Errorf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestListForUser(t *testing.T) {
	svc, _, _, circleID := setupEventService(t, "alice", "bob", "carol")
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, circleID, "alice", "Dinner", 1000, []string{"bob"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := svc.Create(ctx, circleID, "bob", "Lunch", 2000, []string{"carol"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// bob organizes one event and participates in another
	events, err := svc.ListForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events for bob, got %d", len(events))
	}

	// alice only organizes
	events, err = svc.ListForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event for alice, got %d", len(events))
	}
}

func TestPaymentStatuses(t *testing.T) {
	svc, _, _, circleID := setupEventService(t, "alice", "bob")
	ctx := context.Background()

	first, _, err := svc.Create(ctx, circleID, "alice", "Dinner", 1000, []string{"bob"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := svc.Create(ctx, circleID, "alice", "Lunch", 3000, []string{"bob"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Report(ctx, first.ID, "bob"); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	statuses, err := svc.PaymentStatuses(ctx, "bob")
	if err != nil {
		t.Fatalf("PaymentStatuses failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}

	byEvent := make(map[int64]bool, len(statuses))
	for _, s := range statuses {
		byEvent[s.EventID] = s.Reported
		if s.Approved {
			t.Errorf("event %d should not be approved yet", s.EventID)
		}
	}
	if !byEvent[first.ID] {
		t.Error("expected the reported event to show reported=true")
	}
}

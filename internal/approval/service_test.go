package approval_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hiroyukim/warikan/internal/approval"
	"github.com/hiroyukim/warikan/internal/circle"
	"github.com/hiroyukim/warikan/internal/event"
	"github.com/hiroyukim/warikan/internal/storage/memory"
	"github.com/hiroyukim/warikan/internal/user"
)

type recordingDispatcher struct {
	sent []sentMessage
}

type sentMessage struct {
	userID  string
	message string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, userID, message string) error {
	d.sent = append(d.sent, sentMessage{userID: userID, message: message})
	return nil
}

type fixture struct {
	approvals *approval.Service
	events    *event.Service
	store     *memory.Store
	out       *recordingDispatcher
	circleID  int64
}

// newFixture builds a circle whose first member is the creator
func newFixture(t *testing.T, memberIDs ...string) *fixture {
	t.Helper()

	store := memory.NewStore()
	userSvc := user.NewService(store)
	circleSvc := circle.NewService(store)
	ctx := context.Background()

	for _, id := range memberIDs {
		if _, err := userSvc.Register(ctx, id, strings.ToUpper(id[:1])+id[1:]); err != nil {
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

	out := &recordingDispatcher{}
	return &fixture{
		approvals: approval.NewService(store, out),
		events:    event.NewService(store, out),
		store:     store,
		out:       out,
		circleID:  c.ID,
	}
}

// reportedEvent creates an event and reports payment for every participant
func (f *fixture) reportedEvent(t *testing.T, organizer, name string, total int64, participantIDs []string) (*event.Event, []*event.Participant) {
	t.Helper()
	ctx := context.Background()

	e, participants, err := f.events.Create(ctx, f.circleID, organizer, name, total, participantIDs)
	if err != nil {
		t.Fatalf("Create event failed: %v", err)
	}
	for _, p := range participants {
		if _, err := f.events.Report(ctx, e.ID, p.UserID); err != nil {
			t.Fatalf("Report(%s) failed: %v", p.UserID, err)
		}
	}
	f.out.sent = nil
	return e, participants
}

func TestListPending(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	e, _ := f.reportedEvent(t, "alice", "Dinner", 10000, []string{"bob", "carol"})

	pending, err := f.approvals.ListPending(ctx, "alice")
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending approvals, got %d", len(pending))
	}
	for _, a := range pending {
		if a.EventID != e.ID {
			t.Errorf("pending approval for event %d, want %d", a.EventID, e.ID)
		}
		if a.Amount != 5000 {
			t.Errorf("amount: expected 5000, got %d", a.Amount)
		}
		if a.ReportedAt == nil {
			t.Error("expected reported_at set")
		}
	}

	// Other users see an empty queue
	pending, err = f.approvals.ListPending(ctx, "bob")
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty queue for bob, got %d", len(pending))
	}
}

func TestApprove_PartialThenComplete(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	e, participants := f.reportedEvent(t, "alice", "Dinner", 10000, []string{"bob", "carol"})

	// Approve only bob's payment: the event must stay open
	count, err := f.approvals.Approve(ctx, "alice", []int64{participants[0].ID})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 newly approved, got %d", count)
	}

	got, _, err := f.events.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get event failed: %v", err)
	}
	if got.Status != event.StatusConfirmed {
		t.Errorf("expected event still confirmed after partial approval, got %s", got.Status)
	}

	if len(f.out.sent) != 1 || f.out.sent[0].userID != participants[0].UserID {
		t.Fatalf("expected one approval notification to %s, got %+v", participants[0].UserID, f.out.sent)
	}

	// Approving the last participant completes the event
	count, err = f.approvals.Approve(ctx, "alice", []int64{participants[1].ID})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 newly approved, got %d", count)
	}

	got, _, err = f.events.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get event failed: %v", err)
	}
	if got.Status != event.StatusCompleted {
		t.Errorf("expected event completed, got %s", got.Status)
	}

	pending, err := f.approvals.ListPending(ctx, "alice")
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty queue after full approval, got %d", len(pending))
	}
}

func TestApprove_Idempotent(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	_, participants := f.reportedEvent(t, "alice", "Dinner", 1000, []string{"bob"})

	count, err := f.approvals.Approve(ctx, "alice", []int64{participants[0].ID})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 newly approved, got %d", count)
	}

	// Repeating the approval neither counts nor re-notifies
	f.out.sent = nil
	count, err = f.approvals.Approve(ctx, "alice", []int64{participants[0].ID})
	if err != nil {
		t.Fatalf("repeat Approve failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 newly approved on repeat, got %d", count)
	}
	if len(f.out.sent) != 0 {
		t.Errorf("expected no notifications on repeat approval, got %d", len(f.out.sent))
	}
}

func TestApprove_DuplicateIDs(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	_, participants := f.reportedEvent(t, "alice", "Dinner", 1000, []string{"bob"})

	id := participants[0].ID
	count, err := f.approvals.Approve(ctx, "alice", []int64{id, id, id})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected duplicates collapsed to 1 approval, got %d", count)
	}
	if len(f.out.sent) != 1 {
		t.Errorf("expected 1 notification, got %d", len(f.out.sent))
	}
}

func TestApprove_Validation(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	_, participants := f.reportedEvent(t, "alice", "Dinner", 1000, []string{"bob"})

	if _, err := f.approvals.Approve(ctx, "alice", nil); !errors.Is(err, approval.ErrNoneSelected) {
		t.Errorf("expected ErrNoneSelected, got %v", err)
	}

	if _, err := f.approvals.Approve(ctx, "alice", []int64{999}); !errors.Is(err, approval.ErrParticipantNotFound) {
		t.Errorf("expected ErrParticipantNotFound, got %v", err)
	}

	// Only the organizer may approve
	if _, err := f.approvals.Approve(ctx, "carol", []int64{participants[0].ID}); !errors.Is(err, approval.ErrNotOrganizer) {
		t.Errorf("expected ErrNotOrganizer, got %v", err)
	}

	// A failed bulk approve changes nothing
	pending, err := f.approvals.ListPending(ctx, "alice")
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected queue untouched after failed approvals, got %d entries", len(pending))
	}
}

func TestApprove_MixedValidAndUnknownChangesNothing(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	e, participants := f.reportedEvent(t, "alice", "Dinner", 1000, []string{"bob", "carol"})

	_, err := f.approvals.Approve(ctx, "alice", []int64{participants[0].ID, 999})
	if !errors.Is(err, approval.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}

	// The valid id in the batch must not have been approved
	got, rows, err := f.events.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get event failed: %v", err)
	}
	if got.Status != event.StatusConfirmed {
		t.Errorf("expected event still confirmed, got %s", got.Status)
	}
	for _, p := range rows {
		if p.Approved() {
			t.Errorf("participant %s approved despite failed batch", p.UserID)
		}
	}
}

func TestApprove_OrganizerShareKeepsEventOpen(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	// The organizer owes a share too
	e, participants, err := f.events.Create(ctx, f.circleID, "alice", "Dinner", 9000, []string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("Create event failed: %v", err)
	}

	var organizerRow int64
	var others []int64
	for _, p := range participants {
		if p.UserID == "alice" {
			organizerRow = p.ID
		} else {
			others = append(others, p.ID)
		}
	}

	for _, id := range []string{"bob", "carol"} {
		if _, err := f.events.Report(ctx, e.ID, id); err != nil {
			t.Fatalf("Report(%s) failed: %v", id, err)
		}
	}

	// Approving everyone else must not complete the event while the
	// organizer's own row is still pending
	count, err := f.approvals.Approve(ctx, "alice", others)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 newly approved, got %d", count)
	}

	got, _, err := f.events.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get event failed: %v", err)
	}
	if got.Status != event.StatusConfirmed {
		t.Errorf("expected event still confirmed with organizer's share pending, got %s", got.Status)
	}

	// Settling the organizer's own share completes the event
	if _, err := f.events.Report(ctx, e.ID, "alice"); err != nil {
		t.Fatalf("Report(alice) failed: %v", err)
	}
	count, err = f.approvals.Approve(ctx, "alice", []int64{organizerRow})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 newly approved, got %d", count)
	}

	got, _, err = f.events.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get event failed: %v", err)
	}
	if got.Status != event.StatusCompleted {
		t.Errorf("expected event completed, got %s", got.Status)
	}
}

func TestApprove_AcrossEvents(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	first, firstRows := f.reportedEvent(t, "alice", "Dinner", 1000, []string{"bob"})
	second, secondRows := f.reportedEvent(t, "alice", "Lunch", 2000, []string{"bob", "carol"})

	// One batch spanning both events: first completes, second stays open
	count, err := f.approvals.Approve(ctx, "alice", []int64{firstRows[0].ID, secondRows[0].ID})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 newly approved, got %d", count)
	}

	got, _, err := f.events.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get event failed: %v", err)
	}
	if got.Status != event.StatusCompleted {
		t.Errorf("first event: expected completed, got %s", got.Status)
	}

	got, _, err = f.events.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("Get event failed: %v", err)
	}
	if got.Status != event.StatusConfirmed {
		t.Errorf("second event: expected confirmed, got %s", got.Status)
	}
}

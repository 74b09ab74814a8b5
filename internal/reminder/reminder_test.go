package reminder_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hiroyukim/warikan/internal/circle"
	"github.com/hiroyukim/warikan/internal/event"
	"github.com/hiroyukim/warikan/internal/reminder"
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

func TestSweep(t *testing.T) {
	store := memory.NewStore()
	userSvc := user.NewService(store)
	circleSvc := circle.NewService(store)
	out := &recordingDispatcher{}
	eventSvc := event.NewService(store, out)
	ctx := context.Background()

	for _, id := range []string{"alice", "bob", "carol"} {
		if _, err := userSvc.Register(ctx, id, id); err != nil {
			t.Fatalf("Register(%s) failed: %v", id, err)
		}
	}
	c, err := circleSvc.Create(ctx, "alice", "Tennis Club")
	if err != nil {
		t.Fatalf("Create circle failed: %v", err)
	}
	for _, id := range []string{"bob", "carol"} {
		if _, err := circleSvc.Join(ctx, id, c.ID); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}

	e, _, err := eventSvc.Create(ctx, c.ID, "alice", "Dinner", 3000, []string{"bob", "carol"})
	if err != nil {
		t.Fatalf("Create event failed: %v", err)
	}

	// bob reports; only carol should be reminded
	if _, err := eventSvc.Report(ctx, e.ID, "bob"); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	out.sent = nil

	sched := reminder.NewScheduler(store, out, 12)
	sched.Sweep(ctx)

	if len(out.sent) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(out.sent))
	}
	if out.sent[0].userID != "carol" {
		t.Errorf("reminder sent to %s, want carol", out.sent[0].userID)
	}
	if !strings.Contains(out.sent[0].message, "Dinner") {
		t.Errorf("reminder message should name the event, got %q", out.sent[0].message)
	}
}

func TestSweep_NothingUnpaid(t *testing.T) {
	store := memory.NewStore()
	out := &recordingDispatcher{}

	sched := reminder.NewScheduler(store, out, 12)
	sched.Sweep(context.Background())

	if len(out.sent) != 0 {
		t.Errorf("expected no reminders, got %d", len(out.sent))
	}
}

func TestNextRunSchedulesWithinADay(t *testing.T) {
	store := memory.NewStore()
	out := &recordingDispatcher{}
	sched := reminder.NewScheduler(store, out, 12)

	// Run blocks until the next scheduled hour, so only exercise
	// cancellation here.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

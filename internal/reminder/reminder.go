package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/hiroyukim/warikan/internal/event"
	"github.com/hiroyukim/warikan/internal/notification"
)

// Store lists the participants who still owe a payment report
type Store interface {
	UnpaidParticipants(ctx context.Context) ([]*event.UnpaidParticipant, error)
}

// Scheduler sends a daily payment reminder to every participant who has
// not yet reported their share
type Scheduler struct {
	store      Store
	dispatcher notification.Dispatcher
	hour       int
}

// NewScheduler creates a scheduler that sweeps once a day at the given hour
func NewScheduler(store Store, dispatcher notification.Dispatcher, hour int) *Scheduler {
	return &Scheduler{store: store, dispatcher: dispatcher, hour: hour}
}

// Run sweeps at the configured hour each day until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := nextRun(time.Now(), s.hour)
		slog.Info("reminder sweep scheduled", "at", next)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		s.Sweep(ctx)
	}
}

// Sweep sends one reminder per unpaid participant row. Delivery failures
// are logged and do not stop the sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	participants, err := s.store.UnpaidParticipants(ctx)
	if err != nil {
		slog.Error("reminder sweep failed", "error", err)
		return
	}

	sent := 0
	for _, p := range participants {
		message := notification.PaymentReminder(p.EventName, p.SplitAmount)
		if err := s.dispatcher.Dispatch(ctx, p.UserID, message); err != nil {
			slog.Error("reminder delivery failed", "user_id", p.UserID, "event_id", p.EventID, "error", err)
			continue
		}
		sent++
	}

	slog.Info("reminder sweep finished", "unpaid", len(participants), "sent", sent)
}

func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

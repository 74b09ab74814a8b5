// Package notification is the outbound messaging port of the domain.
// Delivery is fire-and-forget: a failed dispatch never rolls back the
// mutation that triggered it.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hiroyukim/warikan/internal/line"
)

// Dispatcher sends a message to a single user
type Dispatcher interface {
	Dispatch(ctx context.Context, userID, message string) error
}

// PushDispatcher delivers messages through the LINE push API
type PushDispatcher struct {
	client *line.Client
}

// NewPushDispatcher creates a dispatcher backed by the LINE client
func NewPushDispatcher(client *line.Client) *PushDispatcher {
	return &PushDispatcher{client: client}
}

func (d *PushDispatcher) Dispatch(ctx context.Context, userID, message string) error {
	return d.client.PushMessage(ctx, userID, message)
}

// LogDispatcher writes messages to the log instead of delivering them.
// Used when no channel token is configured.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, userID, message string) error {
	slog.Info("notification (not delivered)", "user_id", userID, "message", message)
	return nil
}

// Message builders for the domain transitions that notify participants.

// EventCreated tells a participant they owe their share of a new event
func EventCreated(organizerName, eventName string, splitAmount int64) string {
	return fmt.Sprintf(
		"%s created a shared expense.\n\nEvent: %s\nYour share: %d\nPay to: %s\n\nReport your payment once it is done.",
		organizerName, eventName, splitAmount, organizerName,
	)
}

// PaymentApproved tells a participant the organizer accepted their report
func PaymentApproved(organizerName, eventName string, splitAmount int64) string {
	return fmt.Sprintf(
		"%s approved your payment.\n\nEvent: %s\nAmount: %d\n\nThank you!",
		organizerName, eventName, splitAmount,
	)
}

// PaymentReminder nudges a participant who has not reported yet
func PaymentReminder(eventName string, splitAmount int64) string {
	return fmt.Sprintf(
		"Payment reminder\n\nEvent: %s\nAmount: %d\n\nYour payment has not been reported yet. If you already paid, please report it.",
		eventName, splitAmount,
	)
}

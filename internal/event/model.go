package event

import "time"

// Status represents the lifecycle state of an event.
// Creation goes straight to confirmed; selecting only exists for
// historical rows and is treated as active in listings. The one real
// transition is confirmed -> completed, driven by approvals.
type Status string

const (
	StatusSelecting Status = "selecting"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
)

// Event is a shared-expense record scoped to one circle
type Event struct {
	ID          int64     `json:"id"`
	CircleID    int64     `json:"circle_id"`
	Name        string    `json:"name"`
	OrganizerID string    `json:"organizer_id"`
	TotalAmount int64     `json:"total_amount"`
	SplitAmount int64     `json:"split_amount"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Participant is one user's share of an event. Rows are created with the
// event and never added or removed afterwards.
type Participant struct {
	ID         int64      `json:"id"`
	EventID    int64      `json:"event_id"`
	UserID     string     `json:"user_id"`
	UserName   string     `json:"user_name"`
	Reported   bool       `json:"reported"`
	ReportedAt *time.Time `json:"reported_at,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Approved reports whether the organizer has accepted the payment
func (p *Participant) Approved() bool {
	return p.ApprovedAt != nil
}

// UnpaidParticipant is a participant who has neither reported nor been
// approved on an active event; used by the reminder sweep
type UnpaidParticipant struct {
	UserID      string
	EventID     int64
	EventName   string
	SplitAmount int64
	CreatedAt   time.Time
}

// PaymentStatus is one row of a user's payment overview
type PaymentStatus struct {
	EventID   int64  `json:"event_id"`
	EventName string `json:"event_name"`
	Amount    int64  `json:"amount"`
	Reported  bool   `json:"reported"`
	Approved  bool   `json:"approved"`
}

package approval

import "time"

// Approval is a projection of a reported-but-unapproved participant row
// joined with its event context. It is never persisted on its own;
// approving mutates the underlying participant row.
type Approval struct {
	ParticipantID int64      `json:"participant_id"`
	EventID       int64      `json:"event_id"`
	UserID        string     `json:"user_id"`
	UserName      string     `json:"user_name"`
	EventName     string     `json:"event_name"`
	Amount        int64      `json:"amount"`
	ReportedAt    *time.Time `json:"reported_at,omitempty"`
}

// ApprovedParticipant describes one newly approved row, carrying what the
// approval notification needs
type ApprovedParticipant struct {
	ParticipantID int64
	EventID       int64
	UserID        string
	UserName      string
	EventName     string
	Amount        int64
	OrganizerName string
}

// Result is the outcome of a bulk approve
type Result struct {
	// Approved holds only rows that flipped in this call; already-approved
	// ids are skipped
	Approved []*ApprovedParticipant
	// CompletedEventIDs lists events whose last pending participant was
	// approved in this call
	CompletedEventIDs []int64
}

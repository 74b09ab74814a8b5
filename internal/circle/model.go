package circle

import "time"

// MembershipStatus represents the state of a user's membership in a circle.
// Memberships are never deleted; leaving or being removed flips the status.
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipLeft    MembershipStatus = "left"
	MembershipRemoved MembershipStatus = "removed"
)

// Circle represents a named group of users sharing expense events
type Circle struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership represents a user's relation to a circle
type Membership struct {
	ID       int64            `json:"id"`
	UserID   string           `json:"user_id"`
	CircleID int64            `json:"circle_id"`
	Status   MembershipStatus `json:"status"`
	JoinedAt time.Time        `json:"joined_at"`
	LeftAt   *time.Time       `json:"left_at,omitempty"`
}

// Member is a membership row joined with the user's display name
type Member struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

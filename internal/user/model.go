package user

import "time"

// User represents a registered user. The ID is issued by the identity
// provider; users are never deleted, only updated.
type User struct {
	ID              string    `json:"user_id"`
	Name            string    `json:"name"`
	PrimaryCircleID *int64    `json:"primary_circle_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

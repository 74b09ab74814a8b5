package circle

// CreateCircleRequest represents the request to create a new circle
type CreateCircleRequest struct {
	Name string `json:"name"`
}

// JoinCircleRequest joins by id when given, otherwise by name
type JoinCircleRequest struct {
	CircleID   *int64 `json:"circle_id,omitempty"`
	CircleName string `json:"circle_name,omitempty"`
}

// CirclesResponse is the listing of a user's circles
type CirclesResponse struct {
	Circles         []*Circle `json:"circles"`
	PrimaryCircleID *int64    `json:"primary_circle_id,omitempty"`
}

// MembersResponse is the member listing of one circle
type MembersResponse struct {
	Circle  *Circle   `json:"circle"`
	Members []*Member `json:"members"`
}

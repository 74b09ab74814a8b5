package event

// CreateEventRequest represents the request to create a new event
type CreateEventRequest struct {
	CircleID       int64    `json:"circle_id"`
	Name           string   `json:"name"`
	TotalAmount    int64    `json:"total_amount"`
	ParticipantIDs []string `json:"participant_ids"`
}

// EventResponse combines an event with its participant rows
type EventResponse struct {
	Event        *Event         `json:"event"`
	Participants []*Participant `json:"participants"`
}

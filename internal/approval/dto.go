package approval

// ApproveRequest represents the request to approve reported payments
type ApproveRequest struct {
	ParticipantIDs []int64 `json:"participant_ids"`
}

// ApproveResponse reports how many rows this call newly approved
type ApproveResponse struct {
	ApprovedCount int `json:"approved_count"`
}

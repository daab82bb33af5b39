package dto

// ParticipationResponse is the polling view for one participant. Absent
// perspective/answer means "not there yet", never an error.
type ParticipationResponse struct {
	ParticipantName string  `json:"participant_name"`
	SessionName     string  `json:"session_name"`
	Perspective     *string `json:"perspective,omitempty"`
	Answer          *string `json:"answer,omitempty"`

	// MediationStatus reflects the completion report:
	// "collecting" | "claimed" | "done".
	MediationStatus string `json:"mediation_status"`
}

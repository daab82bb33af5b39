package dto

type CreateSessionParticipant struct {
	Name        string `json:"name" validate:"required"`
	ContactType string `json:"contact_type" validate:"required,oneof=email phone"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
}

type CreateSessionRequest struct {
	Name         string                     `json:"name" validate:"required"`
	IsSecret     bool                       `json:"is_secret"`
	Participants []CreateSessionParticipant `json:"participants" validate:"required,min=1,dive"`
}

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
}

type SubmitPerspectiveRequest struct {
	SessionId   string `json:"session_id" validate:"required"`
	SecretKey   string `json:"secret_key" validate:"required"`
	Perspective string `json:"perspective" validate:"required"`
}

// DispatchMediationMessage is the internal payload handed from the
// ingestion path to the dispatch worker once completion has been claimed.
type DispatchMediationMessage struct {
	SessionId string `json:"session_id"`
}

package entity

import (
	"time"
)

type ContactType string

const (
	ContactTypeEmail ContactType = "email"
	ContactTypePhone ContactType = "phone"
)

// Participant is part of a session roster. The slice position inside
// Session.Participants is the rotation index used for prompt construction,
// so the order is fixed at creation time.
type Participant struct {
	Name        string      `json:"name"`
	ContactType ContactType `json:"contact_type"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	SecretKey   string      `json:"secret_key"`
}

// Contact returns the delivery address for the participant's contact type.
func (p *Participant) Contact() string {
	if p.ContactType == ContactTypePhone {
		return p.Phone
	}
	return p.Email
}

type Session struct {
	Id           string        `json:"id"`
	Name         string        `json:"name"`
	IsSecret     bool          `json:"is_secret"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`

	// CreationError holds a diagnostic when a participant record failed to
	// persist mid-roster. The session is otherwise immutable.
	CreationError string `json:"creation_error,omitempty"`
}

// ParticipantByKey returns the participant owning the given secret key and
// its rotation index, or nil if the key does not belong to the roster.
func (s *Session) ParticipantByKey(secretKey string) (*Participant, int) {
	for i := range s.Participants {
		if s.Participants[i].SecretKey == secretKey {
			return &s.Participants[i], i
		}
	}
	return nil, -1
}

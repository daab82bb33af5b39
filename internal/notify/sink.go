package notify

import (
	"context"
	"fmt"

	"github.com/felixniemeyer/ai-mediator/internal/entity"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/mailer"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/sms"
)

// Invitation is the message shown to a participant when a session starts.
// Link is the personal participation URL carrying the secret key.
type Invitation struct {
	SessionName     string
	ParticipantName string
	Link            string
}

// Sink delivers an invitation. Delivery is best effort: callers log
// failures and move on, a failed invitation never fails session creation.
type Sink interface {
	Send(ctx context.Context, participant entity.Participant, invitation Invitation) error
}

// router picks the concrete channel from the participant's contact type.
type router struct {
	email mailer.IEmailService
	sms   sms.ISMSService
}

func NewRouter(email mailer.IEmailService, smsService sms.ISMSService) Sink {
	return &router{
		email: email,
		sms:   smsService,
	}
}

func (r *router) Send(ctx context.Context, participant entity.Participant, invitation Invitation) error {
	switch participant.ContactType {
	case entity.ContactTypeEmail:
		return r.email.SendInvitation(participant.Email, invitation.ParticipantName, invitation.SessionName, invitation.Link)
	case entity.ContactTypePhone:
		body := fmt.Sprintf(
			"Hi %s, you are invited to share your perspective in the mediation \"%s\". Your personal link: %s",
			invitation.ParticipantName, invitation.SessionName, invitation.Link,
		)
		return r.sms.SendSMS(ctx, participant.Phone, body)
	default:
		return fmt.Errorf("unknown contact type: %s", participant.ContactType)
	}
}

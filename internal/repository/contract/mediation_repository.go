package contract

import (
	"context"

	"github.com/felixniemeyer/ai-mediator/internal/entity"
)

// MediationRepository is the typed layer over the BlobStore. All records of
// one session live under its id scope; perspective and answer records are
// additionally scoped by the owning participant's secret key.
type MediationRepository interface {
	SaveSession(ctx context.Context, session *entity.Session) error
	GetSession(ctx context.Context, sessionId string) (*entity.Session, error)

	// SaveParticipant persists the per-participant identity record under
	// the participant's secret-key scope.
	SaveParticipant(ctx context.Context, sessionId string, participant *entity.Participant) error

	SavePerspective(ctx context.Context, perspective *entity.Perspective) error
	GetPerspective(ctx context.Context, sessionId, secretKey string) (*entity.Perspective, error)

	SaveAnswer(ctx context.Context, answer *entity.Answer) error
	GetAnswer(ctx context.Context, sessionId, secretKey string) (*entity.Answer, error)

	SaveCompletionReport(ctx context.Context, report *entity.CompletionReport) error
	GetCompletionReport(ctx context.Context, sessionId string) (*entity.CompletionReport, error)
}

package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/felixniemeyer/ai-mediator/internal/entity"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
)

// Key layout (logical directories inside the blob store):
//
//	sessions/<sessionId>/session.json
//	sessions/<sessionId>/participants/<secretKey>/participant.json
//	sessions/<sessionId>/participants/<secretKey>/perspective.json
//	sessions/<sessionId>/participants/<secretKey>/answer.json
//	sessions/<sessionId>/completion.json
func sessionKey(sessionId string) string {
	return fmt.Sprintf("sessions/%s/session.json", sessionId)
}

func participantKey(sessionId, secretKey string) string {
	return fmt.Sprintf("sessions/%s/participants/%s/participant.json", sessionId, secretKey)
}

func perspectiveKey(sessionId, secretKey string) string {
	return fmt.Sprintf("sessions/%s/participants/%s/perspective.json", sessionId, secretKey)
}

func answerKey(sessionId, secretKey string) string {
	return fmt.Sprintf("sessions/%s/participants/%s/answer.json", sessionId, secretKey)
}

func completionKey(sessionId string) string {
	return fmt.Sprintf("sessions/%s/completion.json", sessionId)
}

type mediationRepository struct {
	store contract.BlobStore

	// Session records are immutable after creation (except the creation
	// error diagnostic), so a read cache is safe. Every submission and
	// every poll needs the roster; this skips the blob round trip.
	sessionCache *cache.Cache
}

func NewMediationRepository(store contract.BlobStore) contract.MediationRepository {
	return &mediationRepository{
		store:        store,
		sessionCache: cache.New(1*time.Hour, 10*time.Minute),
	}
}

func (r *mediationRepository) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return r.store.Put(ctx, key, data)
}

func (r *mediationRepository) get(ctx context.Context, key string, v interface{}) error {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *mediationRepository) SaveSession(ctx context.Context, session *entity.Session) error {
	if err := r.put(ctx, sessionKey(session.Id), session); err != nil {
		return err
	}
	r.sessionCache.Set(session.Id, session, cache.DefaultExpiration)
	return nil
}

func (r *mediationRepository) GetSession(ctx context.Context, sessionId string) (*entity.Session, error) {
	if x, found := r.sessionCache.Get(sessionId); found {
		return x.(*entity.Session), nil
	}

	var session entity.Session
	if err := r.get(ctx, sessionKey(sessionId), &session); err != nil {
		return nil, err
	}
	r.sessionCache.Set(sessionId, &session, cache.DefaultExpiration)
	return &session, nil
}

func (r *mediationRepository) SaveParticipant(ctx context.Context, sessionId string, participant *entity.Participant) error {
	return r.put(ctx, participantKey(sessionId, participant.SecretKey), participant)
}

func (r *mediationRepository) SavePerspective(ctx context.Context, perspective *entity.Perspective) error {
	return r.put(ctx, perspectiveKey(perspective.SessionId, perspective.SecretKey), perspective)
}

func (r *mediationRepository) GetPerspective(ctx context.Context, sessionId, secretKey string) (*entity.Perspective, error) {
	var perspective entity.Perspective
	if err := r.get(ctx, perspectiveKey(sessionId, secretKey), &perspective); err != nil {
		return nil, err
	}
	return &perspective, nil
}

func (r *mediationRepository) SaveAnswer(ctx context.Context, answer *entity.Answer) error {
	return r.put(ctx, answerKey(answer.SessionId, answer.SecretKey), answer)
}

func (r *mediationRepository) GetAnswer(ctx context.Context, sessionId, secretKey string) (*entity.Answer, error) {
	var answer entity.Answer
	if err := r.get(ctx, answerKey(sessionId, secretKey), &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *mediationRepository) SaveCompletionReport(ctx context.Context, report *entity.CompletionReport) error {
	return r.put(ctx, completionKey(report.SessionId), report)
}

func (r *mediationRepository) GetCompletionReport(ctx context.Context, sessionId string) (*entity.CompletionReport, error) {
	var report entity.CompletionReport
	if err := r.get(ctx, completionKey(sessionId), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

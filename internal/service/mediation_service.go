package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixniemeyer/ai-mediator/internal/dto"
	"github.com/felixniemeyer/ai-mediator/internal/entity"
	"github.com/felixniemeyer/ai-mediator/internal/notify"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/ident"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/logger"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
	"github.com/felixniemeyer/ai-mediator/internal/repository/memory"
	"github.com/felixniemeyer/ai-mediator/pkg/events"
)

// EventPublisher is the external event bus (NATS in production). It is
// optional: a nil publisher disables lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IMediationService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)

	// SubmitPerspective persists the perspective (overwrite semantics) and
	// evaluates the completion predicate. The returned flag is true iff this
	// submission claimed the one-time completion transition.
	SubmitPerspective(ctx context.Context, req *dto.SubmitPerspectiveRequest) (bool, error)
}

type mediationService struct {
	repo      contract.MediationRepository
	idGen     ident.Generator
	sink      notify.Sink
	locks     *memory.SessionLocks
	publisher IPublisherService
	eventPub  EventPublisher
	logger    logger.ILogger
	clientURL string
}

func NewMediationService(
	repo contract.MediationRepository,
	idGen ident.Generator,
	sink notify.Sink,
	locks *memory.SessionLocks,
	publisher IPublisherService,
	eventPub EventPublisher,
	sysLogger logger.ILogger,
	clientURL string,
) IMediationService {
	return &mediationService{
		repo:      repo,
		idGen:     idGen,
		sink:      sink,
		locks:     locks,
		publisher: publisher,
		eventPub:  eventPub,
		logger:    sysLogger,
		clientURL: clientURL,
	}
}

const idAllocationAttempts = 5

func (s *mediationService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	if len(req.Participants) == 0 {
		return nil, ErrEmptyRoster
	}

	sessionId, err := s.allocateSessionId(ctx)
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		Id:        sessionId,
		Name:      req.Name,
		IsSecret:  req.IsSecret,
		CreatedAt: time.Now(),
	}

	// Secret keys must be unique within the session; collisions of 256-bit
	// tokens are theoretical, but regenerating is cheaper than reasoning
	// about it.
	used := make(map[string]bool)
	for _, p := range req.Participants {
		key := s.idGen.SecretKey()
		for used[key] {
			key = s.idGen.SecretKey()
		}
		used[key] = true

		session.Participants = append(session.Participants, entity.Participant{
			Name:        p.Name,
			ContactType: entity.ContactType(p.ContactType),
			Email:       p.Email,
			Phone:       p.Phone,
			SecretKey:   key,
		})
	}

	if err := s.repo.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	for i := range session.Participants {
		if err := s.repo.SaveParticipant(ctx, session.Id, &session.Participants[i]); err != nil {
			// Already written participant records are not rolled back; the
			// diagnostic is appended to the session record instead.
			session.CreationError = fmt.Sprintf("participant record %q: %v", session.Participants[i].Name, err)
			if saveErr := s.repo.SaveSession(ctx, session); saveErr != nil {
				s.logger.Error("Mediation", "Failed to record creation error", map[string]interface{}{
					"session_id": session.Id,
					"error":      saveErr.Error(),
				})
			}
			return nil, fmt.Errorf("persist participant %q: %w", session.Participants[i].Name, err)
		}
	}

	s.sendInvitations(ctx, session)
	s.publishEvent(ctx, events.NewSessionCreatedEvent(session.Id, session.Name, len(session.Participants)))

	s.logger.Info("Mediation", "Session created", map[string]interface{}{
		"session_id":   session.Id,
		"participants": len(session.Participants),
	})

	return &dto.CreateSessionResponse{SessionId: session.Id}, nil
}

func (s *mediationService) allocateSessionId(ctx context.Context) (string, error) {
	for attempt := 0; attempt < idAllocationAttempts; attempt++ {
		id := s.idGen.SessionID()
		_, err := s.repo.GetSession(ctx, id)
		if errors.Is(err, contract.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check session id: %w", err)
		}
		// Collision, try again. Never silently overwrite.
	}
	return "", fmt.Errorf("could not allocate a free session id after %d attempts", idAllocationAttempts)
}

// sendInvitations is best effort: a failed delivery is logged and never
// fails session creation.
func (s *mediationService) sendInvitations(ctx context.Context, session *entity.Session) {
	for _, p := range session.Participants {
		invitation := notify.Invitation{
			SessionName:     session.Name,
			ParticipantName: p.Name,
			Link:            fmt.Sprintf("%s/participate/%s?key=%s", s.clientURL, session.Id, p.SecretKey),
		}
		if err := s.sink.Send(ctx, p, invitation); err != nil {
			s.logger.Warn("Mediation", "Invitation delivery failed", map[string]interface{}{
				"session_id":  session.Id,
				"participant": p.Name,
				"error":       err.Error(),
			})
		}
	}
}

func (s *mediationService) SubmitPerspective(ctx context.Context, req *dto.SubmitPerspectiveRequest) (bool, error) {
	session, err := s.repo.GetSession(ctx, req.SessionId)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return false, ErrSessionNotFound
		}
		return false, fmt.Errorf("load session: %w", err)
	}

	participant, _ := session.ParticipantByKey(req.SecretKey)
	if participant == nil {
		return false, ErrInvalidSecretKey
	}

	// Write-then-check must be one atomic step per session, otherwise two
	// racing final submissions can both see a complete set and dispatch
	// twice.
	s.locks.Lock(session.Id)
	defer s.locks.Unlock(session.Id)

	perspective := &entity.Perspective{
		SessionId:   session.Id,
		SecretKey:   participant.SecretKey,
		Text:        req.Perspective,
		SubmittedAt: time.Now(),
	}
	if err := s.repo.SavePerspective(ctx, perspective); err != nil {
		return false, fmt.Errorf("persist perspective: %w", err)
	}

	return s.checkCompletion(ctx, session)
}

// checkCompletion runs under the session lock. It claims the one-time
// completion transition by persisting the report in "claimed" state before
// handing the session to the dispatch worker.
func (s *mediationService) checkCompletion(ctx context.Context, session *entity.Session) (bool, error) {
	_, err := s.repo.GetCompletionReport(ctx, session.Id)
	if err == nil {
		// Completion was already claimed by an earlier submission.
		return false, nil
	}
	if !errors.Is(err, contract.ErrNotFound) {
		return false, fmt.Errorf("check completion claim: %w", err)
	}

	for _, p := range session.Participants {
		if _, err := s.repo.GetPerspective(ctx, session.Id, p.SecretKey); err != nil {
			if errors.Is(err, contract.ErrNotFound) {
				// Not complete yet, or a perspective write is still in
				// flight. Either way: abort silently, the next submission
				// re-evaluates the predicate.
				return false, nil
			}
			return false, fmt.Errorf("read back perspective: %w", err)
		}
	}

	report := &entity.CompletionReport{
		SessionId: session.Id,
		Status:    entity.ReportStatusClaimed,
		ClaimedAt: time.Now(),
	}
	if err := s.repo.SaveCompletionReport(ctx, report); err != nil {
		// Claim not taken, a later submission retries.
		return false, fmt.Errorf("claim completion: %w", err)
	}

	if err := s.publisher.PublishDispatch(session.Id); err != nil {
		// The claim is durable but the worker never heard about it. The
		// "claimed" report makes this state visible; there is no automatic
		// retry.
		s.logger.Error("Mediation", "Failed to hand session to dispatch worker", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
		return true, nil
	}

	s.logger.Info("Mediation", "Session complete, dispatch claimed", map[string]interface{}{
		"session_id": session.Id,
	})
	return true, nil
}

func (s *mediationService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPub == nil {
		return
	}
	if err := s.eventPub.Publish(ctx, event); err != nil {
		s.logger.Warn("Mediation", "Event publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/felixniemeyer/ai-mediator/internal/dto"
	"github.com/felixniemeyer/ai-mediator/internal/entity"
	"github.com/felixniemeyer/ai-mediator/internal/pkg/logger"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
	"github.com/felixniemeyer/ai-mediator/pkg/events"
	"github.com/felixniemeyer/ai-mediator/pkg/llm"
	"github.com/felixniemeyer/ai-mediator/pkg/mediation/prompt"
)

// AnswerNotifier pushes "answer ready" signals to connected participants.
// Optional: nil disables the live feed, polling still works.
type AnswerNotifier interface {
	NotifyAnswerReady(sessionId, secretKey, participantName string)
}

type IDispatchService interface {
	// Consume subscribes to the dispatch topic and processes claimed
	// sessions in the background.
	Consume(ctx context.Context) error

	// Dispatch builds one mediation prompt per participant, fans out the
	// model calls and finalizes the completion report.
	Dispatch(ctx context.Context, sessionId string)
}

type dispatchService struct {
	pubSub      message.Subscriber
	topicName   string
	repo        contract.MediationRepository
	llmProvider llm.LLMProvider
	llmTimeout  time.Duration
	eventPub    EventPublisher
	notifier    AnswerNotifier
	logger      logger.ILogger
}

func NewDispatchService(
	pubSub message.Subscriber,
	topicName string,
	repo contract.MediationRepository,
	llmProvider llm.LLMProvider,
	llmTimeout time.Duration,
	eventPub EventPublisher,
	notifier AnswerNotifier,
	sysLogger logger.ILogger,
) IDispatchService {
	return &dispatchService{
		pubSub:      pubSub,
		topicName:   topicName,
		repo:        repo,
		llmProvider: llmProvider,
		llmTimeout:  llmTimeout,
		eventPub:    eventPub,
		notifier:    notifier,
		logger:      sysLogger,
	}
}

func (ds *dispatchService) Consume(ctx context.Context) error {
	messages, err := ds.pubSub.Subscribe(ctx, ds.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ds.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ds *dispatchService) processMessage(ctx context.Context, msg *message.Message) {
	// Dispatch is deliberately not retried: a claimed session with failed
	// model calls stays visible in its completion report. Ack always.
	defer msg.Ack()

	var payload dto.DispatchMediationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ds.logger.Error("Dispatch", "Invalid dispatch message", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	ds.Dispatch(ctx, payload.SessionId)
}

func (ds *dispatchService) Dispatch(ctx context.Context, sessionId string) {
	session, err := ds.repo.GetSession(ctx, sessionId)
	if err != nil {
		ds.logger.Error("Dispatch", "Claimed session could not be loaded", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return
	}

	report, err := ds.repo.GetCompletionReport(ctx, sessionId)
	if err != nil {
		ds.logger.Error("Dispatch", "Completion report missing for claimed session", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return
	}
	if report.Status != entity.ReportStatusClaimed {
		// Already dispatched, nothing to do.
		return
	}

	perspectives := make(map[string]*entity.Perspective, len(session.Participants))
	for _, p := range session.Participants {
		perspective, err := ds.repo.GetPerspective(ctx, sessionId, p.SecretKey)
		if err != nil {
			ds.logger.Error("Dispatch", "Perspective missing after claim", map[string]interface{}{
				"session_id":  sessionId,
				"participant": p.Name,
				"error":       err.Error(),
			})
			return
		}
		perspectives[p.SecretKey] = perspective
	}

	builder := prompt.NewBuilder(session, perspectives)
	results := make([]entity.ParticipantResult, len(session.Participants))

	// One independent model call per participant; a failed call never
	// blocks or fails another's.
	var wg sync.WaitGroup
	for i := range session.Participants {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			results[index] = ds.dispatchFor(ctx, session, builder, index)
		}(i)
	}
	wg.Wait()

	now := time.Now()
	report.Status = entity.ReportStatusDone
	report.CompletedAt = &now
	report.Results = results
	if err := ds.repo.SaveCompletionReport(ctx, report); err != nil {
		ds.logger.Error("Dispatch", "Failed to finalize completion report", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}

	ds.publishEvent(ctx, events.NewSessionCompletedEvent(sessionId))
	ds.logger.Info("Dispatch", "Session dispatched", map[string]interface{}{
		"session_id": sessionId,
		"results":    summarize(results),
	})
}

func (ds *dispatchService) dispatchFor(ctx context.Context, session *entity.Session, builder *prompt.Builder, index int) entity.ParticipantResult {
	participant := session.Participants[index]
	result := entity.ParticipantResult{
		Name:      participant.Name,
		SecretKey: participant.SecretKey,
	}

	fail := func(err error) entity.ParticipantResult {
		result.Status = entity.DispatchStatusFailed
		result.Error = err.Error()
		ds.logger.Error("Dispatch", "Model call failed", map[string]interface{}{
			"session_id":  session.Id,
			"participant": participant.Name,
			"error":       err.Error(),
		})
		ds.publishEvent(ctx, events.NewDispatchFailedEvent(session.Id, participant.Name, err.Error()))
		return result
	}

	messages, err := builder.BuildFor(index)
	if err != nil {
		return fail(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, ds.llmTimeout)
	defer cancel()

	text, err := ds.llmProvider.Chat(callCtx, messages)
	if err != nil {
		return fail(err)
	}
	if text == "" {
		return fail(errors.New("model returned an empty response"))
	}

	answer := &entity.Answer{
		SessionId:   session.Id,
		SecretKey:   participant.SecretKey,
		Text:        text,
		Model:       ds.llmProvider.Model(),
		GeneratedAt: time.Now(),
	}
	if err := ds.repo.SaveAnswer(ctx, answer); err != nil {
		return fail(fmt.Errorf("persist answer: %w", err))
	}

	result.Status = entity.DispatchStatusOk
	ds.publishEvent(ctx, events.NewAnswerGeneratedEvent(session.Id, participant.Name))
	if ds.notifier != nil {
		ds.notifier.NotifyAnswerReady(session.Id, participant.SecretKey, participant.Name)
	}
	return result
}

func (ds *dispatchService) publishEvent(ctx context.Context, event events.Event) {
	if ds.eventPub == nil {
		return
	}
	if err := ds.eventPub.Publish(ctx, event); err != nil {
		ds.logger.Warn("Dispatch", "Event publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func summarize(results []entity.ParticipantResult) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		counts[string(r.Status)]++
	}
	return counts
}

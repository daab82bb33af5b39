package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"

	"github.com/felixniemeyer/ai-mediator/internal/entity"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
	"github.com/felixniemeyer/ai-mediator/internal/repository/implementation"
	"github.com/felixniemeyer/ai-mediator/pkg/events"
	"github.com/felixniemeyer/ai-mediator/pkg/llm"
)

// seedClaimedSession persists a session whose perspectives are all in and
// whose completion was just claimed, the state the dispatch worker picks up.
func seedClaimedSession(t *testing.T, repo contract.MediationRepository, names ...string) *entity.Session {
	t.Helper()
	ctx := context.Background()

	session := &entity.Session{
		Id:        "session-under-test",
		Name:      "Seeded conflict",
		CreatedAt: time.Now(),
	}
	for i, name := range names {
		session.Participants = append(session.Participants, entity.Participant{
			Name:        name,
			ContactType: entity.ContactTypeEmail,
			Email:       name + "@example.com",
			SecretKey:   "key-" + string(rune('a'+i)),
		})
	}
	if err := repo.SaveSession(ctx, session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	for _, p := range session.Participants {
		err := repo.SavePerspective(ctx, &entity.Perspective{
			SessionId:   session.Id,
			SecretKey:   p.SecretKey,
			Text:        p.Name + " view",
			SubmittedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("seed perspective: %v", err)
		}
	}
	err := repo.SaveCompletionReport(ctx, &entity.CompletionReport{
		SessionId: session.Id,
		Status:    entity.ReportStatusClaimed,
		ClaimedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed completion report: %v", err)
	}
	return session
}

func newDispatchEnv(provider llm.LLMProvider) (IDispatchService, contract.MediationRepository, *recordingNotifier, *capturingEventBus) {
	repo := implementation.NewMediationRepository(newMemBlobStore())
	notifier := &recordingNotifier{}
	bus := &capturingEventBus{}
	ds := NewDispatchService(
		nil, // no subscriber needed for direct Dispatch calls
		"MEDIATION_DISPATCH",
		repo,
		provider,
		5*time.Second,
		bus,
		notifier,
		nopLogger{},
	)
	return ds, repo, notifier, bus
}

func TestDispatchGeneratesOneAnswerPerParticipant(t *testing.T) {
	provider := &fakeLLM{}
	ds, repo, notifier, bus := newDispatchEnv(provider)
	ctx := context.Background()
	session := seedClaimedSession(t, repo, "Ana", "Ben", "Cleo")

	ds.Dispatch(ctx, session.Id)

	assert.EqualValues(t, 3, provider.callCount(), "one model call per participant")
	for _, p := range session.Participants {
		answer, err := repo.GetAnswer(ctx, session.Id, p.SecretKey)
		assert.NoError(t, err, "answer for %s", p.Name)
		assert.NotEmpty(t, answer.Text)
		assert.Equal(t, "fake-model", answer.Model)
	}

	report, err := repo.GetCompletionReport(ctx, session.Id)
	assert.NoError(t, err)
	assert.Equal(t, entity.ReportStatusDone, report.Status)
	assert.NotNil(t, report.CompletedAt)
	assert.Len(t, report.Results, 3)
	for _, r := range report.Results {
		assert.Equal(t, entity.DispatchStatusOk, r.Status)
	}

	assert.Equal(t, 3, notifier.count(), "every participant gets an answer_ready push")
	assert.Contains(t, bus.types(), events.TypeSessionCompleted)
}

func TestDispatchPartialFailureKeepsOtherAnswers(t *testing.T) {
	// The model call fails only for Ben; Ana and Cleo still get answers.
	provider := &fakeLLM{fn: func(messages []llm.Message) (string, error) {
		if strings.Contains(messages[0].Content, "advice for Ben") {
			return "", errors.New("model unavailable")
		}
		return "Some advice.", nil
	}}
	ds, repo, _, bus := newDispatchEnv(provider)
	ctx := context.Background()
	session := seedClaimedSession(t, repo, "Ana", "Ben", "Cleo")

	ds.Dispatch(ctx, session.Id)

	report, err := repo.GetCompletionReport(ctx, session.Id)
	assert.NoError(t, err)
	assert.Equal(t, entity.ReportStatusDone, report.Status, "report is finalized even on partial failure")

	byName := make(map[string]entity.ParticipantResult)
	for _, r := range report.Results {
		byName[r.Name] = r
	}
	assert.Equal(t, entity.DispatchStatusOk, byName["Ana"].Status)
	assert.Equal(t, entity.DispatchStatusFailed, byName["Ben"].Status)
	assert.NotEmpty(t, byName["Ben"].Error)
	assert.Equal(t, entity.DispatchStatusOk, byName["Cleo"].Status)

	_, benKey := session.ParticipantByKey("key-b")
	assert.Equal(t, 1, benKey)
	_, err = repo.GetAnswer(ctx, session.Id, "key-b")
	assert.True(t, errors.Is(err, contract.ErrNotFound), "no answer for the failed participant")

	answer, err := repo.GetAnswer(ctx, session.Id, "key-a")
	assert.NoError(t, err)
	assert.Equal(t, "Some advice.", answer.Text)

	assert.Contains(t, bus.types(), events.TypeDispatchFailed)
}

func TestDispatchRejectsEmptyModelResponse(t *testing.T) {
	provider := &fakeLLM{fn: func(messages []llm.Message) (string, error) {
		return "", nil
	}}
	ds, repo, _, _ := newDispatchEnv(provider)
	ctx := context.Background()
	session := seedClaimedSession(t, repo, "Ana")

	ds.Dispatch(ctx, session.Id)

	report, err := repo.GetCompletionReport(ctx, session.Id)
	assert.NoError(t, err)
	assert.Equal(t, entity.DispatchStatusFailed, report.Results[0].Status)
}

func TestDispatchSkipsFinalizedSession(t *testing.T) {
	provider := &fakeLLM{}
	ds, repo, _, _ := newDispatchEnv(provider)
	ctx := context.Background()
	session := seedClaimedSession(t, repo, "Ana", "Ben")

	now := time.Now()
	err := repo.SaveCompletionReport(ctx, &entity.CompletionReport{
		SessionId:   session.Id,
		Status:      entity.ReportStatusDone,
		ClaimedAt:   now,
		CompletedAt: &now,
	})
	assert.NoError(t, err)

	ds.Dispatch(ctx, session.Id)
	assert.EqualValues(t, 0, provider.callCount(), "a finalized session must not be dispatched again")
}

func TestConsumeProcessesDispatchMessages(t *testing.T) {
	provider := &fakeLLM{}
	repo := implementation.NewMediationRepository(newMemBlobStore())
	session := seedClaimedSession(t, repo, "Ana", "Ben")

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer pubSub.Close()

	const topic = "MEDIATION_DISPATCH"
	ds := NewDispatchService(pubSub, topic, repo, provider, 5*time.Second, nil, nil, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, ds.Consume(ctx))

	publisher := NewPublisherService(topic, pubSub)
	assert.NoError(t, publisher.PublishDispatch(session.Id))

	// The worker runs asynchronously; poll for the finalized report.
	deadline := time.After(5 * time.Second)
	for {
		report, err := repo.GetCompletionReport(ctx, session.Id)
		if err == nil && report.Status == entity.ReportStatusDone {
			assert.Len(t, report.Results, 2)
			return
		}
		select {
		case <-deadline:
			t.Fatal("dispatch worker did not finalize the report in time")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

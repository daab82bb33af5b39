package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixniemeyer/ai-mediator/internal/dto"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
	"github.com/felixniemeyer/ai-mediator/internal/repository/implementation"
	"github.com/felixniemeyer/ai-mediator/internal/repository/memory"
	"github.com/felixniemeyer/ai-mediator/pkg/events"
)

type mediationEnv struct {
	svc       IMediationService
	repo      contract.MediationRepository
	sink      *recordingSink
	publisher *countingPublisher
	bus       *capturingEventBus
}

func newMediationEnv(t *testing.T) *mediationEnv {
	t.Helper()
	repo := implementation.NewMediationRepository(newMemBlobStore())
	sink := &recordingSink{}
	publisher := &countingPublisher{}
	bus := &capturingEventBus{}
	svc := NewMediationService(
		repo,
		&seqGenerator{},
		sink,
		memory.NewSessionLocks(),
		publisher,
		bus,
		nopLogger{},
		"http://localhost:5173",
	)
	return &mediationEnv{svc: svc, repo: repo, sink: sink, publisher: publisher, bus: bus}
}

func createRequest(names ...string) *dto.CreateSessionRequest {
	req := &dto.CreateSessionRequest{Name: "Test conflict"}
	for _, name := range names {
		req.Participants = append(req.Participants, dto.CreateSessionParticipant{
			Name:        name,
			ContactType: "email",
			Email:       name + "@example.com",
		})
	}
	return req
}

func TestCreateSessionAssignsUniqueKeys(t *testing.T) {
	env := newMediationEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateSession(ctx, createRequest("Ana", "Ben", "Cleo"))
	assert.NoError(t, err)
	assert.NotEmpty(t, res.SessionId)

	session, err := env.repo.GetSession(ctx, res.SessionId)
	assert.NoError(t, err)
	assert.Len(t, session.Participants, 3)

	seen := make(map[string]bool)
	for _, p := range session.Participants {
		assert.NotEmpty(t, p.SecretKey)
		assert.False(t, seen[p.SecretKey], "secret key reused")
		seen[p.SecretKey] = true
	}

	assert.Equal(t, 3, env.sink.count(), "every participant gets an invitation")
	assert.Contains(t, env.bus.types(), events.TypeSessionCreated)
}

func TestCreateSessionEmptyRoster(t *testing.T) {
	env := newMediationEnv(t)

	_, err := env.svc.CreateSession(context.Background(), &dto.CreateSessionRequest{Name: "empty"})
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestCreateSessionSurvivesInvitationFailure(t *testing.T) {
	env := newMediationEnv(t)
	env.sink.err = errors.New("smtp down")

	res, err := env.svc.CreateSession(context.Background(), createRequest("Ana"))
	assert.NoError(t, err, "invitation delivery is best effort")
	assert.NotEmpty(t, res.SessionId)
}

func TestSubmitPerspectiveOverwrites(t *testing.T) {
	env := newMediationEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateSession(ctx, createRequest("Ana", "Ben"))
	assert.NoError(t, err)
	session, err := env.repo.GetSession(ctx, res.SessionId)
	assert.NoError(t, err)
	key := session.Participants[0].SecretKey

	completed, err := env.svc.SubmitPerspective(ctx, &dto.SubmitPerspectiveRequest{
		SessionId:   res.SessionId,
		SecretKey:   key,
		Perspective: "first attempt",
	})
	assert.NoError(t, err)
	assert.False(t, completed)

	completed, err = env.svc.SubmitPerspective(ctx, &dto.SubmitPerspectiveRequest{
		SessionId:   res.SessionId,
		SecretKey:   key,
		Perspective: "second attempt",
	})
	assert.NoError(t, err)
	assert.False(t, completed, "resubmission by the same participant must not complete the session")

	perspective, err := env.repo.GetPerspective(ctx, res.SessionId, key)
	assert.NoError(t, err)
	assert.Equal(t, "second attempt", perspective.Text)
}

func TestSubmitPerspectiveUnknownSession(t *testing.T) {
	env := newMediationEnv(t)

	_, err := env.svc.SubmitPerspective(context.Background(), &dto.SubmitPerspectiveRequest{
		SessionId:   "no-such-session",
		SecretKey:   "whatever",
		Perspective: "text",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitPerspectiveInvalidKey(t *testing.T) {
	env := newMediationEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateSession(ctx, createRequest("Ana"))
	assert.NoError(t, err)

	_, err = env.svc.SubmitPerspective(ctx, &dto.SubmitPerspectiveRequest{
		SessionId:   res.SessionId,
		SecretKey:   "not-a-key",
		Perspective: "text",
	})
	assert.ErrorIs(t, err, ErrInvalidSecretKey)
}

func TestPartialSubmissionDoesNotDispatch(t *testing.T) {
	env := newMediationEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateSession(ctx, createRequest("Ana", "Ben", "Cleo"))
	assert.NoError(t, err)
	session, err := env.repo.GetSession(ctx, res.SessionId)
	assert.NoError(t, err)

	for _, p := range session.Participants[:2] {
		completed, err := env.svc.SubmitPerspective(ctx, &dto.SubmitPerspectiveRequest{
			SessionId:   res.SessionId,
			SecretKey:   p.SecretKey,
			Perspective: p.Name + " view",
		})
		assert.NoError(t, err)
		assert.False(t, completed)
	}

	assert.EqualValues(t, 0, env.publisher.count())
	_, err = env.repo.GetCompletionReport(ctx, res.SessionId)
	assert.True(t, errors.Is(err, contract.ErrNotFound), "no completion claim before the roster is complete")
}

func TestCompletionClaimedExactlyOnce(t *testing.T) {
	env := newMediationEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateSession(ctx, createRequest("Ana", "Ben", "Cleo"))
	assert.NoError(t, err)
	session, err := env.repo.GetSession(ctx, res.SessionId)
	assert.NoError(t, err)

	for _, p := range session.Participants[:2] {
		_, err := env.svc.SubmitPerspective(ctx, &dto.SubmitPerspectiveRequest{
			SessionId:   res.SessionId,
			SecretKey:   p.SecretKey,
			Perspective: p.Name + " view",
		})
		assert.NoError(t, err)
	}

	// Many racing final submissions: exactly one may win the claim.
	lastKey := session.Participants[2].SecretKey
	const racers = 16
	completions := make(chan bool, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			completed, err := env.svc.SubmitPerspective(ctx, &dto.SubmitPerspectiveRequest{
				SessionId:   res.SessionId,
				SecretKey:   lastKey,
				Perspective: "final view",
			})
			assert.NoError(t, err)
			completions <- completed
		}()
	}
	wg.Wait()
	close(completions)

	wins := 0
	for completed := range completions {
		if completed {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "completion must be claimed exactly once")
	assert.EqualValues(t, 1, env.publisher.count(), "exactly one dispatch hand-off")
}

func TestSubmitAfterClaimDoesNotRedispatch(t *testing.T) {
	env := newMediationEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateSession(ctx, createRequest("Ana", "Ben"))
	assert.NoError(t, err)
	session, err := env.repo.GetSession(ctx, res.SessionId)
	assert.NoError(t, err)

	for _, p := range session.Participants {
		_, err := env.svc.SubmitPerspective(ctx, &dto.SubmitPerspectiveRequest{
			SessionId:   res.SessionId,
			SecretKey:   p.SecretKey,
			Perspective: p.Name + " view",
		})
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, env.publisher.count())

	// A late overwrite still persists but never triggers a second dispatch.
	completed, err := env.svc.SubmitPerspective(ctx, &dto.SubmitPerspectiveRequest{
		SessionId:   res.SessionId,
		SecretKey:   session.Participants[0].SecretKey,
		Perspective: "changed my mind",
	})
	assert.NoError(t, err)
	assert.False(t, completed)
	assert.EqualValues(t, 1, env.publisher.count())

	perspective, err := env.repo.GetPerspective(ctx, res.SessionId, session.Participants[0].SecretKey)
	assert.NoError(t, err)
	assert.Equal(t, "changed my mind", perspective.Text)
}

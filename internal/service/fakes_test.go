package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/felixniemeyer/ai-mediator/internal/entity"
	"github.com/felixniemeyer/ai-mediator/internal/notify"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
	"github.com/felixniemeyer/ai-mediator/pkg/events"
	"github.com/felixniemeyer/ai-mediator/pkg/llm"
)

// memBlobStore is an in-memory BlobStore for tests.
type memBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return nil
}

func (s *memBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, contract.ErrNotFound
	}
	return data, nil
}

// seqGenerator yields deterministic ids and keys.
type seqGenerator struct {
	sessions int32
	keys     int32
}

func (g *seqGenerator) SessionID() string {
	return fmt.Sprintf("session-%d", atomic.AddInt32(&g.sessions, 1))
}

func (g *seqGenerator) SecretKey() string {
	return fmt.Sprintf("key-%d", atomic.AddInt32(&g.keys, 1))
}

// recordingSink captures invitations instead of delivering them.
type recordingSink struct {
	mu   sync.Mutex
	sent []notify.Invitation
	err  error
}

func (s *recordingSink) Send(ctx context.Context, participant entity.Participant, invitation notify.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, invitation)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// countingPublisher counts dispatch hand-offs.
type countingPublisher struct {
	calls int32
	err   error
}

func (p *countingPublisher) PublishDispatch(sessionId string) error {
	if p.err != nil {
		return p.err
	}
	atomic.AddInt32(&p.calls, 1)
	return nil
}

func (p *countingPublisher) count() int32 {
	return atomic.LoadInt32(&p.calls)
}

// fakeLLM answers with a canned response, or per-call logic when fn is set.
type fakeLLM struct {
	calls int32
	fn    func(messages []llm.Message) (string, error)
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, options ...llm.Option) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fn != nil {
		return f.fn(messages)
	}
	return "Take a deep breath and talk to each other.", nil
}

func (f *fakeLLM) Model() string {
	return "fake-model"
}

func (f *fakeLLM) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

// recordingNotifier captures answer_ready pushes.
type recordingNotifier struct {
	mu    sync.Mutex
	ready []string
}

func (n *recordingNotifier) NotifyAnswerReady(sessionId, secretKey, participantName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = append(n.ready, participantName)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ready)
}

// capturingEventBus records lifecycle events.
type capturingEventBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *capturingEventBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *capturingEventBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, len(b.events))
	for i, e := range b.events {
		types[i] = e.EventType()
	}
	return types
}

// nopLogger satisfies logger.ILogger for tests.
type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

package prompt

import (
	"strings"
	"testing"

	"github.com/felixniemeyer/ai-mediator/internal/entity"
)

func testSession(isSecret bool) (*entity.Session, map[string]*entity.Perspective) {
	session := &entity.Session{
		Id:       "s-1",
		Name:     "Flat share",
		IsSecret: isSecret,
		Participants: []entity.Participant{
			{Name: "Ana", SecretKey: "key-a"},
			{Name: "Ben", SecretKey: "key-b"},
			{Name: "Cleo", SecretKey: "key-c"},
		},
	}
	perspectives := map[string]*entity.Perspective{
		"key-a": {SessionId: "s-1", SecretKey: "key-a", Text: "Ana's view of things"},
		"key-b": {SessionId: "s-1", SecretKey: "key-b", Text: "Ben's view of things"},
		"key-c": {SessionId: "s-1", SecretKey: "key-c", Text: "Cleo's view of things"},
	}
	return session, perspectives
}

func TestBuildForRotationOrder(t *testing.T) {
	session, perspectives := testSession(false)
	builder := NewBuilder(session, perspectives)

	tests := []struct {
		name      string
		index     int
		peerOrder []string
		ownText   string
	}{
		{
			name:      "first participant sees peers starting after themselves",
			index:     0,
			peerOrder: []string{"Ben", "Cleo"},
			ownText:   "Ana's view of things",
		},
		{
			name:      "middle participant wraps around the roster",
			index:     1,
			peerOrder: []string{"Cleo", "Ana"},
			ownText:   "Ben's view of things",
		},
		{
			name:      "last participant wraps to the front",
			index:     2,
			peerOrder: []string{"Ana", "Ben"},
			ownText:   "Cleo's view of things",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages, err := builder.BuildFor(tt.index)
			if err != nil {
				t.Fatalf("BuildFor(%d) failed: %v", tt.index, err)
			}

			// system framing + one message per peer + closing message
			wantLen := 1 + len(tt.peerOrder) + 1
			if len(messages) != wantLen {
				t.Fatalf("got %d messages, want %d", len(messages), wantLen)
			}
			if messages[0].Role != "system" {
				t.Errorf("first message role = %q, want system", messages[0].Role)
			}

			for i, peer := range tt.peerOrder {
				msg := messages[1+i]
				if msg.Role != "user" {
					t.Errorf("peer message %d role = %q, want user", i, msg.Role)
				}
				if !strings.HasPrefix(msg.Content, peer+"'s perspective:") {
					t.Errorf("peer message %d = %q, want %s's perspective", i, msg.Content, peer)
				}
			}

			closing := messages[len(messages)-1]
			if !strings.Contains(closing.Content, tt.ownText) {
				t.Errorf("closing message does not contain the subject's own text: %q", closing.Content)
			}
		})
	}
}

func TestBuildForFramingNamesEveryone(t *testing.T) {
	session, perspectives := testSession(false)
	builder := NewBuilder(session, perspectives)

	messages, err := builder.BuildFor(0)
	if err != nil {
		t.Fatalf("BuildFor failed: %v", err)
	}

	framing := messages[0].Content
	for _, name := range []string{"Ana", "Ben", "Cleo"} {
		if !strings.Contains(framing, name) {
			t.Errorf("framing does not name %s: %q", name, framing)
		}
	}
	if strings.Contains(framing, "confidence") {
		t.Errorf("non-secret session framing must not mention confidentiality: %q", framing)
	}
}

func TestBuildForSecretSession(t *testing.T) {
	session, perspectives := testSession(true)
	builder := NewBuilder(session, perspectives)

	messages, err := builder.BuildFor(1)
	if err != nil {
		t.Fatalf("BuildFor failed: %v", err)
	}
	if !strings.Contains(messages[0].Content, "confidence") {
		t.Errorf("secret session framing must ask for confidentiality: %q", messages[0].Content)
	}
}

func TestBuildForIndexOutOfRange(t *testing.T) {
	session, perspectives := testSession(false)
	builder := NewBuilder(session, perspectives)

	if _, err := builder.BuildFor(3); err == nil {
		t.Error("expected error for index past the roster")
	}
	if _, err := builder.BuildFor(-1); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestBuildForMissingPerspective(t *testing.T) {
	session, perspectives := testSession(false)
	delete(perspectives, "key-b")
	builder := NewBuilder(session, perspectives)

	if _, err := builder.BuildFor(0); err == nil {
		t.Error("expected error when a peer perspective is missing")
	}
}

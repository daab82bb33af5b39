package prompt

import (
	"fmt"
	"strings"

	"github.com/felixniemeyer/ai-mediator/internal/entity"
	"github.com/felixniemeyer/ai-mediator/pkg/llm"
)

// Builder constructs the per-participant mediation request once a session is
// complete. One Builder serves all participants of the session, so the
// perspective set is passed in once, keyed by secret key.
type Builder struct {
	session      *entity.Session
	perspectives map[string]*entity.Perspective
}

func NewBuilder(session *entity.Session, perspectives map[string]*entity.Perspective) *Builder {
	return &Builder{
		session:      session,
		perspectives: perspectives,
	}
}

// BuildFor returns the ordered message sequence for the participant at
// roster index i. Peers' perspectives appear in rotation order starting at
// (i+1) mod N, so every participant sees the same round-robin relative to
// their own position. The subject's own perspective is the closing focus.
func (b *Builder) BuildFor(index int) ([]llm.Message, error) {
	participants := b.session.Participants
	n := len(participants)
	if index < 0 || index >= n {
		return nil, fmt.Errorf("participant index %d out of range (roster size %d)", index, n)
	}
	subject := participants[index]

	messages := make([]llm.Message, 0, n+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: b.framing(&subject),
	})

	for j := 1; j < n; j++ {
		peer := participants[(index+j)%n]
		perspective, ok := b.perspectives[peer.SecretKey]
		if !ok {
			return nil, fmt.Errorf("perspective of %s missing", peer.Name)
		}
		messages = append(messages, llm.Message{
			Role:    "user",
			Content: fmt.Sprintf("%s's perspective:\n%s", peer.Name, perspective.Text),
		})
	}

	own, ok := b.perspectives[subject.SecretKey]
	if !ok {
		return nil, fmt.Errorf("perspective of %s missing", subject.Name)
	}
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: b.closing(&subject, own.Text),
	})

	return messages, nil
}

func (b *Builder) framing(subject *entity.Participant) string {
	names := make([]string, len(b.session.Participants))
	for i, p := range b.session.Participants {
		names[i] = p.Name
	}

	var sb strings.Builder
	fmt.Fprintf(&sb,
		"You are an experienced mediator. %d people are involved in a conflict: %s. ",
		len(names), strings.Join(names, ", "),
	)
	fmt.Fprintf(&sb,
		"Each of them has written down their view of the situation. You are preparing advice for %s.",
		subject.Name,
	)
	if b.session.IsSecret {
		sb.WriteString(" The perspectives were shared in confidence. Use them to understand the situation, but do not quote them or attribute statements to individuals.")
	}
	return sb.String()
}

func (b *Builder) closing(subject *entity.Participant, ownText string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s describes the situation as follows:\n%s\n\n", subject.Name, ownText)
	fmt.Fprintf(&sb,
		"Considering everyone's perspective, please give %s constructive, concrete suggestions on how to approach the conflict and improve the situation for all involved.",
		subject.Name,
	)
	return sb.String()
}

package events

import "time"

const (
	TypeSessionCreated   = "session_created"
	TypeSessionCompleted = "session_completed"
	TypeAnswerGenerated  = "answer_generated"
	TypeDispatchFailed   = "dispatch_failed"
)

func NewSessionCreatedEvent(sessionId, sessionName string, participantCount int) Event {
	return BaseEvent{
		Type: TypeSessionCreated,
		Data: map[string]interface{}{
			"session_id":        sessionId,
			"session_name":      sessionName,
			"participant_count": participantCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionCompletedEvent(sessionId string) Event {
	return BaseEvent{
		Type: TypeSessionCompleted,
		Data: map[string]interface{}{
			"session_id": sessionId,
		},
		OccurredAt: time.Now(),
	}
}

func NewAnswerGeneratedEvent(sessionId, participantName string) Event {
	return BaseEvent{
		Type: TypeAnswerGenerated,
		Data: map[string]interface{}{
			"session_id":  sessionId,
			"participant": participantName,
		},
		OccurredAt: time.Now(),
	}
}

func NewDispatchFailedEvent(sessionId, participantName, reason string) Event {
	return BaseEvent{
		Type: TypeDispatchFailed,
		Data: map[string]interface{}{
			"session_id":  sessionId,
			"participant": participantName,
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}

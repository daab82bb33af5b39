package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/felixniemeyer/ai-mediator/internal/pkg/logger"
)

// participationKey identifies one participant connection scope.
func participationKey(sessionId, secretKey string) string {
	return sessionId + ":" + secretKey
}

// Hub fans "answer ready" pushes out to connected participants. Connections
// are keyed by (sessionId, secretKey), multiple devices per key are fine.
type Hub struct {
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out, optional.
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.Key] = append(h.clients[client.Key], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"key": client.Key})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.Key]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.Key] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.Key]) == 0 {
					delete(h.clients, client.Key)
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyAnswerReady implements service.AnswerNotifier.
func (h *Hub) NotifyAnswerReady(sessionId, secretKey, participantName string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "answer_ready",
		"data": map[string]string{
			"session_id":  sessionId,
			"participant": participantName,
		},
	})
	h.send(participationKey(sessionId, secretKey), data)
}

func (h *Hub) send(key string, data []byte) {
	h.mu.RLock()
	clients, localFound := h.clients[key]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"key": key})
				close(client.Send)
				h.unregister <- client
			}
		}
	}

	// Another instance may hold the connection for this key. Skipped when
	// served locally, otherwise the subscription loop would deliver twice.
	if !localFound && h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_key": key,
			"message":    json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), "mediator_events", payload)
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "mediator_events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetKey string          `json:"target_key"`
			Message   json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Invalid redis payload", map[string]interface{}{"error": err.Error()})
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[payload.TargetKey]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					close(client.Send)
					h.unregister <- client
				}
			}
		}
	}
}

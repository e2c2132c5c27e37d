package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "lexora_session_events"
	moduleName     = "WS_HUB"
)

// Hub pushes workflow events to the websocket clients watching a research
// session. With Redis, events reach clients connected to other replicas.
type Hub struct {
	// sessionID -> clients watching it (several tabs or devices)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb    *redis.Client
	origin string
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		origin:     uuid.New().String(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

// Run serves registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info(moduleName, "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.SessionID]
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
	}
}

// SendToSession delivers data to the session's local clients and, with
// Redis, to the other replicas.
func (h *Hub) SendToSession(sessionID string, data []byte) {
	h.deliver(sessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.origin, SessionID: sessionID, Message: data})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn(moduleName, "Failed to publish to cluster channel", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
}

// deliver never blocks: a client whose buffer is full is dropped.
func (h *Hub) deliver(sessionID string, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[sessionID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn(moduleName, "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// Watchers returns the number of local clients watching a session.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn(moduleName, "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			// local clients already got it in SendToSession
			if payload.Origin == h.origin {
				continue
			}
			h.deliver(payload.SessionID, payload.Message)
		}
	}
}

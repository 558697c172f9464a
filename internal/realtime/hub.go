package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Events pushed to seminar monitors.
const (
	EventPresenceRegistered = "presence_registered"
	EventPresenceCount      = "presence_count"
)

// PresenceRegistered is the payload of EventPresenceRegistered.
type PresenceRegistered struct {
	SeminarID    uuid.UUID `json:"seminar_id"`
	UserID       uuid.UUID `json:"user_id"`
	UserName     string    `json:"user_name"`
	RegisteredAt string    `json:"registered_at"`
}

// PresenceCount is the payload of EventPresenceCount.
type PresenceCount struct {
	Count int `json:"count"`
}

// Hub maintains seminar_id -> set of connections and broadcasts messages.
// With Redis configured, events go through pub/sub so every instance delivers them once.
type Hub struct {
	seminars map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per seminar
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishSeminarEvent(seminarID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to seminar channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSeminar(seminarID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. Both Redis sides may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		seminars: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a seminar room. Starts the Redis subscription for the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seminars[c.SeminarID] == nil {
		h.seminars[c.SeminarID] = make(map[string]*Client)
		if h.redisSub != nil {
			seminarID := c.SeminarID
			cancel, err := h.redisSub.SubscribeSeminar(seminarID, func(event string, payload []byte) {
				h.Broadcast(seminarID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.Error(err), zap.String("seminar_id", seminarID.String()))
			} else {
				h.subs[seminarID] = cancel
			}
		}
	}
	h.seminars[c.SeminarID][c.ID] = c
	h.logger.Debug("monitor joined seminar", zap.String("client_id", c.ID), zap.String("seminar_id", c.SeminarID.String()))
}

// Unregister removes a client from a seminar room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.seminars[c.SeminarID]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; ok {
		delete(m, c.ID)
		close(c.send)
	}
	if len(m) == 0 {
		delete(h.seminars, c.SeminarID)
		if cancel, ok := h.subs[c.SeminarID]; ok {
			cancel()
			delete(h.subs, c.SeminarID)
		}
	}
	h.logger.Debug("monitor left seminar", zap.String("client_id", c.ID), zap.String("seminar_id", c.SeminarID.String()))
}

// Broadcast sends a message to all local clients watching a seminar.
func (h *Hub) Broadcast(seminarID uuid.UUID, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode realtime payload", zap.Error(err), zap.String("event", event))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.seminars[seminarID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to every monitor of a seminar. With Redis it only publishes,
// and the subscription on each instance performs the local broadcast.
func (h *Hub) Publish(seminarID uuid.UUID, event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(seminarID, event, payload)
		return
	}
	data, err := encode(payload)
	if err != nil {
		return
	}
	if err := h.redis.PublishSeminarEvent(seminarID, event, data); err != nil {
		h.logger.Warn("redis publish failed, broadcasting locally", zap.Error(err))
		h.Broadcast(seminarID, event, payload)
	}
}

// Watchers returns the number of connected monitors for a seminar.
func (h *Hub) Watchers(seminarID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.seminars[seminarID])
}

func encode(payload interface{}) (json.RawMessage, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

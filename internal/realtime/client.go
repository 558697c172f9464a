package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/middleware"
	"github.com/campus-seminarios/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the JWT in the query authenticates the monitor
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PresenceCounter reports how many registrants of a seminar are present.
type PresenceCounter interface {
	CountPresent(ctx context.Context, seminarID uuid.UUID) (int, error)
}

// Client represents a single monitor connection on a seminar.
type Client struct {
	ID        string
	SeminarID uuid.UUID
	UserID    uuid.UUID
	hub       *Hub
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
}

// ServeWs handles GET /ws?seminar_id=&token=. Only admins may watch a seminar. The first
// message on the socket is the current presence count.
func ServeWs(hub *Hub, tokens middleware.TokenValidator, counter PresenceCounter, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		seminarIDStr := c.Query("seminar_id")
		token := c.Query("token")
		if seminarIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "seminar_id e token são obrigatórios."})
			return
		}
		seminarID, err := uuid.Parse(seminarIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "seminar_id inválido."})
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Sessão inválida ou expirada."})
			return
		}
		if claims.Role != string(models.RoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"message": "Você não tem permissão para esta ação."})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			SeminarID: seminarID,
			UserID:    claims.UserID,
			hub:       hub,
			conn:      conn,
			send:      make(chan WSMessage, 64),
			logger:    logger,
		}
		hub.Register(client)
		if counter != nil {
			if n, err := counter.CountPresent(c.Request.Context(), seminarID); err == nil {
				client.push(EventPresenceCount, PresenceCount{Count: n})
			} else {
				logger.Warn("count presence", zap.Error(err), zap.String("seminar_id", seminarID.String()))
			}
		}
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) push(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}

// readPump only drains control frames; monitors never send events.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("monitor read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

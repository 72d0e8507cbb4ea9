package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tradegate/config"
	"tradegate/internal/protocol"
	"tradegate/internal/status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub          *Hub
	statusSource status.Aggregator
	port         int
	docs         protocol.Documentation
	heartbeat    HeartbeatConfig
	logger       *WebSocketLogger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *Hub, statusSource status.Aggregator, cfg *config.Config) *WebSocketHandler {
	port, err := strconv.Atoi(cfg.AppPort)
	if err != nil {
		port = 0
	}
	return &WebSocketHandler{
		hub:          hub,
		statusSource: statusSource,
		port:         port,
		docs: protocol.Documentation{
			API:     cfg.DocsAPIURL,
			GitHub:  cfg.DocsGitHubURL,
			Support: cfg.DocsSupportURL,
		},
		heartbeat: HeartbeatConfig{
			Interval: cfg.HeartbeatInterval,
			Grace:    cfg.HeartbeatGrace,
		},
		logger: NewWebSocketLogger(),
	}
}

// Handle upgrades HTTP to WebSocket, queues the welcome message as the
// session's first frame and registers the session with the hub.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, clientID, h.heartbeat, *h.logger)

	// The welcome goes into the send queue before the pumps start, so it is
	// guaranteed to reach the client ahead of any heartbeat or broadcast.
	snap := status.Snapshot(context.Background(), h.statusSource)
	welcome := protocol.NewWelcome(clientID, h.port, snap, h.docs)
	if err := client.SendJSON(welcome); err != nil {
		h.logger.Error("welcome enqueue failed", clientID, err)
	}

	h.hub.Register(client)
}

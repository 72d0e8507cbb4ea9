package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tradegate/internal/protocol"
	"tradegate/internal/status"
	gateway_errors "tradegate/pkg/errors"
)

// Hub is the connection registry: it owns the set of live sessions, starts
// their pumps, fans out broadcast events and periodically publishes the
// system status.
type Hub struct {
	clients        map[string]*Client
	register       chan *Client
	unregister     chan *Client
	broadcast      chan outbound
	router         *Router
	statusSource   status.Aggregator
	statusInterval time.Duration
	logger         *WebSocketLogger
	mu             sync.RWMutex
	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
	isRunning      int32
}

type outbound struct {
	event string
	data  []byte
}

// NewHub creates a new Hub. A statusInterval of zero disables the periodic
// system:status broadcast.
func NewHub(statusSource status.Aggregator, statusInterval time.Duration) *Hub {
	h := &Hub{
		clients:        make(map[string]*Client),
		register:       make(chan *Client, 256),
		unregister:     make(chan *Client, 256),
		broadcast:      make(chan outbound, 256),
		router:         NewRouter(),
		statusSource:   statusSource,
		statusInterval: statusInterval,
		logger:         NewWebSocketLogger(),
		stopChan:       make(chan struct{}),
	}
	h.registerCoreHandlers()
	return h
}

// Router exposes the message router so collaborators can register command
// handlers before the hub starts.
func (h *Hub) Router() *Router {
	return h.router
}

func (h *Hub) registerCoreHandlers() {
	h.router.Register(protocol.TypePong, func(ctx context.Context, c *Client, msg protocol.Inbound) error {
		c.markAlive()
		return nil
	})
	h.router.Register(protocol.TypePing, func(ctx context.Context, c *Client, msg protocol.Inbound) error {
		return c.SendJSON(protocol.NewPong())
	})
	h.router.Register(protocol.TypeSubscribe, func(ctx context.Context, c *Client, msg protocol.Inbound) error {
		if msg.Event == "" {
			return gateway_errors.ErrInvalidInput
		}
		c.Subscribe(msg.Event)
		return nil
	})
	h.router.Register(protocol.TypeUnsubscribe, func(ctx context.Context, c *Client, msg protocol.Inbound) error {
		if msg.Event == "" {
			return gateway_errors.ErrInvalidInput
		}
		c.Unsubscribe(msg.Event)
		return nil
	})
	h.router.Register(protocol.TypeStatusQuery, func(ctx context.Context, c *Client, msg protocol.Inbound) error {
		snap := status.Snapshot(ctx, h.statusSource)
		return c.SendJSON(protocol.NewStatus(snap))
	})
}

// Run starts the Hub
func (h *Hub) Run() {
	atomic.StoreInt32(&h.isRunning, 1)
	defer atomic.StoreInt32(&h.isRunning, 0)

	if h.statusInterval > 0 {
		h.wg.Add(1)
		go h.statusLoop()
	}

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case msg := <-h.broadcast:
			h.deliver(msg.event, msg.data)

		case <-h.stopChan:
			h.wg.Wait()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a session and releases its resources. Safe to call
// more than once for the same client; only the first call has any effect.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	h.clients[client.clientID] = client
	h.mu.Unlock()

	h.logger.Info("client connected", client.clientID)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.clientID]
	if ok && current == client {
		delete(h.clients, client.clientID)
	}
	h.mu.Unlock()

	// shutdown is idempotent, so racing close paths (read error, heartbeat
	// timeout, explicit unregister) release the transport exactly once.
	client.shutdown(websocket.CloseNormalClosure, "")

	if ok && current == client {
		h.logger.Info("client disconnected", client.clientID)
	}
}

// Lookup returns the session registered under clientID.
func (h *Hub) Lookup(clientID string) (*Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return nil, gateway_errors.ErrSessionNotFound
	}
	return client, nil
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ForEach calls fn for every session in a snapshot of the registry, so fn
// may register or unregister sessions without corrupting the iteration.
func (h *Hub) ForEach(fn func(*Client)) {
	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		snapshot = append(snapshot, client)
	}
	h.mu.RUnlock()

	for _, client := range snapshot {
		fn(client)
	}
}

// Emit broadcasts a JSON-encoded event to every subscribed session.
// Delivery is best-effort: a closed session or a full send queue is skipped.
func (h *Hub) Emit(event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{event: event, data: data}:
		return nil
	case <-h.stopChan:
		return gateway_errors.ErrServiceUnavailable
	}
}

func (h *Hub) deliver(event string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !client.subscribedTo(event) {
			continue
		}
		if err := client.Send(data); err != nil {
			h.logger.Warn("broadcast delivery skipped", client.clientID,
				zap.String("broadcast_event", event), zap.Error(err))
		}
	}
}

func (h *Hub) statusLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := status.Snapshot(context.Background(), h.statusSource)
			if err := h.Emit(protocol.EventSystemStatus, protocol.NewStatus(snap)); err != nil {
				return
			}
		case <-h.stopChan:
			return
		}
	}
}

// Stop gracefully shuts down the Hub and closes every session.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
	h.wg.Wait()

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.shutdown(websocket.CloseGoingAway, "server shutting down")
	}
}

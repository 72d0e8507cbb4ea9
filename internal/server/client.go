package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	gateway_errors "tradegate/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
	sendQueueSize  = 256
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// HeartbeatConfig controls the per-session liveness check: a protocol-level
// PING every Interval, and Grace to answer before the session is closed with
// code 1001. Grace must be shorter than Interval so at most one PING is
// outstanding at a time.
type HeartbeatConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

func DefaultHeartbeat() HeartbeatConfig {
	return HeartbeatConfig{
		Interval: 15 * time.Second,
		Grace:    5 * time.Second,
	}
}

// Rate limits per minute
type RateLimits struct {
	MaxPingMessages        int
	MaxStatusQueries       int
	MaxSubscriptionChanges int
}

var DefaultRateLimits = RateLimits{
	MaxPingMessages:        60,
	MaxStatusQueries:       30,
	MaxSubscriptionChanges: 60,
}

// ClientRateLimiter tracks rate limits per client
type ClientRateLimiter struct {
	pingTokens      int
	statusTokens    int
	subscribeTokens int
	lastRefill      time.Time
	mu              sync.Mutex
}

func NewClientRateLimiter() *ClientRateLimiter {
	return &ClientRateLimiter{
		pingTokens:      DefaultRateLimits.MaxPingMessages,
		statusTokens:    DefaultRateLimits.MaxStatusQueries,
		subscribeTokens: DefaultRateLimits.MaxSubscriptionChanges,
		lastRefill:      time.Now(),
	}
}

func (rl *ClientRateLimiter) Allow(msgType string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastRefill) >= time.Minute {
		rl.pingTokens = DefaultRateLimits.MaxPingMessages
		rl.statusTokens = DefaultRateLimits.MaxStatusQueries
		rl.subscribeTokens = DefaultRateLimits.MaxSubscriptionChanges
		rl.lastRefill = now
	}

	switch msgType {
	case "ping":
		if rl.pingTokens > 0 {
			rl.pingTokens--
			return true
		}
		return false
	case "status":
		if rl.statusTokens > 0 {
			rl.statusTokens--
			return true
		}
		return false
	case "subscribe", "unsubscribe":
		if rl.subscribeTokens > 0 {
			rl.subscribeTokens--
			return true
		}
		return false
	}
	// pong and unrecognized types are not token-gated; unknown types are
	// dropped by the router anyway.
	return true
}

// Client represents a single WebSocket session
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	done          chan struct{}
	clientID      string
	subscriptions map[string]bool
	subMu         sync.RWMutex
	rateLimiter   *ClientRateLimiter
	isClosing     int32
	connectedAt   time.Time
	lastPong      int64 // unix nanos, atomic
	heartbeat     HeartbeatConfig
	logger        WebSocketLogger
}

func NewClient(hub *Hub, conn *websocket.Conn, clientID string, heartbeat HeartbeatConfig, logger WebSocketLogger) *Client {
	now := time.Now()
	if heartbeat.Interval <= 0 {
		heartbeat = DefaultHeartbeat()
	}
	if heartbeat.Grace <= 0 || heartbeat.Grace >= heartbeat.Interval {
		heartbeat.Grace = heartbeat.Interval / 3
	}
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendQueueSize),
		done:          make(chan struct{}),
		clientID:      clientID,
		subscriptions: make(map[string]bool),
		rateLimiter:   NewClientRateLimiter(),
		connectedAt:   now,
		lastPong:      now.UnixNano(),
		heartbeat:     heartbeat,
		logger:        logger,
	}
}

func (c *Client) ID() string {
	return c.clientID
}

func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

func (c *Client) markAlive() {
	atomic.StoreInt64(&c.lastPong, time.Now().UnixNano())
}

func (c *Client) aliveSince(t time.Time) bool {
	return atomic.LoadInt64(&c.lastPong) >= t.UnixNano()
}

// Send enqueues one text frame for the session's writer. It never blocks:
// a closed session or a full queue returns an error and the frame is dropped.
func (c *Client) Send(message []byte) error {
	if atomic.LoadInt32(&c.isClosing) == 1 {
		return gateway_errors.ErrSessionClosed
	}
	select {
	case c.send <- message:
		return nil
	case <-c.done:
		return gateway_errors.ErrSessionClosed
	default:
		return gateway_errors.ErrQueueFull
	}
}

func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(data)
}

func (c *Client) Subscribe(event string) {
	c.subMu.Lock()
	c.subscriptions[event] = true
	c.subMu.Unlock()
}

func (c *Client) Unsubscribe(event string) {
	c.subMu.Lock()
	c.subscriptions[event] = false
	c.subMu.Unlock()
}

// subscribedTo reports whether a broadcast for event should reach this
// session. system:* events are on by default until explicitly unsubscribed.
func (c *Client) subscribedTo(event string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if v, ok := c.subscriptions[event]; ok {
		return v
	}
	return strings.HasPrefix(event, "system:")
}

// shutdown tears the session down exactly once, whichever of explicit close,
// heartbeat timeout or transport error gets here first.
func (c *Client) shutdown(code int, text string) {
	if !atomic.CompareAndSwapInt32(&c.isClosing, 0, 1) {
		return
	}
	deadline := time.Now().Add(writeWait)
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	close(c.done)
	c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.readWait()))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.readWait()))
		c.markAlive()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("websocket unexpected close", c.clientID, err)
			}
			break
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		if len(message) == 0 {
			continue
		}
		c.conn.SetReadDeadline(time.Now().Add(c.readWait()))

		if err := c.hub.router.Dispatch(context.Background(), c, message); err != nil {
			c.logger.Warn("websocket message dropped", c.clientID, zap.Error(err))
		}
	}
}

// readWait is a backstop for sessions whose transport dies without a close
// frame; the heartbeat grace window fires well before it.
func (c *Client) readWait() time.Duration {
	return c.heartbeat.Interval + 2*c.heartbeat.Grace
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.heartbeat.Interval)
	grace := time.NewTimer(c.heartbeat.Grace)
	if !grace.Stop() {
		<-grace.C
	}
	var graceC <-chan time.Time
	var pingSentAt time.Time

	defer func() {
		ticker.Stop()
		grace.Stop()
		c.shutdown(websocket.CloseNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// at most one outstanding PING per session
			if graceC != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			pingSentAt = time.Now()
			grace.Reset(c.heartbeat.Grace)
			graceC = grace.C

		case <-graceC:
			graceC = nil
			if c.aliveSince(pingSentAt) {
				continue
			}
			c.logger.Info("heartbeat timeout", c.clientID,
				zap.Duration("grace", c.heartbeat.Grace))
			c.shutdown(websocket.CloseGoingAway, "no heartbeat response")
			return

		case <-c.done:
			return
		}
	}
}

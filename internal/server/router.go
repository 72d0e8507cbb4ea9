package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tradegate/internal/protocol"
	gateway_errors "tradegate/pkg/errors"
)

// HandlerFunc processes one inbound message for one session. A returned
// error drops the message; it never closes the session.
type HandlerFunc func(ctx context.Context, c *Client, msg protocol.Inbound) error

// Router dispatches inbound JSON messages on their type field. Command
// handlers beyond the built-ins are registered by external collaborators;
// their replies go only to the originating session.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   *WebSocketLogger
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   NewWebSocketLogger(),
	}
}

func (r *Router) Register(msgType string, handler HandlerFunc) {
	r.mu.Lock()
	r.handlers[msgType] = handler
	r.mu.Unlock()
}

func (r *Router) Dispatch(ctx context.Context, c *Client, raw []byte) error {
	var msg protocol.Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("malformed message: %w", err)
	}
	if msg.Type == "" {
		return gateway_errors.ErrInvalidInput
	}

	if !c.rateLimiter.Allow(msg.Type) {
		r.logger.Warn("rate limit exceeded", c.clientID, zap.String("msg_type", msg.Type))
		return nil
	}

	r.mu.RLock()
	h, ok := r.handlers[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("unknown message type", c.clientID, zap.String("msg_type", msg.Type))
		return nil
	}
	return h(ctx, c, msg)
}

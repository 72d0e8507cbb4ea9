package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/status"
	gateway_errors "tradegate/pkg/errors"
)

func TestLookupUnknownSession(t *testing.T) {
	h := NewHub(status.Static{}, 0)

	_, err := h.Lookup("no-such-id")
	assert.ErrorIs(t, err, gateway_errors.ErrSessionNotFound)
	assert.Zero(t, h.Count())
}

func TestForEachIteratesSnapshot(t *testing.T) {
	agg := status.Static{StoreConnected: true}
	h := newTestHub(t, agg)
	ts := newTestServer(t, h, agg, DefaultHeartbeat())

	for i := 0; i < 3; i++ {
		conn := dialWS(t, ts)
		readWelcome(t, conn)
	}
	require.Eventually(t, func() bool { return h.Count() == 3 }, time.Second, 10*time.Millisecond)

	// Unregistering from inside the iteration must not corrupt it.
	seen := 0
	h.ForEach(func(c *Client) {
		seen++
		h.Unregister(c)
	})
	assert.Equal(t, 3, seen)
	require.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestEmitWithNoSessions(t *testing.T) {
	agg := status.Static{}
	h := newTestHub(t, agg)

	assert.NoError(t, h.Emit("system:status", map[string]string{"status": "ok"}))
}

func TestStopClosesAllSessions(t *testing.T) {
	agg := status.Static{StoreConnected: true}
	h := NewHub(agg, 0)
	go h.Run()
	ts := newTestServer(t, h, agg, DefaultHeartbeat())

	conn := dialWS(t, ts)
	readWelcome(t, conn)
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 10*time.Millisecond)

	h.Stop()
	assert.Zero(t, h.Count())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

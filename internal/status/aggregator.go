// Package status reports the health of the gateway's dependent subsystems
// (the Redis store, the trading bot, the trader worker) for embedding in
// welcome and status messages.
package status

import (
	"context"
	"time"

	"tradegate/internal/protocol"
)

// StatusUnknown is reported for a subsystem whose backend cannot be reached.
const StatusUnknown = "unknown"

// Aggregator supplies current subsystem health. Implementations must honor
// the context deadline; a slow backend degrades the answer, it never blocks
// the handshake.
type Aggregator interface {
	IsStoreConnected(ctx context.Context) bool
	BotStatus(ctx context.Context) string
	TraderStatus(ctx context.Context) string
}

// SnapshotTimeout bounds how long a single snapshot may spend querying
// backends before degraded values are reported instead.
const SnapshotTimeout = 2 * time.Second

// Snapshot queries the aggregator with a bounded timeout and assembles the
// wire-level systemStatus block.
func Snapshot(ctx context.Context, a Aggregator) protocol.SystemStatus {
	ctx, cancel := context.WithTimeout(ctx, SnapshotTimeout)
	defer cancel()

	return protocol.SystemStatus{
		RedisConnected: a.IsStoreConnected(ctx),
		BotStatus:      a.BotStatus(ctx),
		TraderStatus:   a.TraderStatus(ctx),
	}
}

// Static is a fixed-answer aggregator for tests and redis-less runs.
type Static struct {
	StoreConnected bool
	Bot            string
	Trader         string
}

func (s Static) IsStoreConnected(ctx context.Context) bool { return s.StoreConnected }

func (s Static) BotStatus(ctx context.Context) string {
	if s.Bot == "" {
		return StatusUnknown
	}
	return s.Bot
}

func (s Static) TraderStatus(ctx context.Context) string {
	if s.Trader == "" {
		return StatusUnknown
	}
	return s.Trader
}

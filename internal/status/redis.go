package status

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis status keys maintained by the bot and trader processes.
const (
	botStatusKey    = "bot:status"
	traderStatusKey = "trader:status"
)

// RedisAggregator answers health queries from the shared Redis store. The
// store probe is a PING, subsystem strings are plain GETs on well-known keys.
type RedisAggregator struct {
	client *redis.Client
}

func NewRedisAggregator(client *redis.Client) *RedisAggregator {
	return &RedisAggregator{client: client}
}

func (r *RedisAggregator) IsStoreConnected(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisAggregator) BotStatus(ctx context.Context) string {
	return r.statusKey(ctx, botStatusKey)
}

func (r *RedisAggregator) TraderStatus(ctx context.Context) string {
	return r.statusKey(ctx, traderStatusKey)
}

func (r *RedisAggregator) statusKey(ctx context.Context, key string) string {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		// redis.Nil (key never written) and a dead connection read the same
		// to clients: the subsystem state is not known.
		return StatusUnknown
	}
	return val
}

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// New creates a Redis client and pings it.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Optional connects like New but returns nil when Redis is unreachable, so
// reports still run uncached.
func Optional(ctx context.Context, addr string, logger *slog.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	client, err := New(ctx, addr)
	if err != nil {
		if logger != nil {
			logger.Warn("redis unavailable, table cache disabled", slog.String("addr", addr), slog.Any("error", err))
		}
		return nil
	}
	return client
}

// QueueOpt returns the asynq connection for the same Redis instance.
func QueueOpt(addr string) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr}
}

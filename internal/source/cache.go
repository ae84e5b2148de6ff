package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Glebrito/Analisediaria/internal/sheet"
)

const (
	cacheVersionKey = "analise:tables:version"
	bumpChannel     = "analise.tables.bump"

	// DefaultCacheTTL matches the dashboard refresh window.
	DefaultCacheTTL = 5 * time.Minute
)

// CachedProvider keeps fetched tables in Redis under versioned keys. Bump
// moves every reader to a new version; old entries expire with their TTL.
type CachedProvider struct {
	upstream Provider
	client   *redis.Client
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
}

// NewCachedProvider wraps upstream. A nil client disables caching but keeps
// request coalescing.
func NewCachedProvider(upstream Provider, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{upstream: upstream, client: client, ttl: ttl, logger: logger}
}

// Version returns the current cache version, initialising when missing.
func (c *CachedProvider) Version(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Key composes the versioned cache key of a table.
func (c *CachedProvider) Key(ctx context.Context, name TableName) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return tableKey(name, ver), nil
}

func tableKey(name TableName, ver int64) string {
	return strings.Join([]string{"analise", "table", string(name), strconv.FormatInt(ver, 10)}, ":")
}

// Fetch serves a table from Redis or loads it once from upstream.
func (c *CachedProvider) Fetch(ctx context.Context, name TableName) (sheet.Table, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		c.logger.Warn("table cache unavailable", slog.String("table", string(name)), slog.Any("error", err))
		return c.upstream.Fetch(ctx, name)
	}
	return c.fetchAt(ctx, name, ver)
}

// Snapshot pins the current version so every table of one load comes from
// the same generation, even when a Bump lands mid-load.
func (c *CachedProvider) Snapshot(ctx context.Context) Provider {
	ver, err := c.Version(ctx)
	if err != nil {
		c.logger.Warn("table cache unavailable", slog.Any("error", err))
		return c.upstream
	}
	return pinnedProvider{cache: c, version: ver}
}

type pinnedProvider struct {
	cache   *CachedProvider
	version int64
}

func (p pinnedProvider) Fetch(ctx context.Context, name TableName) (sheet.Table, error) {
	return p.cache.fetchAt(ctx, name, p.version)
}

func (c *CachedProvider) fetchAt(ctx context.Context, name TableName, ver int64) (sheet.Table, error) {
	key := tableKey(name, ver)
	if c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var t sheet.Table
			if err := json.Unmarshal(payload, &t); err == nil {
				return t, nil
			}
			c.logger.Warn("discarding corrupt cache entry", slog.String("key", key))
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("table cache read", slog.String("key", key), slog.Any("error", err))
		}
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		// detached so one caller's cancellation does not fail the others
		t, err := c.upstream.Fetch(context.WithoutCancel(ctx), name)
		if err != nil {
			return sheet.Table{}, err
		}
		c.store(context.WithoutCancel(ctx), key, t)
		return t, nil
	})
	select {
	case <-ctx.Done():
		return sheet.Table{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return sheet.Table{}, res.Err
		}
		return res.Val.(sheet.Table), nil
	}
}

func (c *CachedProvider) store(ctx context.Context, key string, t sheet.Table) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		c.logger.Warn("table cache encode", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("table cache write", slog.String("key", key), slog.Any("error", err))
	}
}

// Bump invalidates every cached table and announces the new version.
func (c *CachedProvider) Bump(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, nil
	}
	if _, err := c.Version(ctx); err != nil {
		return 0, fmt.Errorf("source: bump cache: %w", err)
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("source: bump cache: %w", err)
	}
	if err := c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err(); err != nil {
		return ver, fmt.Errorf("source: publish bump: %w", err)
	}
	return ver, nil
}

// Refresh bumps the version and reloads every table into the new one.
func (c *CachedProvider) Refresh(ctx context.Context) (int64, error) {
	ver, err := c.Bump(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := Load(ctx, pinnedProvider{cache: c, version: ver}); err != nil {
		return ver, err
	}
	return ver, nil
}

// ListenForInvalidation logs bumps made by other processes until ctx ends.
func (c *CachedProvider) ListenForInvalidation(ctx context.Context) {
	if c.client == nil {
		return
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				c.logger.Info("table cache bumped", slog.String("version", msg.Payload))
			}
		}
	}()
}

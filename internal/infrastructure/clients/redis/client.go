package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	"github.com/medconnect/clinic-backend/pkg/config"
	"github.com/medconnect/clinic-backend/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// Client wraps the go-redis client shared by the cache, OTP store and event bus
type Client struct {
	rdb  *redis.Client
	addr string
}

// NewClient dials Redis and blocks until it answers PING or the configured
// number of attempts is spent.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:        cfg.RedisAddr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	}
	c := &Client{rdb: redis.NewClient(opts), addr: opts.Addr}

	policy := retry.DefaultConfig()
	policy.MaxAttempts = max(cfg.ConnectAttempts, 1)
	policy.MaxTotalTimeout = 15 * time.Second

	logger := observability.GetLogger()
	onFailure := func(attempt int, err error, wait time.Duration) {
		logger.Warn().Err(err).Str("addr", c.addr).Int("attempt", attempt).Dur("next_delay", wait).Msg("Redis not ready, retrying")
	}
	if err := retry.DoWithLog(ctx, policy, "Redis", func() error { return c.Ping(ctx) }, onFailure); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", c.addr, err)
	}

	logger.Info().Str("addr", c.addr).Int("db", cfg.DB).Msg("Connected to Redis")
	return c, nil
}

// NewClientFromRedis wraps an existing go-redis client without dialing
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, addr: rdb.Options().Addr}
}

func (c *Client) Client() *redis.Client {
	return c.rdb
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

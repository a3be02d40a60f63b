package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the Redis surface the service uses. An interface so a disabled
// deployment (no Redis configured) gets a no-op implementation and callers
// can fall back to in-process storage.
type Client interface {
	IsEnabled() bool
	Ping(ctx context.Context) error
	Close() error

	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	CountByPattern(ctx context.Context, pattern string) (int64, error)
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// Config holds Redis connection settings.
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	Enabled      bool
	PoolSize     int
	MinIdleConns int
}

type client struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// disabledClient satisfies Client when Redis is switched off.
type disabledClient struct{}

// NewClient creates a Redis client, or a no-op client when disabled. The
// connection is verified eagerly; a dead Redis at startup downgrades to the
// disabled client rather than failing the whole service.
func NewClient(cfg Config, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Enabled {
		logger.Info("Redis disabled by configuration")
		return disabledClient{}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis, continuing without it",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.Error(err),
		)
		_ = rdb.Close()
		return disabledClient{}
	}

	logger.Info("Connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("database", cfg.DB),
	)

	return &client{rdb: rdb, logger: logger}
}

// NewClientFromRedis wraps an existing go-redis client. Used by tests with
// miniredis.
func NewClientFromRedis(rdb *redis.Client, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &client{rdb: rdb, logger: logger}
}

func (c *client) IsEnabled() bool { return true }

func (c *client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *client) Close() error {
	return c.rdb.Close()
}

func (c *client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (c *client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}
	return val, true, nil
}

func (c *client) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return result > 0, nil
}

func (c *client) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (c *client) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get keys by pattern: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete keys by pattern: %w", err)
	}

	c.logger.Debug("Keys deleted by pattern",
		zap.String("pattern", pattern),
		zap.Int("deleted_count", len(keys)),
	)

	return int64(len(keys)), nil
}

func (c *client) CountByPattern(ctx context.Context, pattern string) (int64, error) {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count keys by pattern: %w", err)
	}
	return int64(len(keys)), nil
}

func (c *client) Stats(ctx context.Context) (map[string]interface{}, error) {
	info, err := c.rdb.Info(ctx, "memory").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	poolStats := c.rdb.PoolStats()

	return map[string]interface{}{
		"memory_info": info,
		"pool_stats": map[string]interface{}{
			"hits":        poolStats.Hits,
			"misses":      poolStats.Misses,
			"total_conns": poolStats.TotalConns,
			"idle_conns":  poolStats.IdleConns,
			"stale_conns": poolStats.StaleConns,
		},
	}, nil
}

// disabledClient implementation

func (disabledClient) IsEnabled() bool                     { return false }
func (disabledClient) Ping(context.Context) error          { return fmt.Errorf("redis disabled") }
func (disabledClient) Close() error                        { return nil }
func (disabledClient) Set(context.Context, string, string, time.Duration) error { return nil }
func (disabledClient) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (disabledClient) Exists(context.Context, string) (bool, error)             { return false, nil }
func (disabledClient) Delete(context.Context, string) error                     { return nil }
func (disabledClient) DeleteByPattern(context.Context, string) (int64, error)   { return 0, nil }
func (disabledClient) CountByPattern(context.Context, string) (int64, error)    { return 0, nil }
func (disabledClient) Stats(context.Context) (map[string]interface{}, error) {
	return nil, fmt.Errorf("redis disabled")
}

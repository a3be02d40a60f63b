package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/staybook/auth-service/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisBlacklist(t *testing.T) (*TokenBlacklist, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewTokenBlacklist(redis.NewClientFromRedis(rdb, zap.NewNop())), mr
}

func newMemoryBlacklist() *TokenBlacklist {
	return NewTokenBlacklist(redis.NewClient(redis.Config{Enabled: false}, zap.NewNop()))
}

func TestTokenBlacklist_Redis(t *testing.T) {
	bl, mr := newRedisBlacklist(t)
	ctx := context.Background()

	assert.Equal(t, "redis", bl.Backend())
	assert.False(t, bl.IsBlacklisted(ctx, "unknown-jti"))

	require.NoError(t, bl.Blacklist(ctx, "jti-1", time.Now().Add(10*time.Minute)))
	assert.True(t, bl.IsBlacklisted(ctx, "jti-1"))

	count, err := bl.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Entries age out with the token's remaining life.
	mr.FastForward(11 * time.Minute)
	assert.False(t, bl.IsBlacklisted(ctx, "jti-1"))
}

func TestTokenBlacklist_ExpiredTokenIsNoop(t *testing.T) {
	bl, _ := newRedisBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Blacklist(ctx, "stale-jti", time.Now().Add(-time.Minute)))
	assert.False(t, bl.IsBlacklisted(ctx, "stale-jti"))

	count, err := bl.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTokenBlacklist_Flush(t *testing.T) {
	bl, _ := newRedisBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Blacklist(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, bl.Blacklist(ctx, "jti-2", time.Now().Add(time.Hour)))

	deleted, err := bl.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.False(t, bl.IsBlacklisted(ctx, "jti-1"))
	assert.False(t, bl.IsBlacklisted(ctx, "jti-2"))
}

func TestTokenBlacklist_MemoryFallback(t *testing.T) {
	bl := newMemoryBlacklist()
	ctx := context.Background()

	assert.Equal(t, "memory", bl.Backend())

	require.NoError(t, bl.Blacklist(ctx, "jti-1", time.Now().Add(time.Hour)))
	assert.True(t, bl.IsBlacklisted(ctx, "jti-1"))
	assert.False(t, bl.IsBlacklisted(ctx, "jti-2"))

	count, err := bl.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := bl.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.False(t, bl.IsBlacklisted(ctx, "jti-1"))
}

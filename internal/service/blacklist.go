package service

import (
	"context"
	"time"

	"github.com/staybook/auth-service/internal/constants"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/cache"
	"github.com/staybook/auth-service/pkg/logger"
	"github.com/staybook/auth-service/pkg/redis"
)

// TokenBlacklist revokes individual access tokens by jti. Entries live in
// Redis keyed by constants.KeyTokenBlacklist + jti with a TTL equal to the
// token's remaining life; once the token would have expired anyway the entry
// ages out. When Redis is disabled an in-process cache takes over, which is
// fine for a single instance and simply means blacklists do not survive a
// restart (token_version still does, it lives in the database).
type TokenBlacklist struct {
	redis    redis.Client
	fallback *cache.Cache
}

func NewTokenBlacklist(redisClient redis.Client) *TokenBlacklist {
	return &TokenBlacklist{
		redis:    redisClient,
		fallback: cache.NewCache(),
	}
}

// Blacklist revokes a token until its natural expiry.
func (b *TokenBlacklist) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	ctx = ctxutil.WithOperation(ctx, "service", "Blacklist")

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, nothing to revoke.
		return nil
	}

	if b.redis.IsEnabled() {
		if err := b.redis.Set(ctx, constants.KeyTokenBlacklist+jti, "1", ttl); err != nil {
			logger.ErrorWithContext(ctx, "Failed to blacklist token in Redis").
				String("jti", jti).
				Err(err).
				Log()
			return err
		}
	} else {
		b.fallback.Set(constants.KeyTokenBlacklist+jti, true, ttl)
	}

	logger.DebugWithContext(ctx, "Token blacklisted").
		String("jti", jti).
		Time("expires_at", expiresAt).
		Log()

	return nil
}

// IsBlacklisted reports whether a token has been revoked. Redis errors fail
// open with a warning; the short access TTL bounds the exposure.
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, jti string) bool {
	ctx = ctxutil.WithOperation(ctx, "service", "IsBlacklisted")

	if b.redis.IsEnabled() {
		exists, err := b.redis.Exists(ctx, constants.KeyTokenBlacklist+jti)
		if err != nil {
			logger.WarnWithContext(ctx, "Blacklist check failed, allowing token").
				String("jti", jti).
				Err(err).
				Log()
			return false
		}
		return exists
	}

	_, found := b.fallback.Get(constants.KeyTokenBlacklist + jti)
	return found
}

// Count returns the number of currently blacklisted tokens.
func (b *TokenBlacklist) Count(ctx context.Context) (int64, error) {
	if b.redis.IsEnabled() {
		return b.redis.CountByPattern(ctx, constants.KeyTokenBlacklist+"*")
	}
	return int64(b.fallback.Len()), nil
}

// Flush clears every blacklist entry. Admin operation.
func (b *TokenBlacklist) Flush(ctx context.Context) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "FlushBlacklist")

	if b.redis.IsEnabled() {
		deleted, err := b.redis.DeleteByPattern(ctx, constants.KeyTokenBlacklist+"*")
		if err != nil {
			logger.ErrorWithContext(ctx, "Failed to flush token blacklist").
				Err(err).
				Log()
			return 0, err
		}
		logger.InfoWithContext(ctx, "Token blacklist flushed").
			Int64("deleted_count", deleted).
			Log()
		return deleted, nil
	}

	n := int64(b.fallback.Len())
	b.fallback.Flush()
	logger.InfoWithContext(ctx, "Token blacklist flushed").
		Int64("deleted_count", n).
		Log()
	return n, nil
}

// Backend names the store currently in use, for the admin stats endpoint.
func (b *TokenBlacklist) Backend() string {
	if b.redis.IsEnabled() {
		return "redis"
	}
	return "memory"
}

package repository

import (
	"context"
	"time"

	"github.com/staybook/auth-service/internal/model"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
	"gorm.io/gorm"
)

// ActionTokenRepository persists single-use email tokens (verification and
// password reset).
type ActionTokenRepository struct {
	db *gorm.DB
}

func NewActionTokenRepository(db *gorm.DB) *ActionTokenRepository {
	return &ActionTokenRepository{db: db}
}

// Create stores a new token record.
func (r *ActionTokenRepository) Create(ctx context.Context, token *model.ActionToken) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateActionToken")

	start := time.Now()
	result := r.db.WithContext(ctx).Create(token)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create action token").
			Uint("user_id", token.UserID).
			String("kind", token.Kind).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.DebugWithContext(ctx, "Action token created").
		Uint("user_id", token.UserID).
		String("kind", token.Kind).
		Time("expires_at", token.ExpiresAt).
		Duration(duration).
		Log()

	return nil
}

// GetByHash fetches a token of the given kind by its stored hash.
func (r *ActionTokenRepository) GetByHash(ctx context.Context, kind, tokenHash string) (*model.ActionToken, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetActionTokenByHash")

	start := time.Now()
	var token model.ActionToken

	result := r.db.WithContext(ctx).
		Where("kind = ? AND token_hash = ?", kind, tokenHash).
		First(&token)
	duration := time.Since(start)

	if result.Error != nil {
		logger.DebugWithContext(ctx, "Action token not found").
			String("kind", kind).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "Action token retrieved").
		String("kind", kind).
		Uint("user_id", token.UserID).
		Duration(duration).
		Log()

	return &token, nil
}

// MarkUsed stamps the token as consumed. Returns gorm.ErrRecordNotFound if
// another request consumed it first.
func (r *ActionTokenRepository) MarkUsed(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "MarkActionTokenUsed")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.ActionToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", time.Now())
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to mark action token used").
			Uint("token_pk", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "Action token already used or missing").
			Uint("token_pk", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	return nil
}

// InvalidateForUser consumes all outstanding tokens of a kind for a user.
// Issuing a new token first invalidates the old ones.
func (r *ActionTokenRepository) InvalidateForUser(ctx context.Context, userID uint, kind string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "InvalidateActionTokens")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.ActionToken{}).
		Where("user_id = ? AND kind = ? AND used_at IS NULL", userID, kind).
		Update("used_at", time.Now())
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to invalidate action tokens").
			Uint("user_id", userID).
			String("kind", kind).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected > 0 {
		logger.DebugWithContext(ctx, "Outstanding action tokens invalidated").
			Uint("user_id", userID).
			String("kind", kind).
			Int64("count", result.RowsAffected).
			Duration(duration).
			Log()
	}

	return nil
}

// CleanupExpired hard-deletes tokens past expiry or already used (batch
// operation run by the cleanup worker).
func (r *ActionTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "CleanupExpiredActionTokens")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("expires_at < ? OR used_at IS NOT NULL", time.Now()).
		Delete(&model.ActionToken{})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to cleanup action tokens").
			Duration(duration).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.InfoWithContext(ctx, "Expired action tokens cleaned up").
			Int64("cleaned_count", result.RowsAffected).
			Duration(duration).
			Log()
	}

	return result.RowsAffected, nil
}

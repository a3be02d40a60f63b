package repository

import (
	"context"
	"time"

	"github.com/staybook/auth-service/internal/model"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
	"gorm.io/gorm"
)

// LoginAuditRepository persists authentication events.
type LoginAuditRepository struct {
	db *gorm.DB
}

func NewLoginAuditRepository(db *gorm.DB) *LoginAuditRepository {
	return &LoginAuditRepository{db: db}
}

// Create appends an audit record. Audit writes must never fail a login, so
// callers log and ignore the returned error.
func (r *LoginAuditRepository) Create(ctx context.Context, entry *model.LoginAudit) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateLoginAudit")

	start := time.Now()
	result := r.db.WithContext(ctx).Create(entry)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to write login audit").
			Uint("user_id", entry.UserID).
			String("event", entry.Event).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	return nil
}

// ListByUser returns a page of audit entries for a user, newest first.
func (r *LoginAuditRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]model.LoginAudit, int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "ListLoginAudits")

	start := time.Now()
	var entries []model.LoginAudit
	var total int64

	query := r.db.WithContext(ctx).Model(&model.LoginAudit{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count login audits").
			Uint("user_id", userID).
			Err(err).
			Log()
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to list login audits").
			Uint("user_id", userID).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, 0, err
	}

	logger.DebugWithContext(ctx, "Login audits retrieved").
		Uint("user_id", userID).
		Int64("total", total).
		Int("returned_count", len(entries)).
		Duration(time.Since(start)).
		Log()

	return entries, total, nil
}

// CleanupOlderThan removes audit entries past the retention window.
func (r *LoginAuditRepository) CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "CleanupLoginAudits")

	cutoff := time.Now().Add(-retention)

	result := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.LoginAudit{})

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to cleanup login audits").
			Time("cutoff", cutoff).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.InfoWithContext(ctx, "Old login audits cleaned up").
			Int64("cleaned_count", result.RowsAffected).
			Time("cutoff", cutoff).
			Log()
	}

	return result.RowsAffected, nil
}

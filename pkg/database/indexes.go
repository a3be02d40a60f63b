package database

import (
	"github.com/staybook/auth-service/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureIndexes creates supplementary indexes beyond what AutoMigrate
// derives from struct tags. Failures are logged and skipped so a missing
// privilege on one index does not block startup.
func EnsureIndexes(db *gorm.DB) error {
	userIndexes := []string{
		// Case-insensitive email lookup used by login and registration.
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_users_email_lower ON users (LOWER(email));",

		// Admin dashboard: locked accounts surface quickly.
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_users_locked ON users (locked_until) WHERE locked_until IS NOT NULL;",
	}

	tokenIndexes := []string{
		// Cleanup worker scans by expiry.
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_action_tokens_cleanup ON action_tokens (expires_at) WHERE used_at IS NULL;",
	}

	auditIndexes := []string{
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_login_audits_user_created ON login_audits (user_id, created_at DESC);",
	}

	allIndexes := append(userIndexes, tokenIndexes...)
	allIndexes = append(allIndexes, auditIndexes...)

	for _, indexSQL := range allIndexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			logger.GetLogger().Warn("Failed to create index",
				zap.String("sql", indexSQL),
				zap.Error(err),
			)
		}
	}

	return nil
}

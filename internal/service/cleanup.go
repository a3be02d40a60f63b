package service

import (
	"context"
	"time"

	"github.com/staybook/auth-service/internal/repository"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
)

// CleanupWorker periodically removes expired verification/reset tokens,
// clears expired refresh-token hashes, and trims old audit rows.
type CleanupWorker struct {
	repoUser       *repository.UserRepository
	repoTokens     *repository.ActionTokenRepository
	repoAudit      *repository.LoginAuditRepository
	interval       time.Duration
	auditRetention time.Duration
}

func NewCleanupWorker(
	repoUser *repository.UserRepository,
	repoTokens *repository.ActionTokenRepository,
	repoAudit *repository.LoginAuditRepository,
	interval time.Duration,
	auditRetention time.Duration,
) *CleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if auditRetention <= 0 {
		auditRetention = 90 * 24 * time.Hour
	}

	return &CleanupWorker{
		repoUser:       repoUser,
		repoTokens:     repoTokens,
		repoAudit:      repoAudit,
		interval:       interval,
		auditRetention: auditRetention,
	}
}

// Run blocks until ctx is cancelled, sweeping on each tick. Call it on its
// own goroutine.
func (w *CleanupWorker) Run(ctx context.Context) {
	logger.InfoWithContext(ctx, "Cleanup worker started").
		String("interval", w.interval.String()).
		Log()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// First sweep right away so a restart doesn't delay cleanup by a full
	// interval.
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.InfoWithContext(ctx, "Cleanup worker stopped").
				Log()
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Each step is independent; a failure in one is
// logged and the rest still run.
func (w *CleanupWorker) Sweep(ctx context.Context) {
	ctx = ctxutil.WithOperation(ctx, "service", "CleanupSweep")

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tokens, err := w.repoTokens.CleanupExpired(sweepCtx)
	if err != nil {
		logger.ErrorWithContext(sweepCtx, "Action token cleanup failed").
			Err(err).
			Log()
	}

	refresh, err := w.repoUser.CleanupExpiredRefreshTokens(sweepCtx)
	if err != nil {
		logger.ErrorWithContext(sweepCtx, "Refresh token cleanup failed").
			Err(err).
			Log()
	}

	audits, err := w.repoAudit.CleanupOlderThan(sweepCtx, w.auditRetention)
	if err != nil {
		logger.ErrorWithContext(sweepCtx, "Audit cleanup failed").
			Err(err).
			Log()
	}

	if tokens > 0 || refresh > 0 || audits > 0 {
		logger.InfoWithContext(sweepCtx, "Cleanup sweep completed").
			Int64("action_tokens", tokens).
			Int64("refresh_tokens", refresh).
			Int64("audit_rows", audits).
			Log()
	}
}

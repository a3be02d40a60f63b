package service

import (
	"context"
	"testing"
	"time"

	"github.com/staybook/auth-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupWorker_Sweep(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")

	// Live token stays, expired one goes.
	f.plantActionToken(t, resp.ID, model.TokenKindPasswordReset, time.Now().Add(time.Hour))
	f.plantActionToken(t, resp.ID, model.TokenKindVerification, time.Now().Add(-time.Hour))

	// Expired refresh token hash awaiting clearing.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.users.UpdateRefreshToken(ctx, resp.ID, "stale-hash", &past))

	worker := NewCleanupWorker(f.users, f.tokens, f.audits, time.Hour, 90*24*time.Hour)
	worker.Sweep(ctx)

	// The registration's own verification token and the live reset token
	// survive; the expired one is gone.
	var tokenCount int64
	require.NoError(t, f.db.Model(&model.ActionToken{}).
		Where("user_id = ?", resp.ID).
		Count(&tokenCount).Error)
	assert.Equal(t, int64(2), tokenCount)

	user, err := f.users.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Empty(t, user.RefreshTokenHash)
}

func TestCleanupWorker_RunStopsOnCancel(t *testing.T) {
	f := newServiceFixture(t)

	worker := NewCleanupWorker(f.users, f.tokens, f.audits, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Worker did not stop after cancel")
	}
}

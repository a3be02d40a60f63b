package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/internal/service"
	"github.com/staybook/auth-service/pkg/logger"
	"github.com/staybook/auth-service/pkg/redis"
	"go.uber.org/zap"
)

// SessionHandler exposes the token-blacklist store to admins: stats, flush,
// and backend health.
type SessionHandler struct {
	blacklist   *service.TokenBlacklist
	redisClient redis.Client
}

func NewSessionHandler(blacklist *service.TokenBlacklist, redisClient redis.Client) *SessionHandler {
	return &SessionHandler{
		blacklist:   blacklist,
		redisClient: redisClient,
	}
}

// GetBlacklistStats returns blacklist size and backend info
func (h *SessionHandler) GetBlacklistStats(c *gin.Context) {
	count, err := h.blacklist.Count(c.Request.Context())
	if err != nil {
		logger.GetLogger().Error("Failed to get blacklist stats",
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get blacklist statistics",
		})
		return
	}

	data := gin.H{
		"backend":            h.blacklist.Backend(),
		"blacklisted_tokens": count,
	}

	if h.redisClient.IsEnabled() {
		if stats, err := h.redisClient.Stats(c.Request.Context()); err == nil {
			data["redis"] = stats
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// FlushBlacklist clears every blacklist entry (admin only)
func (h *SessionHandler) FlushBlacklist(c *gin.Context) {
	// Flushing un-revokes logged-out tokens until they expire, so require
	// explicit confirmation.
	confirm := c.Query("confirm")
	if confirm != "true" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Please add ?confirm=true to flush the token blacklist",
		})
		return
	}

	deleted, err := h.blacklist.Flush(c.Request.Context())
	if err != nil {
		logger.GetLogger().Error("Failed to flush token blacklist",
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to flush token blacklist",
		})
		return
	}

	logger.GetLogger().Warn("Token blacklist flushed by admin",
		zap.Int64("deleted_count", deleted),
	)

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Token blacklist flushed",
		"deleted_count": deleted,
	})
}

// HealthBlacklist checks the blacklist backend
func (h *SessionHandler) HealthBlacklist(c *gin.Context) {
	if !h.redisClient.IsEnabled() {
		c.JSON(http.StatusOK, gin.H{
			"status":  "degraded",
			"backend": "memory",
			"message": "Redis disabled, blacklist is in-process only",
		})
		return
	}

	if err := h.redisClient.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"backend": "redis",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"backend": "redis",
	})
}

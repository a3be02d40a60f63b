package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/staybook/auth-service/internal/constants"
	ctxutil "github.com/staybook/auth-service/pkg/context"
)

// RequestContext seeds the request context with tracking fields that the
// context-aware log builder extracts on every entry: a request ID (incoming
// X-Request-ID or a fresh UUID), client IP, user agent, and start time. The
// request ID is echoed back in the response header.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, ctxutil.RequestIDKey, requestID)
		ctx = context.WithValue(ctx, ctxutil.ClientIPKey, c.ClientIP())
		ctx = context.WithValue(ctx, ctxutil.UserAgentKey, c.Request.UserAgent())
		ctx = context.WithValue(ctx, ctxutil.StartTimeKey, time.Now())
		c.Request = c.Request.WithContext(ctx)

		c.Writer.Header().Set(constants.HeaderXRequestID, requestID)

		c.Next()
	}
}

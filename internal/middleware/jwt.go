package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/internal/constants"
	"github.com/staybook/auth-service/internal/repository"
	"github.com/staybook/auth-service/internal/service"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
	"go.uber.org/zap"
)

type JWTMiddleware struct {
	jwtService *service.JWTService
	userRepo   *repository.UserRepository
	blacklist  *service.TokenBlacklist
}

func NewJWTMiddleware(jwtService *service.JWTService, userRepo *repository.UserRepository, blacklist *service.TokenBlacklist) *JWTMiddleware {
	return &JWTMiddleware{
		jwtService: jwtService,
		userRepo:   userRepo,
		blacklist:  blacklist,
	}
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"message": constants.MsgUnauthorized,
	})
	c.Abort()
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(constants.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return "", false
	}

	return tokenParts[1], true
}

// RequireAuth validates the bearer token and sets user info in context. The
// token must carry the user's current token_version and a jti that has not
// been blacklisted.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			logger.GetLogger().Warn("Missing or malformed Authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			abortUnauthorized(c)
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.GetLogger().Warn("Invalid or expired token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err))
			abortUnauthorized(c)
			return
		}

		ctx := c.Request.Context()

		if m.blacklist.IsBlacklisted(ctx, claims.TokenID) {
			logger.GetLogger().Warn("Blacklisted token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Uint("user_id", claims.UserID),
				zap.String("jti", claims.TokenID))
			abortUnauthorized(c)
			return
		}

		user, err := m.userRepo.GetByID(ctx, claims.UserID)
		if err != nil {
			logger.GetLogger().Warn("Token subject not found",
				zap.String("path", c.Request.URL.Path),
				zap.Uint("user_id", claims.UserID),
				zap.Error(err))
			abortUnauthorized(c)
			return
		}

		if claims.TokenVersion != user.TokenVersion {
			logger.GetLogger().Warn("Token version mismatch, token invalidated",
				zap.String("path", c.Request.URL.Path),
				zap.Uint("user_id", claims.UserID),
				zap.Int("token_version", claims.TokenVersion),
				zap.Int("db_version", user.TokenVersion))
			abortUnauthorized(c)
			return
		}

		m.setAuthContext(c, claims)

		logger.GetLogger().Debug("User authenticated",
			zap.Uint("user_id", claims.UserID),
			zap.String("role", claims.Role),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method))

		c.Next()
	}
}

// OptionalAuth checks for a token but doesn't require it. It does not hit
// the database; authorization decisions still need RequireAuth.
func (m *JWTMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		if m.blacklist.IsBlacklisted(c.Request.Context(), claims.TokenID) {
			c.Next()
			return
		}

		m.setAuthContext(c, claims)
		c.Next()
	}
}

// RequireRole guards a route group behind a role. Runs after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("user_role")
		if userRole != role {
			logger.GetLogger().Warn("Role check failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("required_role", role),
				zap.String("user_role", userRole))
			c.JSON(http.StatusForbidden, gin.H{
				"message": constants.MsgForbidden,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setAuthContext mirrors the claims into the gin context (for handlers) and
// the request context (for the log builder and services).
func (m *JWTMiddleware) setAuthContext(c *gin.Context, claims *service.AccessTokenClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("user_email", claims.Email)
	c.Set("user_role", claims.Role)
	c.Set("token_id", claims.TokenID)
	c.Set("token_expires", claims.ExpiresAt)

	ctx := c.Request.Context()
	ctx = ctxutil.WithUserID(ctx, claims.UserID)
	ctx = context.WithValue(ctx, ctxutil.UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, ctxutil.UserRoleKey, claims.Role)
	ctx = context.WithValue(ctx, ctxutil.TokenIDKey, claims.TokenID)
	c.Request = c.Request.WithContext(ctx)
}

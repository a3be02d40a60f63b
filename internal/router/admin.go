package router

import (
	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/internal/constants"
	"github.com/staybook/auth-service/internal/middleware"
)

func (r *Router) adminRoutes(version *gin.RouterGroup) {
	admin := version.Group("/admin")
	admin.Use(r.jwtMw.RequireAuth(), middleware.RequireRole(constants.RoleAdmin))
	{
		users := admin.Group("/users")
		{
			users.GET("", r.adminHandler.ListUsers)
			users.GET("/:id", r.adminHandler.GetUser)
			users.DELETE("/:id", r.adminHandler.DeleteUser)
			users.POST("/:id/unlock", r.adminHandler.UnlockUser)
			users.POST("/:id/revoke-sessions", r.adminHandler.RevokeSessions)
			users.GET("/:id/audits", r.adminHandler.ListLoginAudits)
		}

		sessions := admin.Group("/sessions")
		{
			sessions.GET("/blacklist", r.sessionHandler.GetBlacklistStats)
			sessions.DELETE("/blacklist", r.sessionHandler.FlushBlacklist)
			sessions.GET("/health", r.sessionHandler.HealthBlacklist)
		}
	}
}

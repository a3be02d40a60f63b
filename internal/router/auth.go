package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/internal/middleware"
)

func (r *Router) authRoutes(version *gin.RouterGroup) {
	auth := version.Group("/auth")
	{
		// Endpoints that trigger credential checks or outbound mail sit
		// behind a tighter limiter than the rest of the API.
		sensitive := auth.Group("")
		sensitive.Use(middleware.RateLimit(
			r.Config.RateLimit.AuthRequest,
			time.Duration(r.Config.RateLimit.AuthDuration)*time.Second,
		))
		{
			sensitive.POST("/register", r.authHandler.Register)
			sensitive.POST("/login", r.authHandler.Login)
			sensitive.POST("/forgot-password", r.authHandler.ForgotPassword)
			sensitive.POST("/resend-verification", r.authHandler.ResendVerification)
		}

		auth.POST("/verify-email", r.authHandler.VerifyEmail)
		auth.POST("/refresh", r.authHandler.RefreshToken)
		auth.POST("/reset-password", r.authHandler.ResetPassword)

		protected := auth.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.POST("/logout", r.authHandler.Logout)
		}
	}
}

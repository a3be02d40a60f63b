package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/config"
	"github.com/staybook/auth-service/internal/handler"
	"github.com/staybook/auth-service/internal/middleware"
)

type Router struct {
	authHandler    *handler.AuthHandler
	userHandler    *handler.UserHandler
	adminHandler   *handler.AdminHandler
	healthHandler  *handler.HealthHandler
	sessionHandler *handler.SessionHandler

	jwtMw  *middleware.JWTMiddleware
	Config *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	user *handler.UserHandler,
	admin *handler.AdminHandler,
	health *handler.HealthHandler,
	session *handler.SessionHandler,
	jwtMw *middleware.JWTMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:    auth,
		userHandler:    user,
		adminHandler:   admin,
		healthHandler:  health,
		sessionHandler: session,

		jwtMw:  jwtMw,
		Config: cfg,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestContext())
	router.Use(middleware.CORS())

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.BasicHealth)
		api.GET("/health/deep", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			v1.Use(middleware.RateLimit(
				r.Config.RateLimit.Request,
				time.Duration(r.Config.RateLimit.Duration)*time.Second,
			))

			r.authRoutes(v1)
			r.userRoutes(v1)
			r.adminRoutes(v1)
		}
	}

	return router
}

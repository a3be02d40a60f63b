package router

import "github.com/gin-gonic/gin"

func (r *Router) userRoutes(version *gin.RouterGroup) {
	users := version.Group("/users")
	{
		users.Use(r.jwtMw.RequireAuth())
		{
			users.GET("/me", r.userHandler.Me)
			users.PUT("/me", r.userHandler.UpdateProfile)
			users.PUT("/me/password", r.userHandler.UpdatePassword)
		}
	}
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homegrid/homegrid/internal/handlers"
	"github.com/homegrid/homegrid/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.DB, deps.Sessions)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Authenticated auth routes
	authed := r.Group("/api/auth")
	authed.Use(middleware.Auth(deps.JWT))
	{
		authed.GET("/me", authHandler.Me)
		authed.POST("/logout", authHandler.Logout)
	}
}

package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homegrid/homegrid/internal/handlers"
	"github.com/homegrid/homegrid/internal/middleware"
)

func registerVerificationRoutes(r *gin.Engine, deps Deps, rateStore middleware.RateStore) {
	handler := handlers.NewVerificationHandler(deps.Verification)

	group := r.Group("/api/verification")
	group.Use(middleware.Auth(deps.JWT))
	{
		// Tighter per-account limits: confirmation is where brute force
		// attempts would land.
		group.POST("/request", middleware.RateLimit(rateStore, 5, time.Minute), handler.Request)
		group.POST("/resend", middleware.RateLimit(rateStore, 5, time.Minute), handler.Resend)
		group.POST("/confirm", middleware.RateLimit(rateStore, 10, time.Minute), handler.Confirm)
		group.GET("/status", handler.Status)
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homegrid/homegrid/pkg/response"
)

// Health reports readiness plus which verification channels this deployment
// can actually deliver on, so operators can spot a misconfigured sender
// stack without sending themselves codes.
func Health(channels []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{
			"status":   "ok",
			"channels": channels,
		})
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homegrid/homegrid/pkg/metrics"
)

// Metrics observes per-route request latency. Requests that matched no
// route are collapsed into a single label so probes against random paths
// cannot inflate series cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liyun-dev/campus-sis-api/internal/service"
)

// Metrics records method, route template, status and latency for every
// request. Using the route template instead of the raw path keeps the
// label cardinality bounded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// unmatched routes fall back to the raw path (404s)
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hoken-api/internal/service"
)

// Metrics times every request and reports it under its route template, so
// /students/:id stays one series regardless of the id. Unmatched routes
// fall back to the raw URL path.
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
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

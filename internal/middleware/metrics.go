package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-gitbridge/gitbridge/internal/metrics"
)

// Metrics records request counts and latency per route. The route
// template (c.FullPath) keeps label cardinality bounded; unmatched
// routes are collapsed into a single label.
func Metrics(m metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

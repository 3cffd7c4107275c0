package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"adjacent-api/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件，未匹配路由统一记为 unknown
func Metrics(scrapePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == scrapePath {
			c.Next()
			return
		}
		if path == "" {
			path = "unknown"
		}

		method := c.Request.Method
		inFlight := metrics.HTTPInFlight.WithLabelValues(path)
		inFlight.Inc()
		start := time.Now()

		c.Next()

		inFlight.Dec()
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// RequestLogger 记录每个请求的 method、path、status 和耗时
func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	l := logger.WithPrefix("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start),
			"remote", c.ClientIP(),
		}
		switch {
		case status >= 500:
			l.Error("request", kv...)
		case status >= 400:
			l.Warn("request", kv...)
		default:
			l.Info("request", kv...)
		}
	}
}

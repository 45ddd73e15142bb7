package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"op-pipeline-backend/internal/logging"
)

// RequestLogger logs one line per request. 5xx responses are logged at
// error level, 4xx at warn.
func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if user := UserID(c); user != "" {
			kv = append(kv, "user_id", user)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("http.request", kv...)
		case status >= 400:
			log.Warn("http.request", kv...)
		default:
			log.Info("http.request", kv...)
		}
	}
}

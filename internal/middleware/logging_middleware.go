package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger returns a gin.HandlerFunc (middleware) that logs requests using zap.
// Each line carries the method, path, status code, latency, client IP and request id,
// plus the query string and gin errors when present.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		panic("RequestLogger requires a non-nil zap.Logger instance")
	}
	return func(c *gin.Context) {
		start := time.Now()

		// Copy before downstream handlers get a chance to rewrite the URL.
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Status and latency are only known after the chain has run.
		c.Next()

		statusCode := c.Writer.Status()
		logFields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status_code", statusCode),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", RequestID(c)),
		}
		if query != "" {
			logFields = append(logFields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			// Handlers attach the classified error via c.Error before answering.
			logFields = append(logFields, zap.String("gin_errors", c.Errors.String()))
		}

		// Level follows the status class.
		switch {
		case statusCode >= http.StatusInternalServerError: // 500 and above
			logger.Error("Incoming Request", logFields...)
		case statusCode >= http.StatusBadRequest: // 400 to 499
			logger.Warn("Incoming Request", logFields...)
		default:
			logger.Info("Incoming Request", logFields...)
		}
	}
}

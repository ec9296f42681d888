package middleware

import (
	"net/http"
	"runtime/debug" // stack of the panicking goroutine

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware returns a gin.HandlerFunc (middleware)
// that recovers from panics in handlers, logs the panic with a stack trace,
// and answers 500 if nothing was written yet.
// A panicking webhook handler therefore does not take the server down.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		// Without a logger the panic would vanish silently.
		panic("RecoveryMiddleware requires a non-nil zap.Logger instance")
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("stacktrace", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("request_id", RequestID(c)), // correlates with the request log line
				)

				// A handler may have streamed part of a body before panicking.
				// Writing again would trigger a second WriteHeader.
				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
				}

				// Stop the rest of the chain once the panic is handled.
				c.Abort()
			}
		}()

		// Panics raised downstream surface in the deferred func above.
		c.Next()
	}
}

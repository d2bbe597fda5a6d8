package logger

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware returns a Gin middleware that attaches a request-scoped logger
// under "logger" and logs each completed request. It expects the request id
// to have been set by the request id middleware.
func Middleware(base *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLogger := base.WithRequestID(c.GetString("requestID"))
		c.Set("logger", reqLogger)

		start := time.Now()
		c.Next()

		// the auth middleware runs later in the chain
		if userID, ok := c.Get("userID"); ok {
			if s, ok := userID.(interface{ String() string }); ok {
				reqLogger = reqLogger.WithUserID(s.String())
			}
		}

		reqLogger.LogRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// FromContext returns the request-scoped logger, or the global one outside a request.
func FromContext(c *gin.Context) *Logger {
	if l, ok := c.Get("logger"); ok {
		if log, ok := l.(*Logger); ok {
			return log
		}
	}
	return GetGlobal()
}

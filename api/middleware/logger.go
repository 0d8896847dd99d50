package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger returns a gin middleware logging one line per request. Probe endpoints
// log at debug, client errors at warn and server errors at error.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := append(requestFields(c),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if ce := log.Check(requestLevel(c.FullPath(), status), "HTTP request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

// requestFields identifies the request and, on run routes, the run
func requestFields(c *gin.Context) []zap.Field {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("route", c.FullPath()),
		zap.String("path", c.Request.URL.Path),
	}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("run_id", id))
	}
	return fields
}

func requestLevel(route string, status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	case route == "/health" || route == "/ready":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/forecast-client-demo/internal/problem"
	"github.com/vzahanych/forecast-client-demo/internal/server/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// probePrefixes are polled by orchestrators; successful hits are logged at debug.
var probePrefixes = []string{"/health", "/metrics"}

// LoggingMiddleware writes one access log line per request. Client errors go to
// warn, server errors to error, and the errors attached by handlers are included.
func LoggingMiddleware(logger *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		end := time.Now()
		if utc {
			end = end.UTC()
		}
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", end.Sub(start)),
			zap.String("time", end.Format(timeFormat)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if userAgent := c.Request.UserAgent(); userAgent != "" {
			fields = append(fields, zap.String("user_agent", userAgent))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		utils.RequestLogger(c, logger).Log(accessLevel(path, status), "HTTP request", fields...)
	}
}

func accessLevel(path string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	for _, prefix := range probePrefixes {
		if strings.HasPrefix(path, prefix) {
			return zapcore.DebugLevel
		}
	}
	return zapcore.InfoLevel
}

// RecoveryMiddleware turns a panic into a logged 500 problem document.
func RecoveryMiddleware(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		p := problem.New(c.Request.URL.Path, http.StatusText(http.StatusInternalServerError))

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("recovered", recovered),
			zap.String("error_instance", p.Instance),
		}
		if stack {
			fields = append(fields, zap.Stack("stack"))
		}

		utils.RequestLogger(c, logger).Error("HTTP panic recovered", fields...)
		problem.Write(c, http.StatusInternalServerError, p)
	})
}

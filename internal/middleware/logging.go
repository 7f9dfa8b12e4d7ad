package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

// loggerKey stores the request-scoped logger in the Gin context.
const loggerKey = contextKey("logger")

// StructuredLoggingMiddleware attaches a request-scoped slog logger to the
// Gin context and logs a completion line for every admin request. A sync
// trigger can run for minutes, so the latency field matters here.
func StructuredLoggingMiddleware(baseLogger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()

		requestLogger := baseLogger.With(
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		c.Header("X-Request-ID", requestID)
		c.Set(string(loggerKey), requestLogger)

		c.Next()

		fields := []any{
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, slog.String("errors", c.Errors.String()))
		}
		requestLogger.Info("request completed", fields...)
	}
}

// GetLoggerFromContext returns the request-scoped logger, falling back to the
// process default when the middleware was not applied.
func GetLoggerFromContext(c *gin.Context) *slog.Logger {
	v, exists := c.Get(string(loggerKey))
	if !exists {
		return slog.Default()
	}
	logger, ok := v.(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

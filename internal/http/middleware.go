package http

import (
	"crypto/subtle"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns a correlation id to every request, reusing a
// client-supplied one if present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// Logger attaches a request-scoped child logger carrying the request id and
// logs one line per request on completion.
func Logger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID, _ := c.Get("requestID")

		reqLog := base.With().Str("component", "http").Interface("requestId", requestID).Logger()
		c.Set("log", reqLog)

		c.Next()

		reqLog.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	}
}

// LoggerFrom retrieves the request-scoped logger Logger() attached, falling
// back to the zero logger if called outside that middleware's scope.
func LoggerFrom(c *gin.Context) zerolog.Logger {
	if v, ok := c.Get("log"); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return l
		}
	}
	return zerolog.Nop()
}

// Recovery logs a panic with its stack and returns 500 instead of crashing
// the process; every scheduler/monitor tick gets the same treatment at
// their own call sites.
func Recovery(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				base.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Str("stack", string(debug.Stack())).Msg("recovered from panic in handler")
				c.AbortWithStatusJSON(500, gin.H{"error": "internal server error", "code": "internal_error"})
			}
		}()
		c.Next()
	}
}

// APIKeyAuth rejects requests missing a correctly-valued X-API-Key header,
// comparing in constant time to avoid a timing side-channel on the secret.
// The comparison itself is a standard OWASP mitigation for secret
// comparisons, mirroring the corpus's admin/internal auth middleware.
func APIKeyAuth(secretKey string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			provided = c.Query("key")
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secretKey)) != 1 {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid or missing API key", "code": "unauthorized"})
			return
		}
		c.Next()
	}
}

// AccountContext resolves X-OVH-Account into the request context, falling
// back to "default" when unset, per spec.md §4.8.
func AccountContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.GetHeader("X-OVH-Account")
		if account == "" {
			account = "default"
		}
		c.Set("accountID", account)
		c.Next()
	}
}

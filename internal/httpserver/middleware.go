package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/service/auth"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/metrics"
	"freelanceos/pkg/rbac"
	"freelanceos/pkg/trace"
	"freelanceos/pkg/util"
)

// TraceMiddleware reuses an incoming X-Trace-ID or mints one, and echoes it back.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// RequestLogger logs one line per request and records its latency.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(status), elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		}
		l := logger.WithTrace(c.Request.Context(), log)
		if status >= http.StatusInternalServerError {
			l.Error("HTTP request", fields...)
			return
		}
		l.Debug("HTTP request", fields...)
	}
}

// AuthMiddleware validates the bearer token and attaches the caller as an auth.Actor.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if !rbac.ValidRole(claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown role"})
			return
		}

		actor := auth.Actor{UserID: claims.UserID, Role: claims.Role, ClientID: claims.ClientID}
		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

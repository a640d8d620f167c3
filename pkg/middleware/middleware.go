// Package middleware holds the gin middleware chain shared by the service binaries.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/logger"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/response"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestBodyLogLimit = 64 << 10

// RecoveryMiddleware converts panics into a 500 with a detail body.
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		response.Fail(c, http.StatusInternalServerError, "internal server error")
		c.Abort()
	})
}

// LoggerMiddleware logs one line per request with credentials masked.
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		body := snapshotRequestBody(c)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(RequestIDHeader)),
		}
		if auth := c.GetHeader("Authorization"); auth != "" {
			fields = append(fields, zap.String("authorization", auth))
		}
		if len(body) > 0 {
			var payload interface{}
			if err := json.Unmarshal(body, &payload); err == nil {
				fields = append(fields, zap.Any("request_body", payload))
			}
		}

		sanitized := logger.SanitizeFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("http request", sanitized...)
		case status >= 400:
			log.Warn("http request", sanitized...)
		default:
			log.Info("http request", sanitized...)
		}
	}
}

func snapshotRequestBody(c *gin.Context) []byte {
	if c.Request == nil || c.Request.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) > requestBodyLogLimit {
		return nil
	}
	return raw
}

// CORSMiddleware allows the given origins. An empty list allows any origin without credentials.
func CORSMiddleware(origins ...string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Type", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// RequestIDMiddleware propagates or assigns X-Request-ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// SecurityHeadersMiddleware sets conservative browser security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// Package health exposes liveness endpoints backed by a database ping.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler serves /health and /api/health.
type Handler struct {
	db      *gorm.DB
	service string
}

// NewHandler creates a health Handler. db may be nil, in which case only liveness is reported.
func NewHandler(db *gorm.DB, service string) *Handler {
	return &Handler{db: db, service: service}
}

// RegisterRoutes mounts the health endpoints on the root router.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Check)
	r.GET("/api/health", h.Check)
}

// Check reports healthy when the database answers a ping within two seconds.
func (h *Handler) Check(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"service":   h.service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}

	c.JSON(http.StatusOK, body)
}

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/response"
)

const heartbeatInterval = 25 * time.Second

// EventsHandler streams issuer-change signals as server-sent events.
type EventsHandler struct {
	subscriber events.Subscriber
	logger     *zap.Logger
	heartbeat  time.Duration
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(subscriber events.Subscriber, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{subscriber: subscriber, logger: logger, heartbeat: heartbeatInterval}
}

// RegisterRoutes registers the event stream routes.
func (h *EventsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/events/issuers", h.IssuerEvents)
}

// IssuerEvents handles GET /api/events/issuers.
func (h *EventsHandler) IssuerEvents(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Fail(c, http.StatusInternalServerError, "stream unsupported")
		return
	}

	ctx := c.Request.Context()
	signals, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		response.Fail(c, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	flusher.Flush()

	metrics.SSEClients.Inc()
	defer metrics.SSEClients.Dec()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case sig, open := <-signals:
			if !open {
				return
			}
			if err := writeSignal(c, sig); err != nil {
				h.logger.Debug("sse client gone", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeSignal(c *gin.Context, sig events.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Writer, "id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), events.TopicIssuerListChanged, data)
	return err
}

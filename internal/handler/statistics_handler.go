package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/response"
)

// StatisticsHandler serves coupon statistics.
type StatisticsHandler struct {
	service *application.StatisticsService
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(service *application.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

// RegisterRoutes registers the statistics routes.
func (h *StatisticsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/statistics", h.Statistics)
	r.GET("/teams/:team/statistics", h.Statistics)
}

// Statistics handles GET /api/statistics and GET /api/teams/:team/statistics.
func (h *StatisticsHandler) Statistics(c *gin.Context) {
	result, err := h.service.Statistics(c.Request.Context(), teamOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

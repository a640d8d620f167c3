package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/auth"
)

// Handlers bundles every route group mounted under /api.
type Handlers struct {
	Coupons    *CouponHandler
	Statistics *StatisticsHandler
	Issuers    *IssuerHandler
	Auth       *AuthHandler
	Events     *EventsHandler
}

// Register mounts all handlers on the api group. Nil handlers are skipped.
func (h Handlers) Register(api *gin.RouterGroup, jwtManager *auth.JWTManager) {
	if h.Coupons != nil {
		h.Coupons.RegisterRoutes(api)
	}
	if h.Statistics != nil {
		h.Statistics.RegisterRoutes(api)
	}
	if h.Issuers != nil {
		h.Issuers.RegisterRoutes(api)
	}
	if h.Auth != nil {
		h.Auth.RegisterRoutes(api, jwtManager)
	}
	if h.Events != nil {
		h.Events.RegisterRoutes(api)
	}
}

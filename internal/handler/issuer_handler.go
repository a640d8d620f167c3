package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/response"
)

// IssuerHandler handles the administrator's issuer management requests.
type IssuerHandler struct {
	service *application.IssuerService
}

// NewIssuerHandler creates a new IssuerHandler.
func NewIssuerHandler(service *application.IssuerService) *IssuerHandler {
	return &IssuerHandler{service: service}
}

// RegisterRoutes registers the issuer administration routes.
func (h *IssuerHandler) RegisterRoutes(r *gin.RouterGroup) {
	issuers := r.Group("/issuers")
	{
		issuers.GET("", h.ListIssuers)
		issuers.POST("", h.CreateIssuer)
		issuers.PUT("/:email", h.UpdateIssuer)
		issuers.DELETE("/:email", h.DeleteIssuer)
	}
}

// ListIssuers handles GET /api/issuers.
func (h *IssuerHandler) ListIssuers(c *gin.Context) {
	result, err := h.service.ListIssuers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateIssuer handles POST /api/issuers.
func (h *IssuerHandler) CreateIssuer(c *gin.Context) {
	var req application.CreateIssuerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateIssuer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateIssuer handles PUT /api/issuers/:email.
func (h *IssuerHandler) UpdateIssuer(c *gin.Context) {
	var req application.UpdateIssuerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateIssuer(c.Request.Context(), c.Param("email"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteIssuer handles DELETE /api/issuers/:email.
func (h *IssuerHandler) DeleteIssuer(c *gin.Context) {
	if err := h.service.DeleteIssuer(c.Request.Context(), c.Param("email")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "issuer deleted")
}

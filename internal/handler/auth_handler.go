package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/response"
)

// AuthHandler handles issuer login and self-service requests.
type AuthHandler struct {
	service *application.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *application.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes registers the issuer routes. Everything but login needs an issuer token.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	issuerRole := middleware.RequireRole(auth.RoleIssuer)

	issuer := r.Group("/issuer")
	{
		issuer.POST("/login", h.Login)
		issuer.GET("/profile", authMW, issuerRole, h.Profile)
		issuer.GET("/coupons", authMW, issuerRole, h.IssuerCoupons)
	}
}

// Login handles POST /api/issuer/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req application.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Profile handles GET /api/issuer/profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	email, ok := middleware.GetIssuerEmail(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.Profile(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// IssuerCoupons handles GET /api/issuer/coupons.
func (h *AuthHandler) IssuerCoupons(c *gin.Context) {
	email, ok := middleware.GetIssuerEmail(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.IssuerCoupons(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/adapter"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/response"
)

const (
	minImageSize = 64
	maxImageSize = 1024
)

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service *application.CouponService
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(service *application.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

// RegisterRoutes registers the coupon routes and their team-scoped variants.
func (h *CouponHandler) RegisterRoutes(r *gin.RouterGroup) {
	coupons := r.Group("/coupons")
	{
		coupons.GET("", h.ListCoupons)
		coupons.POST("", h.CreateCoupon)
		coupons.GET("/:id", h.GetCoupon)
		coupons.PUT("/:id", h.UpdateCoupon)
		coupons.DELETE("/:id", h.DeleteCoupon)
		coupons.PATCH("/:id/use", h.UseCoupon)
		coupons.PATCH("/:id/assign-issuer", h.AssignIssuer)
		coupons.GET("/:id/image", h.CouponImage)
	}
	r.GET("/coupon-names", h.CouponNames)
	r.GET("/stores", h.StoreNames)

	teams := r.Group("/teams/:team")
	{
		teams.GET("/coupons", h.ListCoupons)
		teams.POST("/coupons", h.CreateCoupon)
		teams.GET("/coupon-names", h.CouponNames)
		teams.GET("/stores", h.StoreNames)
	}
}

// ListCoupons handles GET /api/coupons and GET /api/teams/:team/coupons.
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}

	result, err := h.service.ListCoupons(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CouponNames handles GET /api/coupon-names.
func (h *CouponHandler) CouponNames(c *gin.Context) {
	names, err := h.service.CouponNames(c.Request.Context(), teamOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"coupon_names": nonNil(names)})
}

// StoreNames handles GET /api/stores.
func (h *CouponHandler) StoreNames(c *gin.Context) {
	stores, err := h.service.StoreNames(c.Request.Context(), teamOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"stores": nonNil(stores)})
}

// CreateCoupon handles POST /api/coupons.
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req application.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateCoupon(c.Request.Context(), c.Param("team"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetCoupon handles GET /api/coupons/:id.
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}

	result, err := h.service.GetCoupon(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateCoupon handles PUT /api/coupons/:id.
func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}

	var req application.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateCoupon(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteCoupon handles DELETE /api/coupons/:id.
func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteCoupon(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "coupon deleted")
}

// UseCoupon handles PATCH /api/coupons/:id/use.
func (h *CouponHandler) UseCoupon(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}

	result, err := h.service.UseCoupon(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AssignIssuer handles PATCH /api/coupons/:id/assign-issuer.
func (h *CouponHandler) AssignIssuer(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}

	var req application.AssignIssuerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AssignIssuer(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CouponImage handles GET /api/coupons/:id/image.
func (h *CouponHandler) CouponImage(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}

	size := adapter.DefaultImageSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minImageSize || n > maxImageSize {
			response.BadRequest(c, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	png, err := h.service.CouponImage(c.Request.Context(), id, size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// parseListQuery reads the list query. It writes the 400 itself and returns false on bad input.
func parseListQuery(c *gin.Context) (application.ListCouponsQuery, bool) {
	q := application.ListCouponsQuery{
		Search:      strings.TrimSpace(c.Query("search")),
		CouponNames: csvQuery(c, "coupon_names"),
		StoreNames:  csvQuery(c, "store_names", "stores"),
		Issuers:     csvQuery(c, "issuer"),
		TeamID:      teamOf(c),
	}

	var err error
	if q.Page, err = intQuery(c, "page"); err != nil {
		response.BadRequest(c, "page must be an integer")
		return q, false
	}
	if q.Size, err = intQuery(c, "size", "limit"); err != nil {
		response.BadRequest(c, "size must be an integer")
		return q, false
	}
	if q.Page < 0 {
		response.BadRequest(c, "page must be at least 1")
		return q, false
	}
	if raw := c.Query("only_unassigned"); raw != "" {
		if q.OnlyUnassigned, err = strconv.ParseBool(raw); err != nil {
			response.BadRequest(c, "only_unassigned must be a boolean")
			return q, false
		}
	}
	return q, true
}

// intQuery returns the first present key as an int, or 0 when none is set.
func intQuery(c *gin.Context, keys ...string) (int, error) {
	for _, key := range keys {
		if raw := strings.TrimSpace(c.Query(key)); raw != "" {
			return strconv.Atoi(raw)
		}
	}
	return 0, nil
}

// csvQuery merges repeated and comma separated values of every key.
func csvQuery(c *gin.Context, keys ...string) []string {
	var out []string
	for _, key := range keys {
		for _, raw := range c.QueryArray(key) {
			for _, v := range strings.Split(raw, ",") {
				if v = strings.TrimSpace(v); v != "" {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

func teamOf(c *gin.Context) string {
	if team := c.Param("team"); team != "" {
		return team
	}
	return strings.TrimSpace(c.Query("team_id"))
}

func couponID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "invalid coupon id")
		return 0, false
	}
	return id, true
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

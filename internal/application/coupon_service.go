package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/adapter"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/cache"
	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	issuerDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/issuer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/sanitize"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

// Page size bounds of the list endpoint.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
	// MaxPage keeps (page-1)*size well inside the OFFSET range.
	MaxPage = 1_000_000
)

const (
	facetNames  = "names"
	facetStores = "stores"
)

// CouponRequest holds the editable coupon fields for create and update.
type CouponRequest struct {
	Name           string              `json:"name" binding:"required"`
	Discount       string              `json:"discount"`
	ExpirationDate string              `json:"expiration_date" binding:"required"`
	Store          string              `json:"store"`
	Status         string              `json:"status"`
	Code           string              `json:"code"`
	StandardPrice  decimal.NullDecimal `json:"standard_price"`
	RegisteredBy   string              `json:"registered_by"`
	PaymentStatus  string              `json:"payment_status"`
	AdditionalInfo string              `json:"additional_info"`
	TeamID         string              `json:"team_id"`
}

// AssignIssuerRequest assigns a coupon to an issuer by email.
type AssignIssuerRequest struct {
	IssuerEmail string `json:"issuer_email" binding:"required"`
	IssuerName  string `json:"issuer_name"`
}

// ListCouponsQuery selects a page of coupons.
type ListCouponsQuery struct {
	Page           int
	Size           int
	Search         string
	CouponNames    []string
	StoreNames     []string
	Issuers        []string
	OnlyUnassigned bool
	TeamID         string
}

// CouponDTO is the API representation of a coupon.
type CouponDTO struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	Discount       string              `json:"discount"`
	ExpirationDate string              `json:"expiration_date"`
	Store          string              `json:"store"`
	Status         string              `json:"status"`
	Code           string              `json:"code"`
	StandardPrice  decimal.NullDecimal `json:"standard_price"`
	RegisteredBy   string              `json:"registered_by"`
	PaymentStatus  string              `json:"payment_status"`
	AdditionalInfo string              `json:"additional_info"`
	IssuerEmail    string              `json:"issuer_email,omitempty"`
	IssuerName     string              `json:"issuer_name,omitempty"`
	TeamID         string              `json:"team_id,omitempty"`
}

// CouponPageDTO is one page of the coupon list.
type CouponPageDTO struct {
	Coupons    []CouponDTO `json:"coupons"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Size       int         `json:"size"`
	TotalPages int         `json:"total_pages"`
}

// CouponService handles coupon use cases.
type CouponService struct {
	repo      couponDomain.CouponRepository
	issuers   issuerDomain.IssuerRepository
	facets    cache.FacetCache
	images    adapter.CouponImageRenderer
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(
	repo couponDomain.CouponRepository,
	issuers issuerDomain.IssuerRepository,
	facets cache.FacetCache,
	images adapter.CouponImageRenderer,
	publisher events.Publisher,
	logger *zap.Logger,
) *CouponService {
	return &CouponService{
		repo:      repo,
		issuers:   issuers,
		facets:    facets,
		images:    images,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ListCoupons returns one page of coupons, newest first.
func (s *CouponService) ListCoupons(ctx context.Context, q ListCouponsQuery) (*CouponPageDTO, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size == 0 {
		q.Size = DefaultPageSize
	}
	if q.Size < 1 || q.Size > MaxPageSize {
		return nil, domain.NewValidationError(fmt.Sprintf("size must be between 1 and %d", MaxPageSize))
	}
	if q.Page > MaxPage {
		return nil, domain.NewValidationError(fmt.Sprintf("page must be between 1 and %d", MaxPage))
	}

	coupons, total, err := s.repo.List(ctx, couponDomain.ListFilter{
		Page:           q.Page,
		Size:           q.Size,
		Search:         q.Search,
		CouponNames:    q.CouponNames,
		StoreNames:     q.StoreNames,
		IssuerEmails:   q.Issuers,
		OnlyUnassigned: q.OnlyUnassigned,
		TeamID:         q.TeamID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}

	return &CouponPageDTO{
		Coupons:    toCouponDTOs(coupons),
		Total:      total,
		Page:       q.Page,
		Size:       q.Size,
		TotalPages: TotalPages(total, q.Size),
	}, nil
}

// TotalPages is ceil(total/size).
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// CouponNames returns the distinct coupon names of a team.
func (s *CouponService) CouponNames(ctx context.Context, teamID string) ([]string, error) {
	return s.facet(ctx, facetNames, teamID, s.repo.DistinctNames)
}

// StoreNames returns the distinct store names of a team.
func (s *CouponService) StoreNames(ctx context.Context, teamID string) ([]string, error) {
	return s.facet(ctx, facetStores, teamID, s.repo.DistinctStores)
}

func (s *CouponService) facet(ctx context.Context, facet, teamID string, load func(context.Context, string) ([]string, error)) ([]string, error) {
	key := cache.Key(facet, teamID)
	if values, ok := s.facets.Get(ctx, key); ok {
		metrics.ObserveCacheLookup(true)
		return values, nil
	}
	metrics.ObserveCacheLookup(false)

	values, err := load(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", facet, err)
	}
	s.facets.Set(ctx, key, values)
	return values, nil
}

// GetCoupon returns one coupon.
func (s *CouponService) GetCoupon(ctx context.Context, id int64) (*CouponDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toCouponDTO(c)
	return &dto, nil
}

// CreateCoupon stores a new coupon. A team in the path wins over the body.
func (s *CouponService) CreateCoupon(ctx context.Context, teamID string, req CouponRequest) (*CouponDTO, error) {
	if teamID == "" {
		teamID = req.TeamID
	}
	c, err := couponDomain.NewCoupon(toDetails(req), sanitize.Text(teamID))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save coupon: %w", err)
	}

	s.afterMutation(ctx, "create")
	s.logger.Info("coupon created", zap.Int64("id", c.ID()), zap.String("name", c.Name()))
	dto := toCouponDTO(c)
	return &dto, nil
}

// UpdateCoupon replaces the editable fields of a coupon.
func (s *CouponService) UpdateCoupon(ctx context.Context, id int64, req CouponRequest) (*CouponDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Update(toDetails(req)); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}

	s.afterMutation(ctx, "update")
	s.logger.Info("coupon updated", zap.Int64("id", id))
	dto := toCouponDTO(c)
	return &dto, nil
}

// DeleteCoupon removes a coupon.
func (s *CouponService) DeleteCoupon(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.afterMutation(ctx, "delete")
	s.logger.Info("coupon deleted", zap.Int64("id", id))
	return nil
}

// UseCoupon redeems a coupon.
func (s *CouponService) UseCoupon(ctx context.Context, id int64) (*CouponDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.MarkUsed(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to use coupon: %w", err)
	}

	s.afterMutation(ctx, "use")
	s.logger.Info("coupon used", zap.Int64("id", id))
	dto := toCouponDTO(c)
	return &dto, nil
}

// AssignIssuer points the coupon at an issuer, registering the issuer first
// when the email is unknown. A known issuer keeps its stored name.
func (s *CouponService) AssignIssuer(ctx context.Context, id int64, req AssignIssuerRequest) (*CouponDTO, error) {
	dto, err := s.assignIssuer(ctx, id, req)
	metrics.ObserveAssignment(err)
	return dto, err
}

func (s *CouponService) assignIssuer(ctx context.Context, id int64, req AssignIssuerRequest) (*CouponDTO, error) {
	if !issuerDomain.IsEmail(req.IssuerEmail) {
		return nil, domain.NewValidationError("issuer_email must be a valid email address")
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	iss, err := s.ensureIssuer(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.issuers.Assign(ctx, id, iss.Email(), s.now()); err != nil {
		return nil, fmt.Errorf("failed to assign issuer: %w", err)
	}
	c.AssignTo(iss.Email(), iss.Name())

	s.afterMutation(ctx, "assign")
	s.logger.Info("issuer assigned",
		zap.Int64("coupon_id", id),
		zap.String("issuer_email", iss.Email()),
	)
	dto := toCouponDTO(c)
	return &dto, nil
}

func (s *CouponService) ensureIssuer(ctx context.Context, req AssignIssuerRequest) (*issuerDomain.Issuer, error) {
	iss, err := issuerDomain.NewIssuer(defaultName(req), req.IssuerEmail, "")
	if err != nil {
		return nil, err
	}

	existing, err := s.issuers.FindByEmail(ctx, iss.Email())
	if err == nil {
		return existing, nil
	}
	if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up issuer: %w", err)
	}

	if err := s.issuers.Save(ctx, iss); err != nil {
		return nil, fmt.Errorf("failed to register issuer: %w", err)
	}
	s.publish(ctx, events.TypeIssuerCreated)
	return iss, nil
}

func defaultName(req AssignIssuerRequest) string {
	if name := sanitize.Text(req.IssuerName); name != "" {
		return name
	}
	return issuerDomain.LocalPart(req.IssuerEmail)
}

// ExpireOverdue moves active coupons dated before today to expired.
func (s *CouponService) ExpireOverdue(ctx context.Context) (int64, error) {
	today := couponDomain.Truncate(s.now().UTC()).Format(couponDomain.DateLayout)
	n, err := s.repo.ExpireBefore(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to expire coupons: %w", err)
	}
	if n > 0 {
		metrics.CouponsExpired.Add(float64(n))
		s.logger.Info("overdue coupons expired", zap.Int64("count", n), zap.String("before", today))
	}
	return n, nil
}

// CouponImage renders a QR code of the redemption code, or of the coupon id when there is none.
func (s *CouponService) CouponImage(ctx context.Context, id int64, size int) ([]byte, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	payload := c.Code()
	if payload == "" {
		payload = "coupon:" + strconv.FormatInt(c.ID(), 10)
	}
	return s.images.RenderPNG(ctx, payload, size)
}

func (s *CouponService) afterMutation(ctx context.Context, op string) {
	metrics.ObserveMutation(op)
	if err := s.facets.Invalidate(ctx); err != nil {
		s.logger.Warn("facet cache invalidation failed", zap.Error(err))
	}
}

func (s *CouponService) publish(ctx context.Context, signalType string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewSignal(signalType)); err != nil {
		s.logger.Warn("failed to publish issuer signal", zap.String("type", signalType), zap.Error(err))
	}
}

func toDetails(req CouponRequest) couponDomain.Details {
	return couponDomain.Details{
		Name:           sanitize.Text(req.Name),
		Discount:       sanitize.Text(req.Discount),
		ExpirationDate: req.ExpirationDate,
		Store:          sanitize.Text(req.Store),
		Status:         sanitize.Text(req.Status),
		Code:           sanitize.Text(req.Code),
		StandardPrice:  req.StandardPrice,
		RegisteredBy:   sanitize.Text(req.RegisteredBy),
		PaymentStatus:  sanitize.Text(req.PaymentStatus),
		AdditionalInfo: sanitize.Text(req.AdditionalInfo),
	}
}

func toCouponDTO(c *couponDomain.Coupon) CouponDTO {
	return CouponDTO{
		ID:             c.ID(),
		Name:           c.Name(),
		Discount:       c.Discount(),
		ExpirationDate: c.ExpirationDate(),
		Store:          c.Store(),
		Status:         c.Status(),
		Code:           c.Code(),
		StandardPrice:  c.StandardPrice(),
		RegisteredBy:   c.RegisteredBy(),
		PaymentStatus:  c.PaymentStatus(),
		AdditionalInfo: c.AdditionalInfo(),
		IssuerEmail:    c.IssuerEmail(),
		IssuerName:     c.IssuerName(),
		TeamID:         c.TeamID(),
	}
}

func toCouponDTOs(coupons []*couponDomain.Coupon) []CouponDTO {
	out := make([]CouponDTO, len(coupons))
	for i, c := range coupons {
		out[i] = toCouponDTO(c)
	}
	return out
}

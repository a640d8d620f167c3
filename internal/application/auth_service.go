package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	issuerDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/issuer"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

// LoginRequest identifies an issuer by name and email.
type LoginRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// LoginDTO carries the issued bearer token.
type LoginDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IssuerName  string `json:"issuer_name"`
	ExpiresIn   int    `json:"expires_in"`
}

// ProfileDTO summarizes an issuer and the coupons assigned to them.
type ProfileDTO struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	TotalCoupons   int    `json:"total_coupons"`
	ActiveCoupons  int    `json:"active_coupons"`
	ExpiredCoupons int    `json:"expired_coupons"`
}

// CouponListDTO wraps an unpaged coupon list.
type CouponListDTO struct {
	Coupons []CouponDTO `json:"coupons"`
}

// AuthService authenticates issuers and serves their own data.
type AuthService struct {
	issuers    issuerDomain.IssuerRepository
	coupons    couponDomain.CouponRepository
	jwtManager *auth.JWTManager
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	issuers issuerDomain.IssuerRepository,
	coupons couponDomain.CouponRepository,
	jwtManager *auth.JWTManager,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		issuers:    issuers,
		coupons:    coupons,
		jwtManager: jwtManager,
		logger:     logger,
		now:        time.Now,
	}
}

// Login checks the name against the stored issuer and issues an access token.
// Unknown emails and mismatched names fail the same way.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginDTO, error) {
	iss, err := s.issuers.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewUnauthorizedError("invalid issuer credentials")
		}
		return nil, fmt.Errorf("failed to look up issuer: %w", err)
	}
	if err := iss.Authenticate(req.Name); err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateAccessToken(iss.Email(), iss.Name(), auth.RoleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	iss.RecordLogin(s.now().UTC())
	if err := s.issuers.Update(ctx, iss); err != nil {
		s.logger.Warn("failed to record login", zap.String("email", iss.Email()), zap.Error(err))
	}

	s.logger.Info("issuer logged in", zap.String("email", iss.Email()))
	return &LoginDTO{
		AccessToken: token,
		TokenType:   "bearer",
		IssuerName:  iss.Name(),
		ExpiresIn:   int(s.jwtManager.AccessTTL().Seconds()),
	}, nil
}

// Profile returns the issuer with coupon counts.
func (s *AuthService) Profile(ctx context.Context, email string) (*ProfileDTO, error) {
	iss, err := s.issuers.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	coupons, err := s.coupons.FindByIssuer(ctx, iss.Email())
	if err != nil {
		return nil, fmt.Errorf("failed to load issuer coupons: %w", err)
	}

	profile := &ProfileDTO{
		Name:         iss.Name(),
		Email:        iss.Email(),
		Phone:        iss.Phone(),
		TotalCoupons: len(coupons),
	}
	today := s.now()
	for _, c := range coupons {
		switch {
		case c.IsUsed():
		case c.IsExpired(today):
			profile.ExpiredCoupons++
		default:
			profile.ActiveCoupons++
		}
	}
	return profile, nil
}

// IssuerCoupons lists the coupons assigned to the issuer.
func (s *AuthService) IssuerCoupons(ctx context.Context, email string) (*CouponListDTO, error) {
	coupons, err := s.coupons.FindByIssuer(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load issuer coupons: %w", err)
	}
	return &CouponListDTO{Coupons: toCouponDTOs(coupons)}, nil
}

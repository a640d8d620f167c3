package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	issuerDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/issuer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/sanitize"
)

// CreateIssuerRequest holds data to register an issuer.
type CreateIssuerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

// UpdateIssuerRequest holds the editable issuer fields.
type UpdateIssuerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// IssuerDTO is the API representation of an issuer.
type IssuerDTO struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	CreatedAt   time.Time  `json:"created_at"`
	CouponCount int64      `json:"coupon_count"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	LoginCount  int        `json:"login_count"`
}

// IssuerListDTO wraps the issuer list.
type IssuerListDTO struct {
	Issuers []IssuerDTO `json:"issuers"`
}

// IssuerService handles issuer administration. Every change emits an
// issuer-list-changed signal so open coupon lists reload their owner options.
type IssuerService struct {
	repo      issuerDomain.IssuerRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// NewIssuerService creates a new IssuerService.
func NewIssuerService(repo issuerDomain.IssuerRepository, publisher events.Publisher, logger *zap.Logger) *IssuerService {
	return &IssuerService{repo: repo, publisher: publisher, logger: logger}
}

// ListIssuers returns every issuer, newest first.
func (s *IssuerService) ListIssuers(ctx context.Context) (*IssuerListDTO, error) {
	issuers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issuers: %w", err)
	}
	out := &IssuerListDTO{Issuers: make([]IssuerDTO, len(issuers))}
	for i, iss := range issuers {
		out.Issuers[i] = toIssuerDTO(iss)
	}
	return out, nil
}

// CreateIssuer registers an issuer.
func (s *IssuerService) CreateIssuer(ctx context.Context, req CreateIssuerRequest) (*IssuerDTO, error) {
	iss, err := issuerDomain.NewIssuer(sanitize.Text(req.Name), req.Email, sanitize.Text(req.Phone))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, iss); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeIssuerCreated)
	s.logger.Info("issuer created", zap.String("email", iss.Email()))
	dto := toIssuerDTO(iss)
	return &dto, nil
}

// UpdateIssuer changes name and phone.
func (s *IssuerService) UpdateIssuer(ctx context.Context, email string, req UpdateIssuerRequest) (*IssuerDTO, error) {
	iss, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	iss.Update(sanitize.Text(req.Name), sanitize.Text(req.Phone))
	if err := s.repo.Update(ctx, iss); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeIssuerUpdated)
	s.logger.Info("issuer updated", zap.String("email", iss.Email()))
	dto := toIssuerDTO(iss)
	return &dto, nil
}

// DeleteIssuer removes the issuer and its assignments.
func (s *IssuerService) DeleteIssuer(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.repo.Delete(ctx, email); err != nil {
		return err
	}

	s.publish(ctx, events.TypeIssuerDeleted)
	s.logger.Info("issuer deleted", zap.String("email", email))
	return nil
}

func (s *IssuerService) publish(ctx context.Context, signalType string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewSignal(signalType)); err != nil {
		s.logger.Warn("failed to publish issuer signal", zap.String("type", signalType), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toIssuerDTO(i *issuerDomain.Issuer) IssuerDTO {
	return IssuerDTO{
		Name:        i.Name(),
		Email:       i.Email(),
		Phone:       i.Phone(),
		CreatedAt:   i.CreatedAt(),
		CouponCount: i.CouponCount(),
		LastLogin:   i.LastLogin(),
		LoginCount:  i.LoginCount(),
	}
}

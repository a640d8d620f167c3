package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
)

// SummaryDTO counts coupons by lifecycle state.
type SummaryDTO struct {
	TotalCoupons     int `json:"total_coupons"`
	UsedCoupons      int `json:"used_coupons"`
	ExpiredCoupons   int `json:"expired_coupons"`
	AvailableCoupons int `json:"available_coupons"`
}

// GroupStatDTO is one row of per-name or per-store statistics.
type GroupStatDTO struct {
	Name                  string  `json:"name"`
	Total                 int     `json:"total"`
	Used                  int     `json:"used"`
	Expired               int     `json:"expired"`
	Available             int     `json:"available"`
	RegisteredCount       int     `json:"registered_count"`
	PaymentCompletedCount int     `json:"payment_completed_count"`
	RegistrationRate      float64 `json:"registration_rate"`
	PaymentCompletionRate float64 `json:"payment_completion_rate"`
}

// StatisticsDTO is the statistics report of a team or of all coupons.
type StatisticsDTO struct {
	TeamID           string         `json:"team_id,omitempty"`
	Summary          SummaryDTO     `json:"summary"`
	CouponStatistics []GroupStatDTO `json:"coupon_statistics"`
	StoreStatistics  []GroupStatDTO `json:"store_statistics"`
}

// StatisticsService aggregates coupon counts.
type StatisticsService struct {
	repo   couponDomain.CouponRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewStatisticsService creates a new StatisticsService.
func NewStatisticsService(repo couponDomain.CouponRepository, logger *zap.Logger) *StatisticsService {
	return &StatisticsService{repo: repo, logger: logger, now: time.Now}
}

// Statistics builds the report. An empty team covers every coupon.
func (s *StatisticsService) Statistics(ctx context.Context, teamID string) (*StatisticsDTO, error) {
	coupons, err := s.repo.FindAll(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load coupons: %w", err)
	}

	today := s.now()
	byName := map[string]*GroupStatDTO{}
	byStore := map[string]*GroupStatDTO{}
	report := &StatisticsDTO{TeamID: teamID}

	for _, c := range coupons {
		report.Summary.TotalCoupons++
		state := classify(c, today)
		switch state {
		case couponDomain.StatusUsed:
			report.Summary.UsedCoupons++
		case couponDomain.StatusExpired:
			report.Summary.ExpiredCoupons++
		default:
			report.Summary.AvailableCoupons++
		}
		count(group(byName, c.Name()), c, state)
		count(group(byStore, storeLabel(c.Store())), c, state)
	}

	report.CouponStatistics = finish(byName)
	report.StoreStatistics = finish(byStore)
	return report, nil
}

func classify(c *couponDomain.Coupon, today time.Time) string {
	switch {
	case c.IsUsed():
		return couponDomain.StatusUsed
	case c.IsExpired(today):
		return couponDomain.StatusExpired
	default:
		return couponDomain.StatusActive
	}
}

func storeLabel(store string) string {
	if store == "" {
		return couponDomain.Unregistered
	}
	return store
}

func group(m map[string]*GroupStatDTO, name string) *GroupStatDTO {
	g, ok := m[name]
	if !ok {
		g = &GroupStatDTO{Name: name}
		m[name] = g
	}
	return g
}

func count(g *GroupStatDTO, c *couponDomain.Coupon, state string) {
	g.Total++
	switch state {
	case couponDomain.StatusUsed:
		g.Used++
	case couponDomain.StatusExpired:
		g.Expired++
	default:
		g.Available++
	}
	if c.IsRegistered() {
		g.RegisteredCount++
	}
	if c.IsPaymentCompleted() {
		g.PaymentCompletedCount++
	}
}

func finish(m map[string]*GroupStatDTO) []GroupStatDTO {
	out := make([]GroupStatDTO, 0, len(m))
	for _, g := range m {
		g.RegistrationRate = percent(g.RegisteredCount, g.Total)
		g.PaymentCompletionRate = percent(g.PaymentCompletedCount, g.Total)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// percent rounds part/total to one decimal place.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1).
		InexactFloat64()
}

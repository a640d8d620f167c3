package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/cache"
	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

type couponFixture struct {
	repos     repos
	svc       *CouponService
	facets    *cache.MemoryCache
	renderer  *fakeRenderer
	publisher *recordingPublisher
}

func newCouponFixture() *couponFixture {
	r := newRepos()
	f := &couponFixture{
		repos:     r,
		facets:    cache.NewMemoryCache(time.Minute),
		renderer:  &fakeRenderer{},
		publisher: &recordingPublisher{},
	}
	f.svc = NewCouponService(f.repos.coupons, f.repos.issuers, f.facets, f.renderer, f.publisher, zap.NewNop())
	f.svc.now = fixedClock("2026-10-14")
	return f
}

func (f *couponFixture) create(t *testing.T, name, store, date string) *CouponDTO {
	t.Helper()
	dto, err := f.svc.CreateCoupon(context.Background(), "", CouponRequest{Name: name, Store: store, ExpirationDate: date})
	require.NoError(t, err)
	return dto
}

func TestCouponService_CreateSanitizesAndDefaultsStatus(t *testing.T) {
	f := newCouponFixture()

	dto, err := f.svc.CreateCoupon(context.Background(), "vip", CouponRequest{
		Name:           "<b>Welcome</b> 10%",
		ExpirationDate: "2026-12-31",
		StandardPrice:  decimal.NewNullDecimal(decimal.RequireFromString("15000.50")),
		TeamID:         "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), dto.ID)
	assert.Equal(t, "Welcome 10%", dto.Name)
	assert.Equal(t, couponDomain.StatusActive, dto.Status)
	assert.Equal(t, "vip", dto.TeamID, "path team wins over body")
	assert.True(t, dto.StandardPrice.Valid)
}

func TestCouponService_CreateRejectsBadDate(t *testing.T) {
	f := newCouponFixture()

	_, err := f.svc.CreateCoupon(context.Background(), "", CouponRequest{Name: "A", ExpirationDate: "31/12/2026"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCouponService_ListCouponsPaging(t *testing.T) {
	f := newCouponFixture()
	for i := 0; i < 5; i++ {
		f.create(t, "Coupon", "Gangnam", "2026-12-31")
	}

	page, err := f.svc.ListCoupons(context.Background(), ListCouponsQuery{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Coupons, 2)
	assert.Equal(t, int64(3), page.Coupons[0].ID, "newest first")

	page, err = f.svc.ListCoupons(context.Background(), ListCouponsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.Size)

	_, err = f.svc.ListCoupons(context.Background(), ListCouponsQuery{Size: MaxPageSize + 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCouponService_ListCouponsPageCap(t *testing.T) {
	f := newCouponFixture()
	f.create(t, "Coupon", "Gangnam", "2026-12-31")

	page, err := f.svc.ListCoupons(context.Background(), ListCouponsQuery{Page: MaxPage, Size: MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, page.Coupons)
	assert.Equal(t, int64(1), page.Total)

	_, err = f.svc.ListCoupons(context.Background(), ListCouponsQuery{Page: MaxPage + 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCouponService_ListCouponsFilters(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()
	f.create(t, "VIP Gold", "Gangnam", "2026-12-31")
	vip := f.create(t, "VIP Silver", "Seocho", "2026-12-31")
	f.create(t, "Welcome", "Gangnam", "2026-12-31")
	_, err := f.svc.AssignIssuer(ctx, vip.ID, AssignIssuerRequest{IssuerEmail: "kim@example.com"})
	require.NoError(t, err)

	page, err := f.svc.ListCoupons(ctx, ListCouponsQuery{Search: "vip", StoreNames: []string{"Gangnam"}})
	require.NoError(t, err)
	require.Len(t, page.Coupons, 1)
	assert.Equal(t, "VIP Gold", page.Coupons[0].Name)

	page, err = f.svc.ListCoupons(ctx, ListCouponsQuery{Issuers: []string{"kim@example.com"}})
	require.NoError(t, err)
	require.Len(t, page.Coupons, 1)
	assert.Equal(t, vip.ID, page.Coupons[0].ID)

	page, err = f.svc.ListCoupons(ctx, ListCouponsQuery{OnlyUnassigned: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 100))
	assert.Equal(t, 1, TotalPages(100, 100))
	assert.Equal(t, 2, TotalPages(101, 100))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestCouponService_FacetsAreCachedAndInvalidated(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()
	f.create(t, "B", "Seocho", "2026-12-31")
	f.create(t, "A", "Gangnam", "2026-12-31")

	names, err := f.svc.CouponNames(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)

	cached, ok := f.facets.Get(ctx, cache.Key("names", ""))
	require.True(t, ok)
	assert.Equal(t, names, cached)

	f.create(t, "C", "Gangnam", "2026-12-31")
	_, ok = f.facets.Get(ctx, cache.Key("names", ""))
	assert.False(t, ok, "create invalidates")

	stores, err := f.svc.StoreNames(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gangnam", "Seocho"}, stores)
}

func TestCouponService_UseCoupon(t *testing.T) {
	f := newCouponFixture()
	created := f.create(t, "A", "", "2026-12-31")

	used, err := f.svc.UseCoupon(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, couponDomain.StatusUsed, used.Status)
	assert.Equal(t, couponDomain.PaymentStatusPaid, used.PaymentStatus)

	_, err = f.svc.UseCoupon(context.Background(), created.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCouponService_UpdateAndDelete(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()
	created := f.create(t, "A", "", "2026-12-31")

	updated, err := f.svc.UpdateCoupon(ctx, created.ID, CouponRequest{Name: "A2", ExpirationDate: "2027-01-31", Store: "Mapo"})
	require.NoError(t, err)
	assert.Equal(t, "A2", updated.Name)
	assert.Equal(t, couponDomain.StatusActive, updated.Status, "empty status keeps current")

	require.NoError(t, f.svc.DeleteCoupon(ctx, created.ID))
	_, err = f.svc.GetCoupon(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteCoupon(ctx, created.ID), domain.ErrNotFound)
}

func TestCouponService_AssignIssuerRegistersUnknownEmail(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()
	created := f.create(t, "A", "", "2026-12-31")

	dto, err := f.svc.AssignIssuer(ctx, created.ID, AssignIssuerRequest{IssuerEmail: "Kim@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", dto.IssuerEmail)
	assert.Equal(t, "Kim", dto.IssuerName, "name defaults to the local part")
	assert.Equal(t, []string{events.TypeIssuerCreated}, f.publisher.types())

	got, err := f.svc.GetCoupon(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", got.IssuerEmail)
}

func TestCouponService_AssignIssuerKeepsKnownName(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()
	created := f.create(t, "A", "", "2026-12-31")
	issuers := NewIssuerService(f.repos.issuers, nil, zap.NewNop())
	_, err := issuers.CreateIssuer(ctx, CreateIssuerRequest{Name: "Kim Minji", Email: "kim@example.com"})
	require.NoError(t, err)

	dto, err := f.svc.AssignIssuer(ctx, created.ID, AssignIssuerRequest{IssuerEmail: "kim@example.com", IssuerName: "kim"})
	require.NoError(t, err)
	assert.Equal(t, "Kim Minji", dto.IssuerName)
	assert.Empty(t, f.publisher.types())
}

func TestCouponService_AssignIssuerValidation(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()

	_, err := f.svc.AssignIssuer(ctx, 1, AssignIssuerRequest{IssuerEmail: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.AssignIssuer(ctx, 99, AssignIssuerRequest{IssuerEmail: "a@b.co"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCouponService_ExpireOverdue(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()
	past := f.create(t, "Old", "", "2026-10-13")
	today := f.create(t, "Today", "", "2026-10-14")

	n, err := f.svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.svc.GetCoupon(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, couponDomain.StatusExpired, got.Status)

	got, err = f.svc.GetCoupon(ctx, today.ID)
	require.NoError(t, err)
	assert.Equal(t, couponDomain.StatusActive, got.Status)
}

func TestCouponService_CouponImagePayload(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()
	withCode, err := f.svc.CreateCoupon(ctx, "", CouponRequest{Name: "A", ExpirationDate: "2026-12-31", Code: "VIP-0001"})
	require.NoError(t, err)
	withoutCode := f.create(t, "B", "", "2026-12-31")

	png, err := f.svc.CouponImage(ctx, withCode.ID, 128)
	require.NoError(t, err)
	assert.Equal(t, "png:VIP-0001", string(png))

	_, err = f.svc.CouponImage(ctx, withoutCode.ID, 128)
	require.NoError(t, err)
	assert.Equal(t, "coupon:2", f.renderer.payload)
}

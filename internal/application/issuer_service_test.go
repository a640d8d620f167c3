package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

func TestIssuerService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := newRepos()
	pub := &recordingPublisher{}
	svc := NewIssuerService(r.issuers, pub, zap.NewNop())

	created, err := svc.CreateIssuer(ctx, CreateIssuerRequest{Name: "Lee", Email: "Lee@Example.com", Phone: "010-1111-2222"})
	require.NoError(t, err)
	assert.Equal(t, "lee@example.com", created.Email)

	_, err = svc.CreateIssuer(ctx, CreateIssuerRequest{Name: "Lee", Email: "lee@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	updated, err := svc.UpdateIssuer(ctx, "LEE@example.com", UpdateIssuerRequest{Phone: "010-3333-4444"})
	require.NoError(t, err)
	assert.Equal(t, "Lee", updated.Name, "empty name keeps current")
	assert.Equal(t, "010-3333-4444", updated.Phone)

	require.NoError(t, svc.DeleteIssuer(ctx, "lee@example.com"))
	list, err := svc.ListIssuers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Issuers)

	assert.Equal(t, []string{events.TypeIssuerCreated, events.TypeIssuerUpdated, events.TypeIssuerDeleted}, pub.types())
}

func TestIssuerService_DeleteRemovesAssignments(t *testing.T) {
	f := newCouponFixture()
	ctx := context.Background()
	c := f.create(t, "A", "", "2026-12-31")
	_, err := f.svc.AssignIssuer(ctx, c.ID, AssignIssuerRequest{IssuerEmail: "park@example.com"})
	require.NoError(t, err)

	svc := NewIssuerService(f.repos.issuers, nil, zap.NewNop())
	require.NoError(t, svc.DeleteIssuer(ctx, "park@example.com"))

	got, err := f.svc.GetCoupon(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.IssuerEmail)
	assert.ErrorIs(t, svc.DeleteIssuer(ctx, "park@example.com"), domain.ErrNotFound)
}

func TestIssuerService_CreateValidatesEmail(t *testing.T) {
	svc := NewIssuerService(newRepos().issuers, nil, zap.NewNop())
	_, err := svc.CreateIssuer(context.Background(), CreateIssuerRequest{Name: "X", Email: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/localstore"
)

type assignCall struct {
	id          int64
	email, name string
}

type fakeAPI struct {
	mu         sync.Mutex
	queries    []client.CouponQuery
	page       *client.CouponPage
	listErr    error
	assigns    []assignCall
	assignErr  map[int64]error
	issuers    []client.Issuer
	issuerErr  error
	issuerHits int
}

func (f *fakeAPI) ListCoupons(_ context.Context, q client.CouponQuery) (*client.CouponPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.page == nil {
		return &client.CouponPage{Page: q.Page, Size: q.Size}, nil
	}
	p := *f.page
	p.Page = q.Page
	return &p, nil
}

func (f *fakeAPI) CouponNames(context.Context, string) ([]string, error) {
	return []string{"Summer VIP Coupon", "Welcome"}, nil
}

func (f *fakeAPI) StoreNames(context.Context, string) ([]string, error) {
	return nil, &client.APIError{Status: 500, Detail: "stores unavailable"}
}

func (f *fakeAPI) ListIssuers(context.Context) ([]client.Issuer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issuerHits++
	return f.issuers, f.issuerErr
}

func (f *fakeAPI) AssignIssuer(_ context.Context, id int64, email, name string) (*client.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigns = append(f.assigns, assignCall{id, email, name})
	if err := f.assignErr[id]; err != nil {
		return nil, err
	}
	return &client.Coupon{ID: id, IssuerEmail: email}, nil
}

func (f *fakeAPI) lastQuery() client.CouponQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

var today = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	api    *fakeAPI
	ctrl   *Controller
	notes  *recorder
	owners *localstore.OwnerOverrides
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		api:    &fakeAPI{assignErr: map[int64]error{}},
		notes:  &recorder{},
		owners: localstore.NewOwnerOverrides(localstore.NewMemoryStore()),
	}
	cfg.Now = func() time.Time { return today }
	f.ctrl = NewController(f.api, f.owners, f.notes, cfg)
	return f
}

func TestController_DraftNeverReachesQueryBeforeApply(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	f.ctrl.ToggleDraftCouponName("Welcome")
	f.ctrl.ToggleDraftStore("Gangnam")
	f.ctrl.ToggleDraftIssuer("kim@x.com")
	f.ctrl.SetDraftOnlyUnassigned(true)
	f.ctrl.SetSearchInput("VIP")

	require.NoError(t, f.ctrl.Refresh(ctx))
	q := f.api.lastQuery()
	assert.Empty(t, q.CouponNames)
	assert.Empty(t, q.StoreNames)
	assert.Empty(t, q.Issuers)
	assert.False(t, q.OnlyUnassigned)
	assert.Empty(t, q.Search, "buffered search is not applied")

	require.NoError(t, f.ctrl.ApplyFilters(ctx))
	q = f.api.lastQuery()
	assert.Equal(t, []string{"Welcome"}, q.CouponNames)
	assert.Equal(t, []string{"Gangnam"}, q.StoreNames)
	assert.Equal(t, []string{"kim@x.com"}, q.Issuers)
	assert.True(t, q.OnlyUnassigned)

	f.ctrl.ToggleDraftCouponName("Welcome")
	assert.Equal(t, []string{"Welcome"}, f.ctrl.Applied().CouponNames, "draft edits do not leak into applied")
	assert.Empty(t, f.ctrl.Draft().CouponNames)
}

func TestController_ApplyAndResetReturnToPageOne(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	require.NoError(t, f.ctrl.SetPage(ctx, 4))
	assert.Equal(t, 4, f.api.lastQuery().Page)

	require.NoError(t, f.ctrl.ApplyFilters(ctx))
	assert.Equal(t, 1, f.api.lastQuery().Page)

	require.NoError(t, f.ctrl.SetPage(ctx, 3))
	f.ctrl.ToggleDraftStore("Gangnam")
	require.NoError(t, f.ctrl.ApplyFilters(ctx))
	require.NoError(t, f.ctrl.SetPage(ctx, 2))
	require.NoError(t, f.ctrl.ResetFilters(ctx))
	q := f.api.lastQuery()
	assert.Equal(t, 1, q.Page)
	assert.Empty(t, q.StoreNames)
	assert.True(t, f.ctrl.Draft().IsZero())

	f.ctrl.SetSearchInput("  gold ")
	require.NoError(t, f.ctrl.SetPage(ctx, 5))
	require.NoError(t, f.ctrl.Search(ctx))
	q = f.api.lastQuery()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, "gold", q.Search)

	require.NoError(t, f.ctrl.SetPage(ctx, -2))
	assert.Equal(t, 1, f.api.lastQuery().Page)
}

func TestController_VIPScenario(t *testing.T) {
	f := newFixture(Config{})
	f.api.page = &client.CouponPage{
		Coupons:    []client.Coupon{{ID: 3}, {ID: 2}, {ID: 1}},
		Total:      3,
		Size:       PageSize,
		TotalPages: 1,
	}

	f.ctrl.SetSearchInput("VIP")
	f.ctrl.ToggleDraftCouponName("Summer VIP Coupon")
	require.NoError(t, f.ctrl.ApplyFilters(context.Background()))
	require.NoError(t, f.ctrl.Search(context.Background()))

	v := f.api.lastQuery().Values()
	assert.Equal(t, "VIP", v.Get("search"))
	assert.Equal(t, "Summer VIP Coupon", v.Get("coupon_names"))
	assert.Equal(t, "1", v.Get("page"))
	assert.Equal(t, "100", v.Get("size"))
	assert.Contains(t, v.Encode(), "coupon_names=Summer+VIP+Coupon")

	assert.Len(t, f.ctrl.Rows(), 3)
	assert.Equal(t, []int{1}, f.ctrl.Pages())
}

func TestController_PagesAndPageSelection(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	f.api.page = &client.CouponPage{Total: 450, Size: PageSize, TotalPages: 5}

	f.ctrl.ToggleDraftStore("Mapo")
	require.NoError(t, f.ctrl.ApplyFilters(ctx))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, f.ctrl.Pages())

	for _, k := range f.ctrl.Pages() {
		require.NoError(t, f.ctrl.SetPage(ctx, k))
		q := f.api.lastQuery()
		assert.Equal(t, k, q.Page)
		assert.Equal(t, []string{"Mapo"}, q.StoreNames)
	}
}

func TestController_FailedFetchKeepsPageAndNotifiesOnce(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	f.api.page = &client.CouponPage{Coupons: []client.Coupon{{ID: 1, Name: "A"}}, Total: 1, TotalPages: 1}
	require.NoError(t, f.ctrl.Refresh(ctx))

	f.api.listErr = errors.New("connection refused")
	require.Error(t, f.ctrl.SetPage(ctx, 2))

	rows := f.ctrl.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Coupon.Name)
	notes := f.notes.all()
	require.Len(t, notes, 1)
	assert.Equal(t, SeverityError, notes[0].Severity)
	assert.Equal(t, "Failed to load coupons.", notes[0].Message)

	f.api.listErr = &client.APIError{Status: 400, Detail: "size must be between 1 and 1000"}
	require.Error(t, f.ctrl.Refresh(ctx))
	assert.Equal(t, "size must be between 1 and 1000", f.notes.all()[1].Message)
}

func TestController_SaveOwnerEmailAssigns(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	f.api.page = &client.CouponPage{Coupons: []client.Coupon{{ID: 7, RegisteredBy: "desk"}}, TotalPages: 1}
	require.NoError(t, f.ctrl.Refresh(ctx))
	fetches := len(f.api.queries)

	f.ctrl.StartOwnerEdit(7, "")
	f.ctrl.SetOwnerDraft(7, " kim@x.com ")
	require.NoError(t, f.ctrl.SaveOwner(ctx, 7))

	assert.Equal(t, []assignCall{{7, "kim@x.com", "kim"}}, f.api.assigns)
	v, ok, err := f.owners.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kim@x.com", v)
	assert.Empty(t, f.ctrl.Editing())
	assert.Equal(t, fetches+1, len(f.api.queries), "page refetched")
	assert.Equal(t, "kim@x.com", f.ctrl.Rows()[0].Owner)
}

func TestController_SaveOwnerLabelStaysLocal(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	f.api.page = &client.CouponPage{Coupons: []client.Coupon{{ID: 7}}, TotalPages: 1}
	require.NoError(t, f.ctrl.Refresh(ctx))

	f.ctrl.SetOwnerDraft(7, "front desk")
	require.NoError(t, f.ctrl.SaveOwner(ctx, 7))

	assert.Empty(t, f.api.assigns)
	row := f.ctrl.Rows()[0]
	assert.Equal(t, "front desk", row.Owner)
	assert.Equal(t, OwnerOverride, row.OwnerSource)
	assert.False(t, row.Editing)

	require.NoError(t, f.ctrl.DeleteOwner(ctx, 7))
	_, ok, err := f.owners.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.ctrl.Rows()[0].Owner)
}

func TestController_SaveOwnerEmptyWarns(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	f.ctrl.StartOwnerEdit(7, "   ")
	assert.ErrorIs(t, f.ctrl.SaveOwner(ctx, 7), ErrEmptyOwner)
	assert.Empty(t, f.api.assigns)
	require.Len(t, f.notes.all(), 1)
	assert.Equal(t, SeverityWarning, f.notes.all()[0].Severity)
	assert.Contains(t, f.ctrl.Editing(), int64(7), "editor stays open")

	assert.ErrorIs(t, f.ctrl.SaveOwner(ctx, 8), ErrNotEditing)
}

func TestController_SaveOwnerAssignFailure(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	f.api.assignErr[7] = &client.APIError{Status: 404, Detail: "Coupon 7 not found"}

	f.ctrl.StartOwnerEdit(7, "kim@x.com")
	require.Error(t, f.ctrl.SaveOwner(ctx, 7))

	assert.Equal(t, []Notification{{SeverityError, "Coupon 7 not found"}}, f.notes.all())
	_, ok, _ := f.owners.Get(ctx, 7)
	assert.False(t, ok)
	assert.Contains(t, f.ctrl.Editing(), int64(7))
}

func TestController_CancelOwnerEdit(t *testing.T) {
	f := newFixture(Config{})
	f.ctrl.StartOwnerEdit(7, "x")
	f.ctrl.CancelOwnerEdit(7)
	assert.Empty(t, f.ctrl.Editing())
	_, ok, _ := f.owners.Get(context.Background(), 7)
	assert.False(t, ok)
}

func TestController_BulkAssign(t *testing.T) {
	f := newFixture(Config{Team: "vip", BulkAssignTeam: "vip"})
	ctx := context.Background()
	f.api.assignErr[5] = errors.New("timeout")

	_, err := f.ctrl.BulkAssign(ctx)
	assert.ErrorIs(t, err, ErrBulkUnavailable, "needs only-unassigned applied")

	f.ctrl.SetDraftOnlyUnassigned(true)
	require.NoError(t, f.ctrl.ApplyFilters(ctx))
	require.True(t, f.ctrl.BulkAssignAvailable())

	f.ctrl.SetOwnerDraft(9, "c@x.com")
	f.ctrl.SetOwnerDraft(5, "b@x.com")
	f.ctrl.SetOwnerDraft(2, "a@x.com")
	f.ctrl.SetOwnerDraft(3, "not an email")
	fetches := len(f.api.queries)

	res, err := f.ctrl.BulkAssign(ctx)
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Succeeded: 2, Failed: 1}, res)
	assert.Equal(t, []assignCall{{2, "a@x.com", "a"}, {5, "b@x.com", "b"}, {9, "c@x.com", "c"}}, f.api.assigns)
	assert.Equal(t, map[int64]string{3: "not an email", 5: "b@x.com"}, f.ctrl.Editing())
	assert.Equal(t, fetches+1, len(f.api.queries))

	notes := f.notes.all()
	last := notes[len(notes)-1]
	assert.Equal(t, SeverityWarning, last.Severity)
	assert.Equal(t, fmt.Sprintf("Bulk assign finished: %d succeeded, %d failed.", 2, 1), last.Message)
	assert.True(t, f.api.lastQuery().OnlyUnassigned)
	assert.Equal(t, "vip", f.api.lastQuery().Team)
}

func TestController_BulkAssignOtherTeam(t *testing.T) {
	f := newFixture(Config{Team: "basic", BulkAssignTeam: "vip"})
	f.ctrl.SetDraftOnlyUnassigned(true)
	require.NoError(t, f.ctrl.ApplyFilters(context.Background()))
	assert.False(t, f.ctrl.BulkAssignAvailable())

	f = newFixture(Config{})
	f.ctrl.SetDraftOnlyUnassigned(true)
	require.NoError(t, f.ctrl.ApplyFilters(context.Background()))
	assert.False(t, f.ctrl.BulkAssignAvailable(), "no bulk-assign team configured")
}

func TestController_LoadOptions(t *testing.T) {
	f := newFixture(Config{})
	f.api.issuers = []client.Issuer{{Name: "Kim", Email: "kim@x.com", CouponCount: 5}}

	err := f.ctrl.LoadOptions(context.Background())
	require.Error(t, err)

	opts := f.ctrl.Options()
	assert.Equal(t, []string{"Summer VIP Coupon", "Welcome"}, opts.CouponNames)
	assert.Empty(t, opts.Stores)
	assert.Len(t, opts.Issuers, 1)
	assert.Equal(t, []Notification{{SeverityError, "stores unavailable"}}, f.notes.all())
}

func TestController_WatchIssuerChanges(t *testing.T) {
	f := newFixture(Config{})
	bus := events.NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.WatchIssuerChanges(ctx, bus) }()
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	f.api.mu.Lock()
	f.api.issuers = []client.Issuer{{Name: "Lee", Email: "lee@x.com"}}
	f.api.mu.Unlock()
	require.NoError(t, bus.Publish(ctx, events.NewSignal(events.TypeIssuerDeleted)))

	require.Eventually(t, func() bool {
		opts := f.ctrl.Options()
		return len(opts.Issuers) == 1 && opts.Issuers[0].Email == "lee@x.com"
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestController_Restore(t *testing.T) {
	f := newFixture(Config{Team: "vip"})
	sel := FilterSelection{Stores: []string{"Mapo"}, OnlyUnassigned: true}

	f.ctrl.Restore(" gold ", sel, 3)
	assert.Empty(t, f.api.queries, "restore does not fetch")

	require.NoError(t, f.ctrl.Refresh(context.Background()))
	q := f.api.lastQuery()
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, "gold", q.Search)
	assert.Equal(t, []string{"Mapo"}, q.StoreNames)
	assert.True(t, q.OnlyUnassigned)
	assert.Equal(t, sel, f.ctrl.Draft())

	sel.Stores[0] = "changed"
	assert.Equal(t, []string{"Mapo"}, f.ctrl.Applied().Stores)
}

func TestController_RestoreNormalizesSelection(t *testing.T) {
	f := newFixture(Config{})
	f.ctrl.Restore("", FilterSelection{
		CouponNames: []string{"b", "a", "b"},
		Issuers:     []string{"z@x.com", "a@x.com"},
	}, 1)

	assert.Equal(t, []string{"a", "b"}, f.ctrl.Applied().CouponNames)
	assert.Equal(t, []string{"a@x.com", "z@x.com"}, f.ctrl.Draft().Issuers)

	f.ctrl.ToggleDraftCouponName("a")
	assert.Equal(t, []string{"b"}, f.ctrl.Draft().CouponNames)
	f.ctrl.ToggleDraftIssuer("z@x.com")
	assert.Equal(t, []string{"a@x.com"}, f.ctrl.Draft().Issuers)
	assert.Equal(t, []string{"a", "b"}, f.ctrl.Applied().CouponNames, "applied is untouched")
}

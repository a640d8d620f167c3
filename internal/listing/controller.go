// Package listing drives the coupon list: search, draft and applied filters,
// pagination, owner inline edits and bulk issuer assignment.
//
// State lives under one mutex. Network calls run outside it, and concurrent
// fetches are not serialized: whichever response arrives last is shown.
package listing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
	issuerDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/issuer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
)

// PageSize is the fixed page size of the list.
const PageSize = 100

var (
	ErrEmptyOwner      = errors.New("owner must not be empty")
	ErrNotEditing      = errors.New("coupon is not being edited")
	ErrBulkUnavailable = errors.New("bulk assign is not available")
)

// API is the part of the REST client the controller uses.
type API interface {
	ListCoupons(ctx context.Context, q client.CouponQuery) (*client.CouponPage, error)
	CouponNames(ctx context.Context, team string) ([]string, error)
	StoreNames(ctx context.Context, team string) ([]string, error)
	ListIssuers(ctx context.Context) ([]client.Issuer, error)
	AssignIssuer(ctx context.Context, id int64, email, name string) (*client.Coupon, error)
}

// OwnerStore is the local owner override cache.
type OwnerStore interface {
	Get(ctx context.Context, couponID int64) (string, bool, error)
	Set(ctx context.Context, couponID int64, owner string) error
	Delete(ctx context.Context, couponID int64) error
}

// Config configures a Controller.
type Config struct {
	// Team scopes every request. Empty lists all coupons.
	Team string
	// BulkAssignTeam is the only team that offers bulk assignment. Empty disables it.
	BulkAssignTeam string
	Now            func() time.Time
	Logger         *zap.Logger
	// IssuersReloaded is called after every successful issuer reload.
	IssuersReloaded func([]client.Issuer)
}

// Options are the values offered by the filter selectors.
type Options struct {
	CouponNames []string
	Stores      []string
	Issuers     []client.Issuer
}

// BulkResult counts the outcome of BulkAssign.
type BulkResult struct {
	Succeeded int
	Failed    int
}

// Controller is the coupon list state machine.
type Controller struct {
	api      API
	owners   OwnerStore
	notifier Notifier
	cfg      Config
	logger   *zap.Logger

	mu          sync.Mutex
	searchInput string
	search      string
	draft       FilterSelection
	applied     FilterSelection
	page        int
	result      client.CouponPage
	overrides   map[int64]string
	editing     map[int64]string
	options     Options
}

// NewController creates a controller on page 1 with empty filters. Nothing is fetched yet.
func NewController(api API, owners OwnerStore, notifier Notifier, cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Controller{
		api:       api,
		owners:    owners,
		notifier:  notifier,
		cfg:       cfg,
		logger:    cfg.Logger,
		page:      1,
		overrides: make(map[int64]string),
		editing:   make(map[int64]string),
	}
}

// SetSearchInput buffers the search box text.
func (c *Controller) SetSearchInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchInput = text
}

// Search applies the buffered text, returns to page 1 and fetches.
func (c *Controller) Search(ctx context.Context) error {
	c.mu.Lock()
	c.search = strings.TrimSpace(c.searchInput)
	c.page = 1
	c.mu.Unlock()
	return c.fetch(ctx)
}

// ToggleDraftCouponName flips a coupon name in the draft selection.
func (c *Controller) ToggleDraftCouponName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.CouponNames = toggle(c.draft.CouponNames, name)
}

// ToggleDraftStore flips a store in the draft selection.
func (c *Controller) ToggleDraftStore(store string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Stores = toggle(c.draft.Stores, store)
}

// ToggleDraftIssuer flips an issuer email in the draft selection.
func (c *Controller) ToggleDraftIssuer(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Issuers = toggle(c.draft.Issuers, email)
}

// SetDraftOnlyUnassigned sets the draft only-unassigned flag.
func (c *Controller) SetDraftOnlyUnassigned(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.OnlyUnassigned = on
}

// ClearDraftCouponNames empties the draft coupon names.
func (c *Controller) ClearDraftCouponNames() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.CouponNames = nil
}

// ClearDraftStores empties the draft stores.
func (c *Controller) ClearDraftStores() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Stores = nil
}

// ClearDraftIssuers empties the draft issuers.
func (c *Controller) ClearDraftIssuers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Issuers = nil
}

// ApplyFilters copies the draft to the applied selection, returns to page 1 and fetches.
func (c *Controller) ApplyFilters(ctx context.Context) error {
	c.mu.Lock()
	c.applied = c.draft.clone()
	c.page = 1
	c.mu.Unlock()
	return c.fetch(ctx)
}

// ResetFilters clears both selections, returns to page 1 and fetches. The search term stays.
func (c *Controller) ResetFilters(ctx context.Context) error {
	c.mu.Lock()
	c.draft = FilterSelection{}
	c.applied = FilterSelection{}
	c.page = 1
	c.mu.Unlock()
	return c.fetch(ctx)
}

// SetPage moves to page k (at least 1) and fetches.
func (c *Controller) SetPage(ctx context.Context, k int) error {
	c.mu.Lock()
	c.page = max(k, 1)
	c.mu.Unlock()
	return c.fetch(ctx)
}

// Restore sets the applied search, both selections and the page without
// fetching, as when resuming a saved view. The selection is sorted and deduplicated.
func (c *Controller) Restore(search string, sel FilterSelection, page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = strings.TrimSpace(search)
	c.searchInput = search
	sel = sel.normalized()
	c.draft = sel
	c.applied = sel.clone()
	c.page = max(page, 1)
}

// Refresh fetches the current page again.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.fetch(ctx)
}

// Query returns the request the next fetch sends.
func (c *Controller) Query() client.CouponQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked()
}

func (c *Controller) queryLocked() client.CouponQuery {
	a := c.applied.clone()
	return client.CouponQuery{
		Page:           c.page,
		Size:           PageSize,
		Search:         c.search,
		CouponNames:    a.CouponNames,
		StoreNames:     a.Stores,
		Issuers:        a.Issuers,
		OnlyUnassigned: a.OnlyUnassigned,
		Team:           c.cfg.Team,
	}
}

// fetch loads the applied query. On failure the shown page is kept and one error is notified.
func (c *Controller) fetch(ctx context.Context) error {
	q := c.Query()

	page, err := c.api.ListCoupons(ctx, q)
	if err != nil {
		c.notifyError("Failed to load coupons.", err)
		return err
	}
	overrides := c.loadOverrides(ctx, page.Coupons)

	c.mu.Lock()
	c.result = *page
	c.overrides = overrides
	c.mu.Unlock()
	return nil
}

func (c *Controller) loadOverrides(ctx context.Context, coupons []client.Coupon) map[int64]string {
	out := make(map[int64]string)
	if c.owners == nil {
		return out
	}
	for _, cp := range coupons {
		v, ok, err := c.owners.Get(ctx, cp.ID)
		if err != nil {
			c.logger.Warn("owner override read failed", zap.Int64("coupon_id", cp.ID), zap.Error(err))
			continue
		}
		if ok && v != "" {
			out[cp.ID] = v
		}
	}
	return out
}

// Rows renders the current page as received, in backend order.
func (c *Controller) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	today := c.cfg.Now()
	rows := make([]Row, len(c.result.Coupons))
	for i, cp := range c.result.Coupons {
		rows[i] = buildRow(cp, c.overrides[cp.ID], today)
		rows[i].OwnerDraft, rows[i].Editing = c.editing[cp.ID]
	}
	return rows
}

// Pages returns 1..total_pages.
func (c *Controller) Pages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pages := make([]int, c.result.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// Page returns the requested page number.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Total returns the total match count of the last successful fetch.
func (c *Controller) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result.Total
}

// SearchInput returns the buffered search text.
func (c *Controller) SearchInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchInput
}

// Draft returns a copy of the draft selection.
func (c *Controller) Draft() FilterSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.clone()
}

// Applied returns a copy of the applied selection.
func (c *Controller) Applied() FilterSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied.clone()
}

// Options returns the loaded selector values.
func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Options{
		CouponNames: append([]string(nil), c.options.CouponNames...),
		Stores:      append([]string(nil), c.options.Stores...),
		Issuers:     append([]client.Issuer(nil), c.options.Issuers...),
	}
}

// LoadOptions loads coupon names, stores and issuers. Failed parts keep their
// previous values and are reported in a single notification.
func (c *Controller) LoadOptions(ctx context.Context) error {
	names, namesErr := c.api.CouponNames(ctx, c.cfg.Team)
	stores, storesErr := c.api.StoreNames(ctx, c.cfg.Team)
	issuers, issuersErr := c.api.ListIssuers(ctx)

	c.mu.Lock()
	if namesErr == nil {
		c.options.CouponNames = names
	}
	if storesErr == nil {
		c.options.Stores = stores
	}
	if issuersErr == nil {
		c.options.Issuers = issuers
	}
	c.mu.Unlock()

	err := errors.Join(namesErr, storesErr, issuersErr)
	if err != nil {
		c.notifyError("Failed to load filter options.", firstErr(namesErr, storesErr, issuersErr))
	}
	return err
}

// ReloadIssuers refreshes the issuer selector.
func (c *Controller) ReloadIssuers(ctx context.Context) error {
	issuers, err := c.api.ListIssuers(ctx)
	if err != nil {
		c.notifyError("Failed to load issuers.", err)
		return err
	}
	c.mu.Lock()
	c.options.Issuers = issuers
	c.mu.Unlock()
	if c.cfg.IssuersReloaded != nil {
		c.cfg.IssuersReloaded(issuers)
	}
	return nil
}

// WatchIssuerChanges reloads issuer options on every signal until ctx ends or the subscription closes.
func (c *Controller) WatchIssuerChanges(ctx context.Context, sub events.Subscriber) error {
	signals, err := sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to issuer changes: %w", err)
	}
	for sig := range signals {
		c.logger.Debug("issuer list changed", zap.String("type", sig.Type))
		_ = c.ReloadIssuers(ctx)
	}
	return ctx.Err()
}

// StartOwnerEdit opens the owner editor of a row with an initial value.
func (c *Controller) StartOwnerEdit(id int64, initial string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing[id] = initial
}

// SetOwnerDraft changes the editor value. It opens the editor when closed.
func (c *Controller) SetOwnerDraft(id int64, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing[id] = value
}

// CancelOwnerEdit closes the editor without saving.
func (c *Controller) CancelOwnerEdit(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.editing, id)
}

// Editing returns the open editors by coupon id.
func (c *Controller) Editing() map[int64]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int64]string, len(c.editing))
	for id, v := range c.editing {
		out[id] = v
	}
	return out
}

// SaveOwner saves the editor value. An email assigns the issuer on the
// backend and refetches; any other text is only stored locally.
func (c *Controller) SaveOwner(ctx context.Context, id int64) error {
	c.mu.Lock()
	raw, ok := c.editing[id]
	c.mu.Unlock()
	if !ok {
		return ErrNotEditing
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		c.notify(SeverityWarning, "Enter an owner name or issuer email.")
		return ErrEmptyOwner
	}

	if !issuerDomain.IsEmail(value) {
		if err := c.setOverride(ctx, id, value); err != nil {
			c.notifyError("Failed to save owner.", err)
			return err
		}
		c.closeEdit(id, value)
		c.notify(SeverityInfo, "Owner saved locally.")
		return nil
	}

	if _, err := c.api.AssignIssuer(ctx, id, value, issuerDomain.LocalPart(value)); err != nil {
		c.notifyError("Failed to assign issuer.", err)
		return err
	}
	if err := c.setOverride(ctx, id, value); err != nil {
		c.logger.Warn("owner override write failed", zap.Int64("coupon_id", id), zap.Error(err))
	}
	c.closeEdit(id, value)
	c.notify(SeveritySuccess, "Issuer assigned.")
	return c.fetch(ctx)
}

// DeleteOwner removes the local override of a coupon. Backend assignments are untouched.
func (c *Controller) DeleteOwner(ctx context.Context, id int64) error {
	if c.owners != nil {
		if err := c.owners.Delete(ctx, id); err != nil {
			c.notifyError("Failed to delete owner.", err)
			return err
		}
	}
	c.mu.Lock()
	delete(c.overrides, id)
	c.mu.Unlock()
	return nil
}

// BulkAssignAvailable reports whether the controller runs in the bulk-assign
// team with only-unassigned applied.
func (c *Controller) BulkAssignAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bulkAvailableLocked()
}

func (c *Controller) bulkAvailableLocked() bool {
	return c.cfg.BulkAssignTeam != "" && c.cfg.Team == c.cfg.BulkAssignTeam && c.applied.OnlyUnassigned
}

// BulkAssign assigns every open editor holding an email, in ascending coupon
// id order, one call at a time. Failures are counted, never fatal. One summary
// is notified and the page refetched.
func (c *Controller) BulkAssign(ctx context.Context) (BulkResult, error) {
	c.mu.Lock()
	if !c.bulkAvailableLocked() {
		c.mu.Unlock()
		c.notify(SeverityWarning, "Bulk assign is only available for unassigned coupons of the bulk-assign team.")
		return BulkResult{}, ErrBulkUnavailable
	}
	type pending struct {
		id    int64
		email string
	}
	var work []pending
	for id, v := range c.editing {
		if v = strings.TrimSpace(v); issuerDomain.IsEmail(v) {
			work = append(work, pending{id, v})
		}
	}
	c.mu.Unlock()

	sort.Slice(work, func(i, j int) bool { return work[i].id < work[j].id })
	if len(work) == 0 {
		c.notify(SeverityInfo, "No issuer emails to assign.")
		return BulkResult{}, nil
	}

	var res BulkResult
	for _, p := range work {
		if _, err := c.api.AssignIssuer(ctx, p.id, p.email, issuerDomain.LocalPart(p.email)); err != nil {
			c.logger.Warn("bulk assign failed", zap.Int64("coupon_id", p.id), zap.Error(err))
			res.Failed++
			continue
		}
		res.Succeeded++
		if err := c.setOverride(ctx, p.id, p.email); err != nil {
			c.logger.Warn("owner override write failed", zap.Int64("coupon_id", p.id), zap.Error(err))
		}
		c.closeEdit(p.id, p.email)
	}

	severity := SeveritySuccess
	switch {
	case res.Succeeded == 0:
		severity = SeverityError
	case res.Failed > 0:
		severity = SeverityWarning
	}
	c.notify(severity, fmt.Sprintf("Bulk assign finished: %d succeeded, %d failed.", res.Succeeded, res.Failed))

	_ = c.fetch(ctx)
	return res, nil
}

func (c *Controller) setOverride(ctx context.Context, id int64, value string) error {
	if c.owners == nil {
		return nil
	}
	return c.owners.Set(ctx, id, value)
}

func (c *Controller) closeEdit(id int64, owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.editing, id)
	c.overrides[id] = owner
}

func (c *Controller) notify(severity Severity, message string) {
	c.notifier.Notify(Notification{Severity: severity, Message: message})
}

// notifyError prefers the backend detail over the fallback text.
func (c *Controller) notifyError(fallback string, err error) {
	msg := fallback
	if detail := client.Detail(err); detail != "" {
		msg = detail
	}
	c.logger.Debug("listing error", zap.String("message", msg), zap.Error(err))
	c.notify(SeverityError, msg)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	issuerDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/issuer"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

// MemoryDB keeps coupons, issuers and assignments in process. It backs
// STORAGE_DRIVER=memory and the HTTP-level tests; data is lost on exit.
type MemoryDB struct {
	mu          sync.RWMutex
	nextID      int64
	coupons     map[int64]*couponDomain.Coupon
	issuers     map[string]*issuerDomain.Issuer
	assignments map[int64]string
}

// NewMemoryDB creates an empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		coupons:     make(map[int64]*couponDomain.Coupon),
		issuers:     make(map[string]*issuerDomain.Issuer),
		assignments: make(map[int64]string),
	}
}

// MemoryCouponRepository implements CouponRepository on a MemoryDB.
type MemoryCouponRepository struct{ db *MemoryDB }

// NewMemoryCouponRepository creates a coupon repository on db.
func NewMemoryCouponRepository(db *MemoryDB) *MemoryCouponRepository {
	return &MemoryCouponRepository{db: db}
}

// MemoryIssuerRepository implements IssuerRepository on a MemoryDB.
type MemoryIssuerRepository struct{ db *MemoryDB }

// NewMemoryIssuerRepository creates an issuer repository on db.
func NewMemoryIssuerRepository(db *MemoryDB) *MemoryIssuerRepository {
	return &MemoryIssuerRepository{db: db}
}

func (r *MemoryCouponRepository) Save(_ context.Context, c *couponDomain.Coupon) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.nextID++
	c.SetID(r.db.nextID)
	r.db.coupons[c.ID()] = copyCoupon(c, "", "")
	return nil
}

func (r *MemoryCouponRepository) Update(_ context.Context, c *couponDomain.Coupon) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.coupons[c.ID()]; !ok {
		return domain.NewNotFoundError("Coupon", strconv.FormatInt(c.ID(), 10))
	}
	r.db.coupons[c.ID()] = copyCoupon(c, "", "")
	return nil
}

func (r *MemoryCouponRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.coupons[id]; !ok {
		return domain.NewNotFoundError("Coupon", strconv.FormatInt(id, 10))
	}
	delete(r.db.coupons, id)
	delete(r.db.assignments, id)
	return nil
}

func (r *MemoryCouponRepository) FindByID(_ context.Context, id int64) (*couponDomain.Coupon, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.coupons[id]
	if !ok {
		return nil, domain.NewNotFoundError("Coupon", strconv.FormatInt(id, 10))
	}
	return r.db.joined(c), nil
}

func (r *MemoryCouponRepository) List(_ context.Context, f couponDomain.ListFilter) ([]*couponDomain.Coupon, int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	matched := r.db.filter(func(c *couponDomain.Coupon) bool { return matches(c, f) })
	total := int64(len(matched))
	start := min(f.Offset(), len(matched))
	end := min(start+f.Size, len(matched))
	return matched[start:end], total, nil
}

func (r *MemoryCouponRepository) FindAll(_ context.Context, teamID string) ([]*couponDomain.Coupon, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.filter(func(c *couponDomain.Coupon) bool { return teamID == "" || c.TeamID() == teamID }), nil
}

func (r *MemoryCouponRepository) FindByIssuer(_ context.Context, email string) ([]*couponDomain.Coupon, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.filter(func(c *couponDomain.Coupon) bool { return c.IssuerEmail() == email }), nil
}

func (r *MemoryCouponRepository) DistinctNames(_ context.Context, teamID string) ([]string, error) {
	return r.distinct(teamID, (*couponDomain.Coupon).Name), nil
}

func (r *MemoryCouponRepository) DistinctStores(_ context.Context, teamID string) ([]string, error) {
	return r.distinct(teamID, (*couponDomain.Coupon).Store), nil
}

func (r *MemoryCouponRepository) distinct(teamID string, field func(*couponDomain.Coupon) string) []string {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, c := range r.db.coupons {
		if teamID != "" && c.TeamID() != teamID {
			continue
		}
		if v := field(c); v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func (r *MemoryCouponRepository) ExpireBefore(_ context.Context, date string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, c := range r.db.coupons {
		if couponDomain.NormalizeStatus(c.Status()) != couponDomain.StatusActive || c.ExpirationDate() >= date {
			continue
		}
		d := c.Details()
		d.Status = couponDomain.StatusExpired
		r.db.coupons[id] = couponDomain.Reconstruct(id, d, c.TeamID(), "", "", c.CreatedAt(), time.Now().UTC())
		n++
	}
	return n, nil
}

func (r *MemoryIssuerRepository) Save(_ context.Context, i *issuerDomain.Issuer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.issuers[i.Email()]; ok {
		return domain.NewConflictError("issuer " + i.Email() + " already exists")
	}
	r.db.issuers[i.Email()] = copyIssuer(i, 0)
	return nil
}

func (r *MemoryIssuerRepository) Update(_ context.Context, i *issuerDomain.Issuer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.issuers[i.Email()]; !ok {
		return domain.NewNotFoundError("Issuer", i.Email())
	}
	r.db.issuers[i.Email()] = copyIssuer(i, 0)
	return nil
}

func (r *MemoryIssuerRepository) Delete(_ context.Context, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.issuers[email]; !ok {
		return domain.NewNotFoundError("Issuer", email)
	}
	delete(r.db.issuers, email)
	for id, e := range r.db.assignments {
		if e == email {
			delete(r.db.assignments, id)
		}
	}
	return nil
}

func (r *MemoryIssuerRepository) FindByEmail(_ context.Context, email string) (*issuerDomain.Issuer, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	i, ok := r.db.issuers[email]
	if !ok {
		return nil, domain.NewNotFoundError("Issuer", email)
	}
	return copyIssuer(i, r.db.countFor(email)), nil
}

func (r *MemoryIssuerRepository) List(_ context.Context) ([]*issuerDomain.Issuer, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]*issuerDomain.Issuer, 0, len(r.db.issuers))
	for email, i := range r.db.issuers {
		out = append(out, copyIssuer(i, r.db.countFor(email)))
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].CreatedAt().Equal(out[b].CreatedAt()) {
			return out[a].CreatedAt().After(out[b].CreatedAt())
		}
		return out[a].Email() < out[b].Email()
	})
	return out, nil
}

func (r *MemoryIssuerRepository) Assign(_ context.Context, couponID int64, email string, _ time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.coupons[couponID]; !ok {
		return domain.NewNotFoundError("Coupon", strconv.FormatInt(couponID, 10))
	}
	if _, ok := r.db.issuers[email]; !ok {
		return domain.NewNotFoundError("Issuer", email)
	}
	r.db.assignments[couponID] = email
	return nil
}

// filter returns joined copies of the matching coupons, newest id first. Callers hold the lock.
func (db *MemoryDB) filter(keep func(*couponDomain.Coupon) bool) []*couponDomain.Coupon {
	out := make([]*couponDomain.Coupon, 0)
	for _, c := range db.coupons {
		if j := db.joined(c); keep(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() > out[j].ID() })
	return out
}

func (db *MemoryDB) joined(c *couponDomain.Coupon) *couponDomain.Coupon {
	email := db.assignments[c.ID()]
	name := ""
	if i, ok := db.issuers[email]; ok {
		name = i.Name()
	}
	return copyCoupon(c, email, name)
}

func (db *MemoryDB) countFor(email string) int64 {
	var n int64
	for _, e := range db.assignments {
		if e == email {
			n++
		}
	}
	return n
}

func matches(c *couponDomain.Coupon, f couponDomain.ListFilter) bool {
	if f.TeamID != "" && c.TeamID() != f.TeamID {
		return false
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		if !strings.Contains(strings.ToLower(c.Name()), s) &&
			!strings.Contains(strings.ToLower(c.Store()), s) &&
			!strings.Contains(strings.ToLower(c.Code()), s) {
			return false
		}
	}
	if len(f.CouponNames) > 0 && !contains(f.CouponNames, c.Name()) {
		return false
	}
	if len(f.StoreNames) > 0 && !contains(f.StoreNames, c.Store()) {
		return false
	}
	if len(f.IssuerEmails) > 0 && !contains(f.IssuerEmails, c.IssuerEmail()) {
		return false
	}
	if f.OnlyUnassigned && c.IssuerEmail() != "" {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func copyCoupon(c *couponDomain.Coupon, issuerEmail, issuerName string) *couponDomain.Coupon {
	createdAt, updatedAt := c.CreatedAt(), c.UpdatedAt()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return couponDomain.Reconstruct(c.ID(), c.Details(), c.TeamID(), issuerEmail, issuerName, createdAt, updatedAt)
}

func copyIssuer(i *issuerDomain.Issuer, couponCount int64) *issuerDomain.Issuer {
	createdAt := i.CreatedAt()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return issuerDomain.Reconstruct(i.Name(), i.Email(), i.Phone(), couponCount, i.LastLogin(), i.LoginCount(), createdAt, i.UpdatedAt())
}

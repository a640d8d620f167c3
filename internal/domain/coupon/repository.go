package coupon

import "context"

// ListFilter selects one page of coupons. Slices are exact matches; empty means no filter.
type ListFilter struct {
	Page           int
	Size           int
	Search         string
	CouponNames    []string
	StoreNames     []string
	IssuerEmails   []string
	OnlyUnassigned bool
	TeamID         string
}

// Offset returns the row offset of the page.
func (f ListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Size
}

// CouponRepository defines persistence operations for coupons.
type CouponRepository interface {
	Save(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Coupon, error)
	List(ctx context.Context, f ListFilter) ([]*Coupon, int64, error)
	FindAll(ctx context.Context, teamID string) ([]*Coupon, error)
	FindByIssuer(ctx context.Context, email string) ([]*Coupon, error)
	DistinctNames(ctx context.Context, teamID string) ([]string, error)
	DistinctStores(ctx context.Context, teamID string) ([]string, error)
	// ExpireBefore moves active coupons dated before date to expired and returns the count.
	ExpireBefore(ctx context.Context, date string) (int64, error)
}

package issuer

import (
	"context"
	"time"
)

// IssuerRepository defines persistence operations for issuers and their coupon assignments.
type IssuerRepository interface {
	// Save inserts a new issuer; a duplicate email is a conflict.
	Save(ctx context.Context, i *Issuer) error
	Update(ctx context.Context, i *Issuer) error
	// Delete removes the issuer and every assignment to it.
	Delete(ctx context.Context, email string) error
	FindByEmail(ctx context.Context, email string) (*Issuer, error)
	// List returns issuers newest first with their coupon counts.
	List(ctx context.Context) ([]*Issuer, error)
	// Assign points couponID at email, replacing any earlier assignment.
	Assign(ctx context.Context, couponID int64, email string, at time.Time) error
}

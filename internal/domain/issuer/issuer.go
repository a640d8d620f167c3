// Package issuer models the accounts that own and hand out coupons.
package issuer

import (
	"regexp"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail reports whether s has an email address shape.
func IsEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// LocalPart returns the part of an email before "@".
func LocalPart(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// Issuer is an account authorized to own coupons. Email is its identity.
type Issuer struct {
	name        string
	email       string
	phone       string
	couponCount int64
	lastLogin   *time.Time
	loginCount  int
	createdAt   time.Time
	updatedAt   time.Time
}

// NewIssuer validates and creates an issuer.
func NewIssuer(name, email, phone string) (*Issuer, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, domain.NewValidationError("name is required")
	}
	if !IsEmail(email) {
		return nil, domain.NewValidationError("a valid email is required")
	}

	now := time.Now().UTC()
	return &Issuer{
		name:      name,
		email:     email,
		phone:     strings.TrimSpace(phone),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds an Issuer from persistence.
func Reconstruct(name, email, phone string, couponCount int64, lastLogin *time.Time, loginCount int, createdAt, updatedAt time.Time) *Issuer {
	return &Issuer{
		name: name, email: email, phone: phone,
		couponCount: couponCount,
		lastLogin:   lastLogin, loginCount: loginCount,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// Update changes name and phone. An empty name keeps the current one.
func (i *Issuer) Update(name, phone string) {
	if n := strings.TrimSpace(name); n != "" {
		i.name = n
	}
	i.phone = strings.TrimSpace(phone)
	i.updatedAt = time.Now().UTC()
}

// Authenticate checks the login name against the stored one, ignoring case and surrounding space.
func (i *Issuer) Authenticate(name string) error {
	if !strings.EqualFold(strings.TrimSpace(name), i.name) {
		return domain.NewUnauthorizedError("name and email do not match a registered issuer")
	}
	return nil
}

// RecordLogin bumps the login counter.
func (i *Issuer) RecordLogin(at time.Time) {
	at = at.UTC()
	i.lastLogin = &at
	i.loginCount++
}

func (i *Issuer) Name() string          { return i.name }
func (i *Issuer) Email() string         { return i.email }
func (i *Issuer) Phone() string         { return i.phone }
func (i *Issuer) CouponCount() int64    { return i.couponCount }
func (i *Issuer) LastLogin() *time.Time { return i.lastLogin }
func (i *Issuer) LoginCount() int       { return i.loginCount }
func (i *Issuer) CreatedAt() time.Time  { return i.createdAt }
func (i *Issuer) UpdatedAt() time.Time  { return i.updatedAt }

package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

// DateLayout is the calendar date format of expiration_date.
const DateLayout = "2006-01-02"

// Canonical statuses written by the service. Stored values may also be localized synonyms.
const (
	StatusActive  = "active"
	StatusUsed    = "used"
	StatusExpired = "expired"
)

// PaymentStatusPaid is written when a coupon is redeemed.
const PaymentStatusPaid = "paid"

// Unregistered marks a coupon nobody has registered yet.
const Unregistered = "미등록"

// Details are the caller-editable fields of a coupon.
type Details struct {
	Name           string
	Discount       string
	ExpirationDate string
	Store          string
	Status         string
	Code           string
	StandardPrice  decimal.NullDecimal
	RegisteredBy   string
	PaymentStatus  string
	AdditionalInfo string
}

// Coupon is the aggregate root for a discount coupon.
type Coupon struct {
	id             int64
	name           string
	discount       string
	expirationDate string
	store          string
	status         string
	code           string
	standardPrice  decimal.NullDecimal
	registeredBy   string
	paymentStatus  string
	additionalInfo string
	teamID         string
	issuerEmail    string
	issuerName     string
	createdAt      time.Time
	updatedAt      time.Time
}

// NewCoupon validates d and creates an unsaved coupon. An empty status becomes active.
func NewCoupon(d Details, teamID string) (*Coupon, error) {
	d, err := normalize(d)
	if err != nil {
		return nil, err
	}
	if d.Status == "" {
		d.Status = StatusActive
	}

	now := time.Now().UTC()
	c := &Coupon{teamID: strings.TrimSpace(teamID), createdAt: now, updatedAt: now}
	c.apply(d)
	return c, nil
}

// Reconstruct rebuilds a Coupon from persistence.
func Reconstruct(id int64, d Details, teamID, issuerEmail, issuerName string, createdAt, updatedAt time.Time) *Coupon {
	c := &Coupon{
		id:          id,
		teamID:      teamID,
		issuerEmail: issuerEmail,
		issuerName:  issuerName,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
	c.apply(d)
	return c
}

// Update replaces every editable field. An empty status keeps the current one.
func (c *Coupon) Update(d Details) error {
	d, err := normalize(d)
	if err != nil {
		return err
	}
	if d.Status == "" {
		d.Status = c.status
	}
	c.apply(d)
	c.updatedAt = time.Now().UTC()
	return nil
}

// MarkUsed redeems the coupon.
func (c *Coupon) MarkUsed() error {
	if c.IsUsed() {
		return domain.NewConflictError("coupon is already used")
	}
	c.status = StatusUsed
	c.paymentStatus = PaymentStatusPaid
	c.updatedAt = time.Now().UTC()
	return nil
}

// AssignTo records the backend issuer assignment on the loaded aggregate.
func (c *Coupon) AssignTo(email, name string) {
	c.issuerEmail = email
	c.issuerName = name
}

// SetID is called by the repository after insert.
func (c *Coupon) SetID(id int64) { c.id = id }

// IsUsed reports whether the status is a used synonym.
func (c *Coupon) IsUsed() bool { return NormalizeStatus(c.status) == StatusUsed }

// IsExpired reports whether the coupon is expired by status or by date.
func (c *Coupon) IsExpired(today time.Time) bool {
	if NormalizeStatus(c.status) == StatusExpired {
		return true
	}
	return DateBefore(c.expirationDate, today)
}

// IsRegistered reports whether somebody registered the coupon.
func (c *Coupon) IsRegistered() bool {
	r := strings.TrimSpace(c.registeredBy)
	return r != "" && r != Unregistered
}

// IsPaymentCompleted reports whether the payment status says paid.
func (c *Coupon) IsPaymentCompleted() bool {
	switch strings.ToLower(strings.TrimSpace(c.paymentStatus)) {
	case PaymentStatusPaid, "결제완료":
		return true
	}
	return false
}

// Details returns the editable fields.
func (c *Coupon) Details() Details {
	return Details{
		Name:           c.name,
		Discount:       c.discount,
		ExpirationDate: c.expirationDate,
		Store:          c.store,
		Status:         c.status,
		Code:           c.code,
		StandardPrice:  c.standardPrice,
		RegisteredBy:   c.registeredBy,
		PaymentStatus:  c.paymentStatus,
		AdditionalInfo: c.additionalInfo,
	}
}

func (c *Coupon) apply(d Details) {
	c.name = d.Name
	c.discount = d.Discount
	c.expirationDate = d.ExpirationDate
	c.store = d.Store
	c.status = d.Status
	c.code = d.Code
	c.standardPrice = d.StandardPrice
	c.registeredBy = d.RegisteredBy
	c.paymentStatus = d.PaymentStatus
	c.additionalInfo = d.AdditionalInfo
}

func normalize(d Details) (Details, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.ExpirationDate = strings.TrimSpace(d.ExpirationDate)
	d.Status = strings.TrimSpace(d.Status)
	d.Code = strings.TrimSpace(d.Code)
	d.Store = strings.TrimSpace(d.Store)

	if d.Name == "" {
		return d, domain.NewValidationError("name is required")
	}
	if d.ExpirationDate == "" {
		return d, domain.NewValidationError("expiration_date is required")
	}
	if _, err := ParseDate(d.ExpirationDate); err != nil {
		return d, domain.NewValidationError("expiration_date must be YYYY-MM-DD")
	}
	if d.StandardPrice.Valid && d.StandardPrice.Decimal.IsNegative() {
		return d, domain.NewValidationError("standard_price must not be negative")
	}
	return d, nil
}

// Getters.
func (c *Coupon) ID() int64                          { return c.id }
func (c *Coupon) Name() string                       { return c.name }
func (c *Coupon) Discount() string                   { return c.discount }
func (c *Coupon) ExpirationDate() string             { return c.expirationDate }
func (c *Coupon) Store() string                      { return c.store }
func (c *Coupon) Status() string                     { return c.status }
func (c *Coupon) Code() string                       { return c.code }
func (c *Coupon) StandardPrice() decimal.NullDecimal { return c.standardPrice }
func (c *Coupon) RegisteredBy() string               { return c.registeredBy }
func (c *Coupon) PaymentStatus() string              { return c.paymentStatus }
func (c *Coupon) AdditionalInfo() string             { return c.additionalInfo }
func (c *Coupon) TeamID() string                     { return c.teamID }
func (c *Coupon) IssuerEmail() string                { return c.issuerEmail }
func (c *Coupon) IssuerName() string                 { return c.issuerName }
func (c *Coupon) CreatedAt() time.Time               { return c.createdAt }
func (c *Coupon) UpdatedAt() time.Time               { return c.updatedAt }

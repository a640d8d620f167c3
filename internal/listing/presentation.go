package listing

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
)

// ExpiringSoonDays is the inclusive window of IsExpiringSoon.
const ExpiringSoonDays = 7

// Color is the badge color of a status.
type Color string

const (
	ColorSuccess Color = "success"
	ColorError   Color = "error"
	ColorDefault Color = "default"
	ColorPrimary Color = "primary"
)

// Tint is the background of a row.
type Tint string

const (
	TintNeutral Tint = "neutral"
	TintMuted   Tint = "muted"
	TintWarning Tint = "warning"
)

// StatusColor maps a free-text status to a badge color. Unknown statuses are primary.
func StatusColor(status string) Color {
	switch couponDomain.NormalizeStatus(status) {
	case couponDomain.StatusActive:
		return ColorSuccess
	case couponDomain.StatusExpired:
		return ColorError
	case couponDomain.StatusUsed:
		return ColorDefault
	default:
		return ColorPrimary
	}
}

// IsExpired reports date < today. Unparseable dates are not expired.
func IsExpired(date string, today time.Time) bool {
	return couponDomain.DateBefore(date, today)
}

// IsExpiringSoon reports 0 <= date - today <= 7 days. Unparseable dates are not expiring.
func IsExpiringSoon(date string, today time.Time) bool {
	days, ok := couponDomain.DaysUntil(date, today)
	return ok && days >= 0 && days <= ExpiringSoonDays
}

// RowTint mutes expired and used coupons and warns on coupons about to expire.
func RowTint(c client.Coupon, today time.Time) Tint {
	switch {
	case IsExpired(c.ExpirationDate, today), couponDomain.NormalizeStatus(c.Status) == couponDomain.StatusUsed:
		return TintMuted
	case IsExpiringSoon(c.ExpirationDate, today):
		return TintWarning
	default:
		return TintNeutral
	}
}

// OwnerSource says where a row's owner label came from.
type OwnerSource string

const (
	OwnerNone       OwnerSource = ""
	OwnerOverride   OwnerSource = "override"
	OwnerIssuer     OwnerSource = "issuer"
	OwnerRegistered OwnerSource = "registered_by"
)

// Row is a coupon prepared for display.
type Row struct {
	Coupon       client.Coupon
	Owner        string
	OwnerSource  OwnerSource
	StatusColor  Color
	Tint         Tint
	Expired      bool
	ExpiringSoon bool
	Editing      bool
	OwnerDraft   string
}

// ownerLabel prefers the local override, then the backend assignment, then registered_by.
func ownerLabel(c client.Coupon, override string) (string, OwnerSource) {
	switch {
	case override != "":
		return override, OwnerOverride
	case c.IssuerName != "":
		return c.IssuerName, OwnerIssuer
	case c.IssuerEmail != "":
		return c.IssuerEmail, OwnerIssuer
	case c.RegisteredBy != "":
		return c.RegisteredBy, OwnerRegistered
	default:
		return "", OwnerNone
	}
}

func buildRow(c client.Coupon, override string, today time.Time) Row {
	owner, source := ownerLabel(c, override)
	return Row{
		Coupon:       c,
		Owner:        owner,
		OwnerSource:  source,
		StatusColor:  StatusColor(c.Status),
		Tint:         RowTint(c, today),
		Expired:      IsExpired(c.ExpirationDate, today),
		ExpiringSoon: IsExpiringSoon(c.ExpirationDate, today),
	}
}

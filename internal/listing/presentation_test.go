package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
)

func TestStatusColor(t *testing.T) {
	tests := map[string]Color{
		"active":    ColorSuccess,
		"ACTIVE":    ColorSuccess,
		"활성":        ColorSuccess,
		"사용가능":      ColorSuccess,
		"Available": ColorSuccess,
		"expired":   ColorError,
		"만료":        ColorError,
		"만료됨":       ColorError,
		"used":      ColorDefault,
		"사용됨":       ColorDefault,
		"사용완료":      ColorDefault,
		"inactive":  ColorPrimary,
		"":          ColorPrimary,
	}
	for status, want := range tests {
		assert.Equal(t, want, StatusColor(status), status)
	}
}

func TestExpiryWindow(t *testing.T) {
	now := time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC)
	for offset := -3; offset <= 10; offset++ {
		date := now.AddDate(0, 0, offset).Format("2006-01-02")
		expired := IsExpired(date, now)
		soon := IsExpiringSoon(date, now)

		assert.Equal(t, offset < 0, expired, date)
		assert.Equal(t, offset >= 0 && offset <= 7, soon, date)
		assert.False(t, expired && soon, "expired is never expiring soon")
	}

	assert.False(t, IsExpired("someday", now))
	assert.False(t, IsExpiringSoon("someday", now))
}

func TestRowTint(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, TintMuted, RowTint(client.Coupon{ExpirationDate: "2026-10-13"}, now))
	assert.Equal(t, TintMuted, RowTint(client.Coupon{ExpirationDate: "2026-12-31", Status: "사용완료"}, now))
	assert.Equal(t, TintMuted, RowTint(client.Coupon{ExpirationDate: "2026-10-15", Status: "used"}, now))
	assert.Equal(t, TintWarning, RowTint(client.Coupon{ExpirationDate: "2026-10-21"}, now))
	assert.Equal(t, TintNeutral, RowTint(client.Coupon{ExpirationDate: "2026-10-22"}, now))
	assert.Equal(t, TintNeutral, RowTint(client.Coupon{ExpirationDate: "n/a"}, now))
}

func TestOwnerLabel(t *testing.T) {
	c := client.Coupon{IssuerName: "Kim", IssuerEmail: "kim@x.com", RegisteredBy: "desk"}
	owner, src := ownerLabel(c, "override")
	assert.Equal(t, "override", owner)
	assert.Equal(t, OwnerOverride, src)

	owner, src = ownerLabel(c, "")
	assert.Equal(t, "Kim", owner)
	assert.Equal(t, OwnerIssuer, src)

	owner, _ = ownerLabel(client.Coupon{IssuerEmail: "kim@x.com"}, "")
	assert.Equal(t, "kim@x.com", owner)

	owner, src = ownerLabel(client.Coupon{RegisteredBy: "desk"}, "")
	assert.Equal(t, "desk", owner)
	assert.Equal(t, OwnerRegistered, src)
}

func TestToggle(t *testing.T) {
	set := toggle(nil, "b")
	set = toggle(set, "a")
	set = toggle(set, "c")
	assert.Equal(t, []string{"a", "b", "c"}, set)

	before := set
	set = toggle(set, "b")
	assert.Equal(t, []string{"a", "c"}, set)
	assert.Equal(t, []string{"a", "b", "c"}, before, "toggle never mutates the input")
}

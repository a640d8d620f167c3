package client

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is a coupon as the API returns it. ID is zero before create.
type Coupon struct {
	ID             int64               `json:"id,omitempty"`
	Name           string              `json:"name"`
	Discount       string              `json:"discount"`
	ExpirationDate string              `json:"expiration_date"`
	Store          string              `json:"store"`
	Status         string              `json:"status"`
	Code           string              `json:"code"`
	StandardPrice  decimal.NullDecimal `json:"standard_price"`
	RegisteredBy   string              `json:"registered_by"`
	PaymentStatus  string              `json:"payment_status"`
	AdditionalInfo string              `json:"additional_info"`
	IssuerEmail    string              `json:"issuer_email,omitempty"`
	IssuerName     string              `json:"issuer_name,omitempty"`
	TeamID         string              `json:"team_id,omitempty"`
}

// CouponPage is one page of the coupon list.
type CouponPage struct {
	Coupons    []Coupon `json:"coupons"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	Size       int      `json:"size"`
	TotalPages int      `json:"total_pages"`
}

// CouponQuery selects a page of coupons. Zero values are left out of the request.
type CouponQuery struct {
	Page           int
	Size           int
	Search         string
	CouponNames    []string
	StoreNames     []string
	Issuers        []string
	OnlyUnassigned bool
	Team           string
}

// Values encodes the query. List filters are sent comma separated.
func (q CouponQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	setCSV(v, "coupon_names", q.CouponNames)
	setCSV(v, "store_names", q.StoreNames)
	setCSV(v, "issuer", q.Issuers)
	if q.OnlyUnassigned {
		v.Set("only_unassigned", "true")
	}
	return v
}

func setCSV(v url.Values, key string, values []string) {
	if len(values) > 0 {
		v.Set(key, strings.Join(values, ","))
	}
}

// Issuer is an issuer account.
type Issuer struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	CreatedAt   time.Time  `json:"created_at"`
	CouponCount int64      `json:"coupon_count"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	LoginCount  int        `json:"login_count"`
}

// IssuerInput carries the editable issuer fields.
type IssuerInput struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}

// LoginResult is the answer to an issuer login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IssuerName  string `json:"issuer_name"`
	ExpiresIn   int    `json:"expires_in"`
}

// Profile describes the logged-in issuer.
type Profile struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	TotalCoupons   int    `json:"total_coupons"`
	ActiveCoupons  int    `json:"active_coupons"`
	ExpiredCoupons int    `json:"expired_coupons"`
}

// Summary counts coupons by state.
type Summary struct {
	TotalCoupons     int `json:"total_coupons"`
	UsedCoupons      int `json:"used_coupons"`
	ExpiredCoupons   int `json:"expired_coupons"`
	AvailableCoupons int `json:"available_coupons"`
}

// GroupStat is a per-name or per-store statistics row.
type GroupStat struct {
	Name                  string  `json:"name"`
	Total                 int     `json:"total"`
	Used                  int     `json:"used"`
	Expired               int     `json:"expired"`
	Available             int     `json:"available"`
	RegisteredCount       int     `json:"registered_count"`
	PaymentCompletedCount int     `json:"payment_completed_count"`
	RegistrationRate      float64 `json:"registration_rate"`
	PaymentCompletionRate float64 `json:"payment_completion_rate"`
}

// Statistics is the statistics report.
type Statistics struct {
	TeamID           string      `json:"team_id,omitempty"`
	Summary          Summary     `json:"summary"`
	CouponStatistics []GroupStat `json:"coupon_statistics"`
	StoreStatistics  []GroupStat `json:"store_statistics"`
}

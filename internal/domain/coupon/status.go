package coupon

import (
	"sort"
	"strings"
	"time"
)

var statusSynonyms = map[string]string{
	"active":    StatusActive,
	"available": StatusActive,
	"활성":        StatusActive,
	"사용가능":      StatusActive,
	"expired":   StatusExpired,
	"만료":        StatusExpired,
	"만료됨":       StatusExpired,
	"used":      StatusUsed,
	"사용됨":       StatusUsed,
	"사용완료":      StatusUsed,
}

// NormalizeStatus maps free-text status onto active, used or expired.
// Unknown values return "".
func NormalizeStatus(status string) string {
	return statusSynonyms[strings.ToLower(strings.TrimSpace(status))]
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// Truncate returns midnight UTC of t's calendar day, read in t's own location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the whole days from today to date. ok is false for unparseable dates.
func DaysUntil(date string, today time.Time) (days int, ok bool) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, false
	}
	return int(d.Sub(Truncate(today)).Hours() / 24), true
}

// DateBefore reports whether date is strictly before today. Unparseable dates are never before.
func DateBefore(date string, today time.Time) bool {
	days, ok := DaysUntil(date, today)
	return ok && days < 0
}

// SynonymsOf returns every stored spelling of a canonical status.
func SynonymsOf(canonical string) []string {
	out := make([]string, 0, 4)
	for k, v := range statusSynonyms {
		if v == canonical {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

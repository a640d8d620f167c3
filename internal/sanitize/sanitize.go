// Package sanitize strips markup from free-text coupon and issuer fields before storage.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// Text removes every HTML element from input and trims it.
// Entities produced by the policy are decoded, so plain "<", ">" and "&"
// survive. The escaped form is kept only when decoding would yield markup
// the policy strips.
func Text(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	p := policy()
	cleaned := p.Sanitize(value)
	decoded := html.UnescapeString(cleaned)
	if html.UnescapeString(p.Sanitize(decoded)) != decoded {
		return strings.TrimSpace(cleaned)
	}
	return strings.TrimSpace(decoded)
}

// Strings applies Text to every element and drops blanks.
func Strings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := Text(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

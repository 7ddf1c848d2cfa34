// backend/src/mappings/normalizer.go
package mappings

import (
	"strings"
	"unicode"

	"github.com/username/tradefolio/backend/src/security/validation"
)

var headerBreakReplacer = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

// NormalizeHeaders canonicalizes raw column names: line breaks and tabs
// become spaces, non-printable characters are dropped, whitespace runs
// collapse to one space, edges are trimmed, and the result is title-cased.
// Output preserves length and order; distinct inputs may collide and any
// collision is the caller's problem.
func NormalizeHeaders(headers []string) []string {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}
	return normalized
}

// NormalizeHeader applies the normalization steps to a single header.
// Normalization is idempotent: applying it to its own output is a no-op.
func NormalizeHeader(h string) string {
	h = headerBreakReplacer.Replace(h)
	h = validation.StripUnprintable(h)
	h = strings.Join(strings.Fields(h), " ")
	return titleCase(h)
}

// titleCase uppercases the first letter of every letter run and lowercases
// the rest, so "buy/sell" becomes "Buy/Sell" and "ORDER ID" becomes
// "Order Id". Word boundaries are any non-letter rune, not just spaces.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

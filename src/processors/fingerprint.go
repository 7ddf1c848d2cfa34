// backend/src/processors/fingerprint.go
package processors

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const fingerprintDelimiter = "|"

// Fingerprint derives the idempotency key for one trade: a SHA-256 digest
// over broker, normalized symbol, the entry timestamp truncated to whole
// seconds, quantity, and the price rounded to 8 decimal digits. The
// truncation is deliberately coarse so near-duplicate timestamps from
// re-exports still collide.
func Fingerprint(broker, symbol string, entryTime time.Time, quantity, price *decimal.Decimal) string {
	qty := ""
	if quantity != nil {
		qty = canonicalDecimal(*quantity)
	}
	p := decimal.Zero
	if price != nil {
		p = *price
	}

	key := strings.Join([]string{
		broker,
		symbol,
		entryTime.Truncate(time.Second).Format(time.RFC3339),
		qty,
		canonicalDecimal(p.Round(8)),
	}, fingerprintDelimiter)

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// canonicalDecimal renders a decimal without trailing fraction zeros, so
// "10", "10.0" and "10.00" in the source all hash identically.
func canonicalDecimal(d decimal.Decimal) string {
	s := d.String()
	if !strings.ContainsRune(s, '.') {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

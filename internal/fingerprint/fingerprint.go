// Package fingerprint derives a stable, opaque client identifier from the
// resolved address and the User-Agent header. The identifier attributes
// analytics events to a distinct client without storing more PII than the
// headers already exposed. It plays no part in rate limiting.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// emptyMarker stands in for an absent input so that (addr, no UA) and
// (no addr, UA) hash differently from each other and from joined strings.
const emptyMarker = "-"

// Compute returns the fingerprint for a resolved address (empty string when
// resolution failed) and the raw User-Agent value. It returns false when
// both inputs are absent: with no signal at all there is nothing to
// attribute, and fabricating an identifier would just pool unrelated
// clients together.
//
// The function is pure: no randomness, no clock. Identical inputs yield the
// identical fingerprint across requests and across process restarts. The
// address must already be in canonical form (the resolver normalizes
// IPv4-mapped IPv6 to dotted IPv4), so equivalent encodings collapse to one
// fingerprint. MD5 is fine here; this is an identifier, not a credential.
func Compute(addr, userAgent string) (string, bool) {
	if addr == "" && userAgent == "" {
		return "", false
	}
	a, ua := addr, userAgent
	if a == "" {
		a = emptyMarker
	}
	if ua == "" {
		ua = emptyMarker
	}
	sum := md5.Sum([]byte(a + "|" + ua))
	return hex.EncodeToString(sum[:])[:16], true
}

// ClientName returns the coarse client name: the User-Agent product token up
// to (not including) the first slash. Used only for attribution display.
func ClientName(userAgent string) (string, bool) {
	if userAgent == "" {
		return "", false
	}
	name, _, _ := strings.Cut(userAgent, "/")
	return strings.TrimSpace(name), true
}

// Package clientip resolves a canonical client address from untrusted,
// inconsistently formatted proxy headers (X-Forwarded-For, Forwarded,
// X-Real-IP) and makes it available to the rate limiter and analytics
// via the request context.
package clientip

import "net/http"

// Header names consulted by Resolve, in precedence order.
const (
	headerXForwardedFor = "X-Forwarded-For"
	headerForwarded     = "Forwarded"
	headerXRealIP       = "X-Real-IP"
)

// Resolve returns the canonical client IP for a set of request headers, or
// false when no header yields a valid address.
//
// Precedence is X-Forwarded-For, then Forwarded, then X-Real-IP, taking the
// leftmost entry of each that validates. Checking the standardized Forwarded
// header after X-Forwarded-For, and X-Real-IP last, is deliberate: existing
// analytics keys on this ordering, so it is preserved for compatibility even
// though most proxies rank the headers the other way. Do not reorder.
//
// Resolve is total: any malformed input degrades to the next candidate or to
// absence, never to an error.
func Resolve(h http.Header) (string, bool) {
	if v := h.Get(headerXForwardedFor); v != "" {
		if ip, ok := firstValid(splitTokens(v)); ok {
			return ip, true
		}
	}
	if v := h.Get(headerForwarded); v != "" {
		if ip, ok := firstValid(forwardedCandidates(v)); ok {
			return ip, true
		}
	}
	// X-Real-IP nominally holds a single address but shows up as a
	// comma-joined chain often enough that it gets the full tokenizer.
	if v := h.Get(headerXRealIP); v != "" {
		if ip, ok := firstValid(splitTokens(v)); ok {
			return ip, true
		}
	}
	return "", false
}

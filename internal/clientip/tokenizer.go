package clientip

import (
	"net/netip"
	"strings"
)

// Proxy headers in the wild are messy: values arrive quoted, escaped,
// chained by several intermediaries, and sometimes wrapped in spoofed
// nested for= prefixes. Parsing is therefore error-tolerant tokenization
// followed by per-token validation; a malformed token never fails the
// whole header, it is simply skipped.

// maxNormalizeDepth bounds recursion through quote stripping, comma
// re-splitting, and nested for= prefixes. Deep enough for several levels
// of spoofed nesting, small enough that garbage input terminates fast.
const maxNormalizeDepth = 16

// candidate is a substring extracted from a header value, before
// normalization. quoted records whether it came from a quoted segment.
type candidate struct {
	text   string
	quoted bool
}

// splitTokens splits a header value on top-level commas. A comma inside a
// double-quoted span is not a separator. Escaped quotes (\") are kept
// verbatim so normalization can unescape them later. Unbalanced quotes do
// not abort the split; the dangling span simply runs to the end of the value.
func splitTokens(value string) []candidate {
	var out []candidate
	var b strings.Builder
	inQuotes := false
	sawQuote := false

	flush := func() {
		out = append(out, candidate{text: strings.TrimSpace(b.String()), quoted: sawQuote})
		b.Reset()
		sawQuote = false
	}

	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '\\' && i+1 < len(value) && value[i+1] == '"':
			b.WriteString(`\"`)
			i++
		case c == '"':
			inQuotes = !inQuotes
			sawQuote = true
			b.WriteByte(c)
		case c == ',' && !inQuotes:
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return out
}

// forwardedCandidates extracts the for= parameter from each comma-separated
// segment of a Forwarded (RFC 7239) header value. Within a segment,
// parameters are separated by semicolons and may appear in any order;
// when for= repeats inside one segment, the first occurrence governs.
func forwardedCandidates(value string) []candidate {
	var out []candidate
	for _, segment := range splitTokens(value) {
		if v, ok := forwardedFor(segment.text); ok {
			out = append(out, candidate{text: v, quoted: segment.quoted})
			continue
		}
		// A dangling or doubled quote can close a quoted for= value early,
		// leaving the tail of its chain as a bare fragment with no
		// parameters at all. Keep such fragments as candidates; validation
		// discards anything that is not an address.
		if !strings.ContainsRune(segment.text, '=') {
			out = append(out, candidate{text: segment.text, quoted: segment.quoted})
		}
	}
	return out
}

// forwardedFor scans one Forwarded segment left to right and returns the
// value of its first for= parameter.
func forwardedFor(segment string) (string, bool) {
	for _, param := range splitParams(segment) {
		name, value, ok := strings.Cut(param, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "for") {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// splitParams splits a Forwarded segment on semicolons, honoring quotes the
// same way splitTokens does for commas.
func splitParams(segment string) []string {
	var out []string
	var b strings.Builder
	inQuotes := false
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		switch {
		case c == '\\' && i+1 < len(segment) && segment[i+1] == '"':
			b.WriteString(`\"`)
			i++
		case c == '"':
			inQuotes = !inQuotes
			b.WriteByte(c)
		case c == ';' && !inQuotes:
			out = append(out, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	out = append(out, strings.TrimSpace(b.String()))
	return out
}

// normalizeCandidate turns one raw token into a canonical IP address string,
// or reports that the token carries no usable address. The stages are:
// unescape, strip quote runs, re-split on exposed commas, strip nested for=
// prefixes, strip brackets/port/zone, then validate. Keywords ("unknown"),
// hostnames, and obfuscated tokens all fail validation and are discarded.
func normalizeCandidate(raw string) (string, bool) {
	return normalize(raw, 0)
}

func normalize(raw string, depth int) (string, bool) {
	if depth > maxNormalizeDepth {
		return "", false
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Unescape \" and strip any run of leading/trailing quotes. Dangling or
	// doubled quotes are stripped rather than rejected. If that changed the
	// token, restart the pipeline: the unquoted content may itself be a
	// comma-joined chain or carry further prefixes.
	if u := strings.Trim(strings.ReplaceAll(s, `\"`, `"`), `"`); u != s {
		return normalize(u, depth+1)
	}

	// Quoted content may have contained a chain: for="unknown, 1.2.3.4".
	// Try each piece in order and keep the first that validates.
	if strings.ContainsRune(s, ',') {
		for _, part := range splitTokens(s) {
			if ip, ok := normalize(part.text, depth+1); ok {
				return ip, true
			}
		}
		return "", false
	}

	// Spoofed values nest for= recursively: for=for=1.2.3.4. Strip one
	// prefix per pass; recursion bounds total depth.
	if rest, ok := cutForPrefix(s); ok {
		return normalize(rest, depth+1)
	}

	return canonicalAddr(s)
}

// cutForPrefix removes a single leading for= prefix, case-insensitive, with
// optional whitespace around the equals sign.
func cutForPrefix(s string) (string, bool) {
	if len(s) < 4 || !strings.EqualFold(s[:3], "for") {
		return s, false
	}
	rest := strings.TrimSpace(s[3:])
	if !strings.HasPrefix(rest, "=") {
		return s, false
	}
	return strings.TrimSpace(rest[1:]), true
}

// canonicalAddr validates a bare token as an IPv4 or IPv6 address and
// returns its canonical form. It strips a [bracketed] wrapper, a :port
// suffix, and an IPv6 %zone before parsing. An IPv4-mapped IPv6 address
// (::ffff:a.b.c.d or its hex form) canonicalizes to plain dotted IPv4 so
// that both encodings land on the same limiter bucket and fingerprint.
func canonicalAddr(s string) (string, bool) {
	host := s

	if strings.HasPrefix(host, "[") {
		// [addr] or [addr]:port; an unclosed bracket still yields the inside.
		if end := strings.IndexByte(host, ']'); end >= 0 {
			host = host[1:end]
		} else {
			host = host[1:]
		}
	} else if strings.Count(host, ":") == 1 {
		// Exactly one colon means IPv4:port; more than one is bare IPv6.
		host = host[:strings.IndexByte(host, ':')]
	}

	host, _, _ = strings.Cut(host, "%")

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return "", false
	}
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	return addr.String(), true
}

// firstValid returns the leftmost candidate that normalizes to a valid
// address. Evaluation stops at the first success.
func firstValid(cands []candidate) (string, bool) {
	for _, c := range cands {
		if ip, ok := normalizeCandidate(c.text); ok {
			return ip, true
		}
	}
	return "", false
}

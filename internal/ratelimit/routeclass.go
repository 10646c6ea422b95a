package ratelimit

import "strings"

// Class is a bucket of endpoints sharing one quota.
type Class int

const (
	// ClassDefault covers everything without a more specific class, e.g.
	// feed and artwork paths.
	ClassDefault Class = iota
	// ClassAdminRead covers GET/HEAD/OPTIONS under the admin path.
	ClassAdminRead
	// ClassAdminWrite covers mutating methods under the admin path.
	ClassAdminWrite
	// ClassMedia covers the media-serving path.
	ClassMedia
)

// String returns the class name used in logs, metrics, and analytics events.
func (c Class) String() string {
	switch c {
	case ClassAdminRead:
		return "admin-read"
	case ClassAdminWrite:
		return "admin-write"
	case ClassMedia:
		return "media"
	default:
		return "default"
	}
}

// Path prefixes the classifier keys on. The route table in the api package
// mounts its handlers under the same prefixes.
const (
	AdminPathPrefix  = "/admin"
	MediaPathPrefix  = "/media"
	StaticPathPrefix = "/static"
	HealthPath       = "/healthz"
)

// ClassifyRoute maps a request to its quota class. The second return is
// false for exempt paths: health checks (including the one under the admin
// path) and static assets are never limited, never counted, and never carry
// rate-limit headers.
func ClassifyRoute(method, path string) (Class, bool) {
	if path == HealthPath || pathUnder(path, StaticPathPrefix) {
		return ClassDefault, false
	}
	if pathUnder(path, AdminPathPrefix) {
		if path == AdminPathPrefix+HealthPath {
			return ClassDefault, false
		}
		switch method {
		case "GET", "HEAD", "OPTIONS":
			return ClassAdminRead, true
		default:
			return ClassAdminWrite, true
		}
	}
	if pathUnder(path, MediaPathPrefix) {
		return ClassMedia, true
	}
	return ClassDefault, true
}

// pathUnder reports whether path equals prefix or sits below it, without
// matching sibling prefixes like /mediafoo.
func pathUnder(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation limits for URL parameters and form input
const (
	MaxSlugLength  = 64  // Max feed slug length
	MaxTitleLength = 256 // Max feed/episode title length
	MaxKeyLength   = 512 // Max media object key length
)

// slugRegex matches lowercase URL-safe slugs
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidateSlug validates a feed slug from URL parameters or forms
// Returns error if the slug is invalid
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(slug) > MaxSlugLength {
		return fmt.Errorf("slug must be at most %d characters", MaxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be lowercase letters, digits, and hyphens")
	}
	return nil
}

// ValidateTitle validates a feed or episode title
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLength {
		return fmt.Errorf("title must be at most %d characters", MaxTitleLength)
	}
	if !utf8.ValidString(title) {
		return fmt.Errorf("title must be valid UTF-8")
	}
	return nil
}

// ValidateMediaKey validates an object storage key from URL parameters.
// Keys must not escape the media prefix via path traversal.
func ValidateMediaKey(key string) error {
	if key == "" {
		return fmt.Errorf("media key is required")
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("media key must be at most %d characters", MaxKeyLength)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("media key must be valid UTF-8")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("media key must not contain path traversal")
	}
	return nil
}

package db

import "errors"

// Sentinel errors for database operations
var (
	// ErrFeedNotFound indicates the requested feed does not exist
	ErrFeedNotFound = errors.New("feed not found")

	// ErrEpisodeNotFound indicates the requested episode does not exist
	ErrEpisodeNotFound = errors.New("episode not found")

	// ErrSlugTaken indicates a feed with the same slug already exists
	ErrSlugTaken = errors.New("feed slug already exists")
)

package models

import "time"

// Feed is a published show with its episodes served as RSS.
type Feed struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	Link        string    `json:"link,omitempty"`
	ImageKey    *string   `json:"image_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Episode is a single media entry in a feed. MediaKey is the object
// storage key the enclosure is served from.
type Episode struct {
	ID          string     `json:"id"`
	FeedID      string     `json:"feed_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	MediaKey    string     `json:"media_key"`
	MediaType   string     `json:"media_type"`
	SizeBytes   int64      `json:"size_bytes"`
	Duration    *int64     `json:"duration_seconds,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateFeedRequest is the payload for creating or updating a feed.
type CreateFeedRequest struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Link        string `json:"link"`
}

// CreateEpisodeRequest is the payload for adding an episode to a feed.
type CreateEpisodeRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	MediaKey    string     `json:"media_key"`
	MediaType   string     `json:"media_type"`
	SizeBytes   int64      `json:"size_bytes"`
	Duration    *int64     `json:"duration_seconds,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ImportRequest is the payload for the bulk import endpoint. Bodies may
// arrive zstd-compressed.
type ImportRequest struct {
	Feed     CreateFeedRequest      `json:"feed"`
	Episodes []CreateEpisodeRequest `json:"episodes"`
}

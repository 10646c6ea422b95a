package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/audiocove/audiocove/internal/models"
)

// CreateFeed inserts a new feed and returns it.
// Returns ErrSlugTaken if the slug is already in use.
func (db *DB) CreateFeed(ctx context.Context, req models.CreateFeedRequest) (*models.Feed, error) {
	now := time.Now().UTC()
	feed := models.Feed{
		ID:          uuid.NewString(),
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		Author:      req.Author,
		Link:        req.Link,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO feeds (id, slug, title, description, author, link, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query,
		feed.ID, feed.Slug, feed.Title, feed.Description, feed.Author, feed.Link, feed.CreatedAt, feed.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}

	return &feed, nil
}

// GetFeedBySlug retrieves a feed by its slug
func (db *DB) GetFeedBySlug(ctx context.Context, slug string) (*models.Feed, error) {
	query := `SELECT id, slug, title, description, author, link, image_key, created_at, updated_at
	          FROM feeds WHERE slug = ?`

	var feed models.Feed
	err := db.conn.QueryRowContext(ctx, query, slug).Scan(
		&feed.ID,
		&feed.Slug,
		&feed.Title,
		&feed.Description,
		&feed.Author,
		&feed.Link,
		&feed.ImageKey,
		&feed.CreatedAt,
		&feed.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrFeedNotFound
		}
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

// ListFeeds returns all feeds ordered by creation time, newest first
func (db *DB) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	query := `SELECT id, slug, title, description, author, link, image_key, created_at, updated_at
	          FROM feeds ORDER BY created_at DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []models.Feed
	for rows.Next() {
		var feed models.Feed
		if err := rows.Scan(
			&feed.ID, &feed.Slug, &feed.Title, &feed.Description,
			&feed.Author, &feed.Link, &feed.ImageKey, &feed.CreatedAt, &feed.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feeds: %w", err)
	}

	return feeds, nil
}

// UpdateFeed updates feed metadata by slug
func (db *DB) UpdateFeed(ctx context.Context, slug string, req models.CreateFeedRequest) (*models.Feed, error) {
	query := `UPDATE feeds SET title = ?, description = ?, author = ?, link = ?, updated_at = ?
	          WHERE slug = ?`

	result, err := db.conn.ExecContext(ctx, query,
		req.Title, req.Description, req.Author, req.Link, time.Now().UTC(), slug)
	if err != nil {
		return nil, fmt.Errorf("failed to update feed: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrFeedNotFound
	}

	return db.GetFeedBySlug(ctx, slug)
}

// DeleteFeed deletes a feed and all its episodes
func (db *DB) DeleteFeed(ctx context.Context, slug string) error {
	feed, err := db.GetFeedBySlug(ctx, slug)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ON DELETE CASCADE requires foreign_keys pragma; delete explicitly
	// so behavior does not depend on connection settings.
	if _, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE feed_id = ?`, feed.ID); err != nil {
		return fmt.Errorf("failed to delete episodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, feed.ID); err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CreateEpisode inserts a new episode into a feed identified by slug
func (db *DB) CreateEpisode(ctx context.Context, slug string, req models.CreateEpisodeRequest) (*models.Episode, error) {
	feed, err := db.GetFeedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	publishedAt := now
	if req.PublishedAt != nil {
		publishedAt = req.PublishedAt.UTC()
	}

	episode := models.Episode{
		ID:          uuid.NewString(),
		FeedID:      feed.ID,
		Title:       req.Title,
		Description: req.Description,
		MediaKey:    req.MediaKey,
		MediaType:   req.MediaType,
		SizeBytes:   req.SizeBytes,
		Duration:    req.Duration,
		PublishedAt: publishedAt,
		CreatedAt:   now,
	}

	query := `INSERT INTO episodes (id, feed_id, title, description, media_key, media_type, size_bytes, duration, published_at, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.conn.ExecContext(ctx, query,
		episode.ID, episode.FeedID, episode.Title, episode.Description,
		episode.MediaKey, episode.MediaType, episode.SizeBytes, episode.Duration,
		episode.PublishedAt, episode.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create episode: %w", err)
	}

	return &episode, nil
}

// ListEpisodes returns the episodes of a feed, newest first
func (db *DB) ListEpisodes(ctx context.Context, slug string) ([]models.Episode, error) {
	feed, err := db.GetFeedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, feed_id, title, description, media_key, media_type, size_bytes, duration, published_at, created_at
	          FROM episodes WHERE feed_id = ? ORDER BY published_at DESC`

	rows, err := db.conn.QueryContext(ctx, query, feed.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []models.Episode
	for rows.Next() {
		var ep models.Episode
		if err := rows.Scan(
			&ep.ID, &ep.FeedID, &ep.Title, &ep.Description,
			&ep.MediaKey, &ep.MediaType, &ep.SizeBytes, &ep.Duration,
			&ep.PublishedAt, &ep.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, ep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating episodes: %w", err)
	}

	return episodes, nil
}

// DeleteEpisode deletes a single episode from a feed
func (db *DB) DeleteEpisode(ctx context.Context, slug, episodeID string) error {
	feed, err := db.GetFeedBySlug(ctx, slug)
	if err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM episodes WHERE id = ? AND feed_id = ?`, episodeID, feed.ID)
	if err != nil {
		return fmt.Errorf("failed to delete episode: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrEpisodeNotFound
	}

	return nil
}

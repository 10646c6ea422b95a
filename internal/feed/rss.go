package feed

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gorilla/feeds"

	"github.com/audiocove/audiocove/internal/models"
)

// RenderRSS builds the RSS 2.0 document for a feed. Media enclosure
// URLs are rooted at baseURL, which must not end with a slash.
func RenderRSS(f *models.Feed, episodes []models.Episode, baseURL string) (string, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	link := f.Link
	if link == "" {
		link = fmt.Sprintf("%s/feeds/%s", baseURL, f.Slug)
	}

	out := &feeds.Feed{
		Title:       f.Title,
		Link:        &feeds.Link{Href: link},
		Description: f.Description,
		Author:      &feeds.Author{Name: f.Author},
		Created:     f.CreatedAt,
		Updated:     f.UpdatedAt,
	}

	for _, ep := range episodes {
		item := &feeds.Item{
			Id:          ep.ID,
			Title:       ep.Title,
			Description: ep.Description,
			Link:        &feeds.Link{Href: mediaURL(baseURL, ep.MediaKey)},
			Created:     ep.PublishedAt,
			Enclosure: &feeds.Enclosure{
				Url:    mediaURL(baseURL, ep.MediaKey),
				Length: strconv.FormatInt(ep.SizeBytes, 10),
				Type:   ep.MediaType,
			},
		}
		out.Items = append(out.Items, item)
	}

	rss, err := out.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to render RSS: %w", err)
	}
	return rss, nil
}

func mediaURL(baseURL, key string) string {
	return fmt.Sprintf("%s/media/%s", baseURL, key)
}

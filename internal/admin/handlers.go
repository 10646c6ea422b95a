package admin

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"github.com/audiocove/audiocove/internal/db"
	"github.com/audiocove/audiocove/internal/logger"
	"github.com/audiocove/audiocove/internal/models"
	"github.com/audiocove/audiocove/internal/storage"
	"github.com/audiocove/audiocove/internal/validation"
)

const (
	// DatabaseTimeout is the maximum duration for database operations
	DatabaseTimeout = 5 * time.Second

	// MaxUploadBytes caps episode uploads at 512 MiB
	MaxUploadBytes = 512 << 20

	// topClientsWindow is how far back the dashboard traffic table looks
	topClientsWindow = 24 * time.Hour
)

// Handlers holds dependencies for admin handlers
type Handlers struct {
	DB      *db.DB
	Storage storage.ObjectStore
}

// NewHandlers creates admin handlers with dependencies
func NewHandlers(database *db.DB, store storage.ObjectStore) *Handlers {
	return &Handlers{
		DB:      database,
		Storage: store,
	}
}

// HandleHealth reports admin subsystem health. Exempt from rate limits.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok\n")
}

// HandleDashboard renders the admin page: feeds with management forms
// and the most active clients over the last day.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DatabaseTimeout)
	defer cancel()

	feeds, err := h.DB.ListFeeds(ctx)
	if err != nil {
		logger.Error("failed to list feeds", "error", err)
		http.Error(w, "Failed to list feeds", http.StatusInternalServerError)
		return
	}

	clients, err := h.DB.TopClients(ctx, time.Now().UTC().Add(-topClientsWindow), 20)
	if err != nil {
		logger.Error("failed to load client stats", "error", err)
		http.Error(w, "Failed to load client stats", http.StatusInternalServerError)
		return
	}

	csrfToken := csrf.Token(r)
	message := r.URL.Query().Get("message")
	errorMsg := r.URL.Query().Get("error")

	var feedRows string
	for _, f := range feeds {
		feedRows += fmt.Sprintf(`
			<tr>
				<td><a href="/feeds/%s/rss">%s</a></td>
				<td>%s</td>
				<td>%s</td>
				<td>%s</td>
				<td class="actions">
					<form method="POST" action="/admin/feeds/%s/delete" class="inline-form" onsubmit="return confirm('Delete feed %s and all its episodes?');">
						<input type="hidden" name="gorilla.csrf.Token" value="%s">
						<button type="submit" class="btn btn-danger">Delete</button>
					</form>
				</td>
			</tr>`,
			url.PathEscape(f.Slug),
			html.EscapeString(f.Slug),
			html.EscapeString(f.Title),
			html.EscapeString(f.Author),
			f.CreatedAt.Format("Jan 2, 2006"),
			url.PathEscape(f.Slug),
			html.EscapeString(f.Slug),
			csrfToken,
		)
	}

	var clientRows string
	for _, c := range clients {
		clientRows += fmt.Sprintf(`
			<tr>
				<td><code>%s</code></td>
				<td>%s</td>
				<td>%s</td>
				<td>%d</td>
				<td>%d</td>
			</tr>`,
			html.EscapeString(c.Fingerprint),
			html.EscapeString(c.ClientName),
			html.EscapeString(c.ClientIP),
			c.Requests,
			c.Errors,
		)
	}

	var flashHTML string
	if message != "" {
		flashHTML = fmt.Sprintf(`<div class="flash flash-success">%s</div>`, html.EscapeString(message))
	}
	if errorMsg != "" {
		flashHTML = fmt.Sprintf(`<div class="flash flash-error">%s</div>`, html.EscapeString(errorMsg))
	}

	page := fmt.Sprintf(dashboardTemplate, flashHTML, feedRows, csrfToken, clientRows)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, page)
}

// HandleCreateFeed processes the new-feed form
func (h *Handlers) HandleCreateFeed(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "Invalid form data")
		return
	}

	req := models.CreateFeedRequest{
		Slug:        r.FormValue("slug"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Author:      r.FormValue("author"),
		Link:        r.FormValue("link"),
	}

	if err := validation.ValidateSlug(req.Slug); err != nil {
		redirectWithError(w, r, err.Error())
		return
	}
	if err := validation.ValidateTitle(req.Title); err != nil {
		redirectWithError(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DatabaseTimeout)
	defer cancel()

	if _, err := h.DB.CreateFeed(ctx, req); err != nil {
		if errors.Is(err, db.ErrSlugTaken) {
			redirectWithError(w, r, "A feed with that slug already exists")
			return
		}
		logger.Error("failed to create feed", "error", err, "slug", req.Slug)
		redirectWithError(w, r, "Failed to create feed")
		return
	}

	redirectWithMessage(w, r, "Feed created")
}

// HandleDeleteFeed removes a feed, its episodes, and their media objects
func (h *Handlers) HandleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := validation.ValidateSlug(slug); err != nil {
		redirectWithError(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DatabaseTimeout)
	defer cancel()

	episodes, err := h.DB.ListEpisodes(ctx, slug)
	if err != nil {
		if errors.Is(err, db.ErrFeedNotFound) {
			redirectWithError(w, r, "Feed not found")
			return
		}
		logger.Error("failed to list episodes for delete", "error", err, "slug", slug)
		redirectWithError(w, r, "Failed to delete feed")
		return
	}

	if err := h.DB.DeleteFeed(ctx, slug); err != nil {
		logger.Error("failed to delete feed", "error", err, "slug", slug)
		redirectWithError(w, r, "Failed to delete feed")
		return
	}

	// Media cleanup is best-effort: the feed is already gone and an
	// orphaned object must not fail the request.
	for _, ep := range episodes {
		if err := h.Storage.Delete(r.Context(), ep.MediaKey); err != nil {
			logger.Warn("failed to delete media object", "error", err, "key", ep.MediaKey)
		}
	}

	redirectWithMessage(w, r, "Feed deleted")
}

// HandleUploadEpisode accepts a multipart episode upload: the media
// file is stored first, then the episode row is created.
func (h *Handlers) HandleUploadEpisode(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := validation.ValidateSlug(slug); err != nil {
		redirectWithError(w, r, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		redirectWithError(w, r, "Upload too large or malformed")
		return
	}

	title := r.FormValue("title")
	if err := validation.ValidateTitle(title); err != nil {
		redirectWithError(w, r, err.Error())
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		redirectWithError(w, r, "Media file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("failed to read upload", "error", err)
		redirectWithError(w, r, "Failed to read upload")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%s%s", slug, uuid.NewString(), path.Ext(header.Filename))
	if err := h.Storage.Upload(r.Context(), key, contentType, data); err != nil {
		logger.Error("failed to store media object", "error", err, "key", key)
		redirectWithError(w, r, "Failed to store media")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DatabaseTimeout)
	defer cancel()

	_, err = h.DB.CreateEpisode(ctx, slug, models.CreateEpisodeRequest{
		Title:       title,
		Description: r.FormValue("description"),
		MediaKey:    key,
		MediaType:   contentType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		// Roll back the orphaned object.
		if delErr := h.Storage.Delete(r.Context(), key); delErr != nil {
			logger.Warn("failed to delete orphaned media object", "error", delErr, "key", key)
		}
		if errors.Is(err, db.ErrFeedNotFound) {
			redirectWithError(w, r, "Feed not found")
			return
		}
		logger.Error("failed to create episode", "error", err, "slug", slug)
		redirectWithError(w, r, "Failed to create episode")
		return
	}

	redirectWithMessage(w, r, "Episode uploaded")
}

func redirectWithMessage(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/admin?message="+url.QueryEscape(message), http.StatusSeeOther)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/admin?error="+url.QueryEscape(message), http.StatusSeeOther)
}

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/audiocove/audiocove/internal/db"
	"github.com/audiocove/audiocove/internal/feed"
	"github.com/audiocove/audiocove/internal/logger"
	"github.com/audiocove/audiocove/internal/storage"
	"github.com/audiocove/audiocove/internal/validation"
)

// handleListFeeds returns all published feeds
func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.db.ListFeeds(r.Context())
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to list feeds", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list feeds")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"feeds": feeds,
	})
}

// handleGetFeed returns one feed with its episodes
func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := validation.ValidateSlug(slug); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.db.GetFeedBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, db.ErrFeedNotFound) {
			respondError(w, http.StatusNotFound, "Feed not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to get feed", "error", err, "slug", slug)
		respondError(w, http.StatusInternalServerError, "Failed to get feed")
		return
	}

	episodes, err := s.db.ListEpisodes(r.Context(), slug)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to list episodes", "error", err, "slug", slug)
		respondError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"feed":     f,
		"episodes": episodes,
	})
}

// handleFeedRSS renders the RSS document for a feed
func (s *Server) handleFeedRSS(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := validation.ValidateSlug(slug); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.db.GetFeedBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, db.ErrFeedNotFound) {
			respondError(w, http.StatusNotFound, "Feed not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to get feed", "error", err, "slug", slug)
		respondError(w, http.StatusInternalServerError, "Failed to get feed")
		return
	}

	episodes, err := s.db.ListEpisodes(r.Context(), slug)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to list episodes", "error", err, "slug", slug)
		respondError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}

	rss, err := feed.RenderRSS(f, episodes, s.baseURL(r))
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to render RSS", "error", err, "slug", slug)
		respondError(w, http.StatusInternalServerError, "Failed to render feed")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, rss)
}

// handleMedia streams a media object. The key is the full wildcard
// remainder so keys may contain slashes.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if err := validation.ValidateMediaKey(key); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := s.storage.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "Media not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to open media object", "error", err, "key", key)
		respondError(w, http.StatusBadGateway, "Media storage unavailable")
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, obj.Body); err != nil {
		// Headers are already out; nothing to send the client.
		logger.Ctx(r.Context()).Warn("media stream interrupted", "error", err, "key", key)
	}
}

func (s *Server) baseURL(r *http.Request) string {
	if s.config.BaseURL != "" {
		return s.config.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

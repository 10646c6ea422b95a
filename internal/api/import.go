package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/audiocove/audiocove/internal/db"
	"github.com/audiocove/audiocove/internal/logger"
	"github.com/audiocove/audiocove/internal/models"
	"github.com/audiocove/audiocove/internal/validation"
)

// maxImportBytes caps decoded import payloads at 64 MiB.
const maxImportBytes = 64 << 20

// handleImport creates a feed and its episodes in one request. Episode
// media must already exist in object storage under the given keys; the
// usual flow is uploading objects first, then importing the metadata.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRequest

	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := validation.ValidateSlug(req.Feed.Slug); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateTitle(req.Feed.Title); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, ep := range req.Episodes {
		if err := validation.ValidateTitle(ep.Title); err != nil {
			respondError(w, http.StatusBadRequest, "episode: "+err.Error())
			return
		}
		if err := validation.ValidateMediaKey(ep.MediaKey); err != nil {
			respondError(w, http.StatusBadRequest, "episode: "+err.Error())
			return
		}
	}

	f, err := s.db.CreateFeed(r.Context(), req.Feed)
	if err != nil {
		if errors.Is(err, db.ErrSlugTaken) {
			respondError(w, http.StatusConflict, "A feed with that slug already exists")
			return
		}
		logger.Ctx(r.Context()).Error("import: failed to create feed", "error", err, "slug", req.Feed.Slug)
		respondError(w, http.StatusInternalServerError, "Failed to create feed")
		return
	}

	created := 0
	for _, ep := range req.Episodes {
		if _, err := s.db.CreateEpisode(r.Context(), f.Slug, ep); err != nil {
			logger.Ctx(r.Context()).Error("import: failed to create episode", "error", err, "slug", f.Slug, "title", ep.Title)
			respondError(w, http.StatusInternalServerError, "Failed to create episode")
			return
		}
		created++
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"feed":             f,
		"episodes_created": created,
	})
}

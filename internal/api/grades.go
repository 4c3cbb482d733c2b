package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sitegrade/sitegrade/internal/cache"
	"github.com/sitegrade/sitegrade/internal/grade"
)

type gradeRequest struct {
	URL string `json:"url"`
}

// streamGrade runs one grading pass and streams its observations as NDJSON,
// one object per line, flushed as they arrive. A cache hit yields a single
// terminal line.
func (s *Server) streamGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	site, err := grade.Normalize(req.URL)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(s.logger, w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), streamBudget)
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	for obs := range s.runner.Run(ctx, site) {
		if err := enc.Encode(obs); err != nil {
			s.logger.Warn("stream write failed, client gone",
				zap.String("site", site), zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

// getGrade returns the cached entry for a site, or 404 when none exists.
func (s *Server) getGrade(w http.ResponseWriter, r *http.Request) {
	site, err := grade.Normalize(chi.URLParam(r, "site"))
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.store.Lookup(r.Context(), site)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		writeError(s.logger, w, http.StatusNotFound, "no grading report for this site")
	case err != nil:
		s.logger.Error("cache lookup failed", zap.String("site", site), zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "cache lookup failed")
	default:
		writeJSON(s.logger, w, http.StatusOK, entry)
	}
}

package http

import (
	"net/http"

	"log/slog"
)

// handleOverview serves the composed financial snapshot. Responses are
// cached per owner; mutations invalidate through the feed hub, and the TTL
// bounds staleness when nothing publishes.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if cached, found := s.overviewCache.Get(owner); found {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	ov, err := s.overview.BuildOverview(r.Context(), owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "Overview build failed", "owner_id", owner, "error", err)
		writeStorageError(w, err)
		return
	}

	s.overviewCache.Set(owner, ov)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, ov)
}

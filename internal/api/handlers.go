package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

const defaultListLimit = 100

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondCatalogError maps catalog errors to status codes
func (s *Server) respondCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "track not found")
		return
	}
	s.log.Errorf("Catalog error: %v", err)
	s.respondError(w, http.StatusInternalServerError, "catalog failure")
}

func (s *Server) trackID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid track id")
		return uuid.Nil, false
	}
	return id, true
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.CountTracks(r.Context())
	if err != nil {
		s.log.Errorf("Health check failed: %v", err)
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		TrackCount:   n,
	})
}

// handleListTracks handles GET /api/tracks?limit=N
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	tracks, err := s.catalog.ListTracks(r.Context(), limit)
	if err != nil {
		s.respondCatalogError(w, err)
		return
	}
	total, err := s.catalog.CountTracks(r.Context())
	if err != nil {
		s.respondCatalogError(w, err)
		return
	}

	resp := ListTracksResponse{Tracks: make([]TrackDTO, 0, len(tracks)), Total: total}
	for _, t := range tracks {
		resp.Tracks = append(resp.Tracks, trackDTO(t))
	}
	resp.Count = len(resp.Tracks)
	s.respondJSON(w, http.StatusOK, resp)
}

// handleGetTrack handles GET /api/tracks/{id}
func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackID(w, r)
	if !ok {
		return
	}
	t, err := s.catalog.GetTrack(r.Context(), id)
	if err != nil {
		s.respondCatalogError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, trackDTO(t))
}

// handleGetAudio handles GET /api/tracks/{id}/audio
func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackID(w, r)
	if !ok {
		return
	}
	t, err := s.catalog.GetTrack(r.Context(), id)
	if err != nil {
		s.respondCatalogError(w, err)
		return
	}
	w.Header().Set("Content-Type", t.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(t.Bytes)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(t.Bytes); err != nil {
		s.log.Warnf("Failed to write audio for %s: %v", id, err)
	}
}

// handleGetMatches handles GET /api/tracks/{id}/matches
func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackID(w, r)
	if !ok {
		return
	}
	matches, err := s.catalog.GetMatches(r.Context(), id)
	if err != nil {
		s.respondCatalogError(w, err)
		return
	}
	resp := ListMatchesResponse{TrackID: id.String(), Matches: make([]MatchDTO, 0, len(matches))}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, MatchDTO{MatchedAt: m.MatchedAt, Score: m.Score})
	}
	resp.Count = len(resp.Matches)
	s.respondJSON(w, http.StatusOK, resp)
}

// handleDeleteTrack handles DELETE /api/tracks/{id}
func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackID(w, r)
	if !ok {
		return
	}
	if err := s.catalog.DeleteTrack(r.Context(), id); err != nil {
		s.respondCatalogError(w, err)
		return
	}
	s.log.Infof("Deleted track %s", id)
	s.respondJSON(w, http.StatusOK, DeleteTrackResponse{Message: "track deleted", ID: id.String()})
}

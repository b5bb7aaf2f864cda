package api

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

// TrackDTO represents a track in API responses
type TrackDTO struct {
	ID          string    `json:"id"`
	AddedAt     time.Time `json:"added_at"`
	Kind        string    `json:"kind"`
	Artist      string    `json:"artist"`
	Title       string    `json:"title"`
	ContentType string    `json:"content_type,omitempty"`
	Size        string    `json:"size,omitempty"`
}

func trackDTO(t models.Track) TrackDTO {
	dto := TrackDTO{
		ID:          t.ID.String(),
		AddedAt:     t.AddedAt,
		Kind:        t.Kind.String(),
		Artist:      t.Artist,
		Title:       t.Title,
		ContentType: t.ContentType,
	}
	if len(t.Bytes) > 0 {
		dto.Size = humanize.Bytes(uint64(len(t.Bytes)))
	}
	return dto
}

// ListTracksResponse is the response for GET /api/tracks
type ListTracksResponse struct {
	Tracks []TrackDTO `json:"tracks"`
	Count  int        `json:"count"`
	Total  int64      `json:"total"`
}

// MatchDTO is one sighting of a track
type MatchDTO struct {
	MatchedAt time.Time `json:"matched_at"`
	Score     int       `json:"score"`
}

// ListMatchesResponse is the response for GET /api/tracks/{id}/matches
type ListMatchesResponse struct {
	TrackID string     `json:"track_id"`
	Matches []MatchDTO `json:"matches"`
	Count   int        `json:"count"`
}

// DeleteTrackResponse is the response for DELETE /api/tracks/{id}
type DeleteTrackResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// HealthResponse reports service health and catalog size
type HealthResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path,omitempty"`
	TrackCount   int64  `json:"track_count"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/RadioDNA/internal/playlist"
	"github.com/himanishpuri/RadioDNA/pkg/models"
)

// Source fetches the live playlist and its segments.
type Source interface {
	Fetch(ctx context.Context, playlistURL string) (*playlist.Playlist, error)
	Download(ctx context.Context, uri string) (playlist.Audio, error)
}

// Oracle is the remote fingerprint service.
type Oracle interface {
	Query(ctx context.Context, audio []byte, filename string, minConfidence float64) ([]models.FingerprintResult, error)
	Insert(ctx context.Context, audio []byte, filename string, id uuid.UUID, artist, title string) error
}

// Catalog is the write side of the track catalog.
type Catalog interface {
	InsertTrack(ctx context.Context, t models.Track) error
	InsertMatch(ctx context.Context, id uuid.UUID, score int, at time.Time) error
	DeleteTrack(ctx context.Context, id uuid.UUID) error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

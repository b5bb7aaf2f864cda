// Package storage is the catalog of every track heard on the stream: its
// metadata, its audio bytes and the history of later sightings.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

const DefaultDBFile = "radiodna.sqlite3"
const errDBClientNil = "db client is nil"

// DBClient owns the single SQLite connection of the catalog. Callers only see
// the catalog operations below, never the connection.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Track struct {
	ID      string `gorm:"primaryKey;type:varchar(36)"`
	AddedAt int64  `gorm:"not null;index:idx_tracks_added_at"` // unix millis
	Kind    string `gorm:"type:varchar(16);not null"`
	Artist  string `gorm:"not null;index:idx_track_meta,priority:1"`
	Title   string `gorm:"not null;index:idx_track_meta,priority:2"`

	Audio   *TrackAudio  `gorm:"foreignKey:ID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
	Matches []TrackMatch `gorm:"foreignKey:TrackID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

func (Track) TableName() string { return "tracks" }

type TrackAudio struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	ContentType string `gorm:"not null"`
	Bytes       []byte `gorm:"not null"`
}

func (TrackAudio) TableName() string { return "track_audio" }

type TrackMatch struct {
	Seq       uint   `gorm:"primaryKey;autoIncrement"`
	TrackID   string `gorm:"type:varchar(36);not null;index:idx_match_track"`
	MatchedAt int64  `gorm:"not null"` // unix millis
	Score     int    `gorm:"not null"`
}

func (TrackMatch) TableName() string { return "track_matches" }

// NewDBClient opens (creating if needed) the catalog at dbPath.
func NewDBClient(dbPath string) (*DBClient, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// One writer at a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Track{}, &TrackAudio{}, &TrackMatch{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// InsertTrack stores the track row and its audio in one transaction. The blob
// is reserved with zeroblob(len) and then filled, so either both rows exist
// with the full content or neither does. A zero AddedAt means now.
func (c *DBClient) InsertTrack(ctx context.Context, t models.Track) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if len(t.Bytes) == 0 {
		return models.ErrEmptyAudio
	}
	addedAt := t.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	id := t.ID.String()

	row := Track{
		ID:      id,
		AddedAt: addedAt.UnixMilli(),
		Kind:    t.Kind.String(),
		Artist:  t.Artist,
		Title:   t.Title,
	}

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating track: %w", err)
		}
		if err := tx.Exec(
			"INSERT INTO track_audio (id, content_type, bytes) VALUES (?, ?, zeroblob(?))",
			id, t.ContentType, len(t.Bytes),
		).Error; err != nil {
			return fmt.Errorf("reserving audio blob: %w", err)
		}
		res := tx.Model(&TrackAudio{}).Where("id = ?", id).Update("bytes", t.Bytes)
		if res.Error != nil {
			return fmt.Errorf("writing audio blob: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("writing audio blob: %d rows affected", res.RowsAffected)
		}
		return nil
	})
	return translate(err)
}

// InsertMatch appends one sighting of an existing track. Unknown ids are
// rejected by the foreign key and reported as models.ErrForeignKey.
func (c *DBClient) InsertMatch(ctx context.Context, id uuid.UUID, score int, at time.Time) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if score < 0 || score > 100 {
		return fmt.Errorf("match score %d outside [0,100]", score)
	}
	m := TrackMatch{TrackID: id.String(), MatchedAt: at.UnixMilli(), Score: score}
	if err := c.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(fmt.Errorf("creating match: %w", err))
	}
	return nil
}

// GetTrack returns the track with its audio, or models.ErrNotFound.
func (c *DBClient) GetTrack(ctx context.Context, id uuid.UUID) (models.Track, error) {
	if c == nil || c.DB == nil {
		return models.Track{}, errors.New(errDBClientNil)
	}

	var row Track
	if err := c.DB.WithContext(ctx).Where("id = ?", id.String()).First(&row).Error; err != nil {
		return models.Track{}, translate(fmt.Errorf("querying track %s: %w", id, err))
	}
	var audio TrackAudio
	if err := c.DB.WithContext(ctx).Where("id = ?", id.String()).First(&audio).Error; err != nil {
		return models.Track{}, translate(fmt.Errorf("querying audio of %s: %w", id, err))
	}

	t, err := toModel(row)
	if err != nil {
		return models.Track{}, err
	}
	t.ContentType = audio.ContentType
	t.Bytes = audio.Bytes
	return t, nil
}

// GetMatches returns the sightings of a track, newest first. A known track
// without sightings yields an empty slice.
func (c *DBClient) GetMatches(ctx context.Context, id uuid.UUID) ([]models.MatchRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var n int64
	if err := c.DB.WithContext(ctx).Model(&Track{}).Where("id = ?", id.String()).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("checking track %s: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("track %s: %w", id, models.ErrNotFound)
	}

	var rows []TrackMatch
	if err := c.DB.WithContext(ctx).
		Where("track_id = ?", id.String()).
		Order("matched_at DESC").Order("seq DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying matches of %s: %w", id, err)
	}

	out := make([]models.MatchRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.MatchRecord{
			TrackID:   id,
			MatchedAt: time.UnixMilli(r.MatchedAt).UTC(),
			Score:     r.Score,
		})
	}
	return out, nil
}

// DeleteTrack removes a track; its audio and matches go with it by cascade.
func (c *DBClient) DeleteTrack(ctx context.Context, id uuid.UUID) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.WithContext(ctx).Where("id = ?", id.String()).Delete(&Track{})
	if res.Error != nil {
		return fmt.Errorf("deleting track %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("track %s: %w", id, models.ErrNotFound)
	}
	return nil
}

type trackSummary struct {
	ID          string
	AddedAt     int64
	Kind        string
	Artist      string
	Title       string
	ContentType string
}

// ListTracks returns up to limit tracks, newest first, without their audio.
// A non-positive limit lists everything.
func (c *DBClient) ListTracks(ctx context.Context, limit int) ([]models.Track, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := c.DB.WithContext(ctx).
		Table("tracks").
		Select("tracks.id, tracks.added_at, tracks.kind, tracks.artist, tracks.title, track_audio.content_type").
		Joins("LEFT JOIN track_audio ON track_audio.id = tracks.id").
		Order("tracks.added_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []trackSummary
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}

	out := make([]models.Track, 0, len(rows))
	for _, r := range rows {
		t, err := toModel(Track{ID: r.ID, AddedAt: r.AddedAt, Kind: r.Kind, Artist: r.Artist, Title: r.Title})
		if err != nil {
			return nil, err
		}
		t.ContentType = r.ContentType
		out = append(out, t)
	}
	return out, nil
}

func (c *DBClient) CountTracks(ctx context.Context) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var n int64
	if err := c.DB.WithContext(ctx).Model(&Track{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting tracks: %w", err)
	}
	return n, nil
}

func toModel(row Track) (models.Track, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return models.Track{}, fmt.Errorf("stored track id %q: %w", row.ID, err)
	}
	kind, err := models.ParseContentKind(row.Kind)
	if err != nil {
		return models.Track{}, fmt.Errorf("stored track %s: %w", row.ID, err)
	}
	return models.Track{
		ID:      id,
		AddedAt: time.UnixMilli(row.AddedAt).UTC(),
		Kind:    kind,
		Artist:  row.Artist,
		Title:   row.Title,
	}, nil
}

// translate maps gorm and sqlite failures onto the catalog's error kinds.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", models.ErrForeignKey, err)
	}
	return err
}

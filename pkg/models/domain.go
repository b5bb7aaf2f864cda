package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors shared across the pipeline.
var (
	ErrNotFound           = errors.New("not found")
	ErrEmptyAudio         = errors.New("audio bytes are empty")
	ErrForeignKey         = errors.New("referenced track does not exist")
	ErrParse              = errors.New("segment metadata does not match")
	ErrCoverageOutOfRange = errors.New("coverage out of range")
)

// Segment is one media segment of the live playlist.
type Segment struct {
	Number          uint64  // Media sequence number
	URI             string  // Absolute segment URI
	RawMetadata     string  // EXTINF title text, empty when absent
	DurationSeconds float64 // EXTINF duration
}

// HasMetadata reports whether the playlist carried a title for the segment.
func (s Segment) HasMetadata() bool {
	return s.RawMetadata != ""
}

// ContentKind is the suggested content of a segment or a catalogued track.
type ContentKind int

const (
	KindUnknown ContentKind = iota
	KindTalk
	KindAdvertisement
	KindMusic
)

func (k ContentKind) String() string {
	switch k {
	case KindTalk:
		return "talk"
	case KindAdvertisement:
		return "advertisement"
	case KindMusic:
		return "music"
	default:
		return "unknown"
	}
}

// ParseContentKind is the inverse of ContentKind.String.
func ParseContentKind(s string) (ContentKind, error) {
	switch s {
	case "talk":
		return KindTalk, nil
	case "advertisement":
		return KindAdvertisement, nil
	case "music":
		return KindMusic, nil
	case "unknown", "none":
		return KindUnknown, nil
	}
	return KindUnknown, fmt.Errorf("invalid kind value=%q", s)
}

// SegmentInfo holds the fields decoded from a segment's metadata blob.
type SegmentInfo struct {
	Title          string
	Artist         string
	SongSpot       byte
	MediaBaseID    int64
	ITunesTrackID  int64
	AMGTrackID     int64
	AMGArtistID    int64
	TAID           int64
	TPID           int64
	CartcutID      int64
	AMGArtworkURL  string // empty when absent or unparseable
	Length         time.Duration
	UNSID          int64
	SpotInstanceID *uuid.UUID
}

// FingerprintResult is one candidate returned by the fingerprint oracle.
type FingerprintResult struct {
	TrackID  uuid.UUID
	Coverage float64
	Artist   *string
	Title    *string
}

// ValidCoverage reports whether Coverage lies in [0,1].
func (r FingerprintResult) ValidCoverage() bool {
	return r.Coverage >= 0 && r.Coverage <= 1 && !math.IsNaN(r.Coverage)
}

const scoreEpsilon = 1e-9

// Score is floor(coverage*100 + 1e-9): the percentage a decimal coverage
// reads as, so 0.29 scores 29 although 0.29*100 is just below 29 in binary
// floating point. Callers must reject results with invalid coverage first;
// Score panics on them.
func (r FingerprintResult) Score() int {
	if !r.ValidCoverage() {
		panic(fmt.Sprintf("fingerprint result %s: coverage %v out of [0,1]", r.TrackID, r.Coverage))
	}
	return int(math.Floor(r.Coverage*100 + scoreEpsilon))
}

// Track is a catalogued piece of audio.
type Track struct {
	ID          uuid.UUID
	AddedAt     time.Time
	Kind        ContentKind
	Artist      string
	Title       string
	ContentType string
	Bytes       []byte
}

// MatchRecord is one repeat sighting of a catalogued track.
type MatchRecord struct {
	TrackID   uuid.UUID
	MatchedAt time.Time
	Score     int
}

// Package service runs the intake loop: poll the playlist, pick the new
// segments worth keeping, ask the oracle whether each one has been heard
// before and record the answer in the catalog.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/RadioDNA/internal/classifier"
	"github.com/himanishpuri/RadioDNA/internal/matcher"
	"github.com/himanishpuri/RadioDNA/internal/playlist"
	"github.com/himanishpuri/RadioDNA/internal/tracker"
	"github.com/himanishpuri/RadioDNA/pkg/logger"
	"github.com/himanishpuri/RadioDNA/pkg/models"
	"github.com/himanishpuri/RadioDNA/pkg/utils"
)

// Outcome is what happened to one segment. Seen segments were handled in an
// earlier refresh; Failed covers download, oracle and storage errors.
type Outcome int

const (
	OutcomeSeen Outcome = iota
	OutcomeSkipped
	OutcomeMatched
	OutcomeInserted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSeen:
		return "seen"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeMatched:
		return "matched"
	case OutcomeInserted:
		return "inserted"
	default:
		return "failed"
	}
}

// CycleStats summarizes one playlist refresh.
type CycleStats struct {
	Segments int
	Outcomes map[Outcome]int
	// Pause is how long to wait before the next refresh.
	Pause time.Duration
}

type IntakeService struct {
	source     Source
	oracle     Oracle
	catalog    Catalog
	tracker    tracker.Policy
	classifier *classifier.Classifier
	log        Logger
	config     *Config
}

func NewIntakeService(src Source, orc Oracle, cat Catalog, pol tracker.Policy, cls *classifier.Classifier, opts ...Option) *IntakeService {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	return &IntakeService{
		source:     src,
		oracle:     orc,
		catalog:    cat,
		tracker:    pol,
		classifier: cls,
		log:        cfg.Logger,
		config:     cfg,
	}
}

// Run refreshes the playlist until ctx is done. A failed playlist fetch ends
// the loop with that error; everything else is logged and the loop goes on.
func (s *IntakeService) Run(ctx context.Context, playlistURL string) error {
	s.log.Debugf("Fetching %s", playlistURL)
	for {
		stats, err := s.RunOnce(ctx, playlistURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(stats.Pause):
		}
	}
}

// RunOnce handles one refresh. Segments are processed one at a time in
// playlist order. Only a *playlist.FetchError is returned; an undecodable
// playlist is logged and counts as an empty refresh.
func (s *IntakeService) RunOnce(ctx context.Context, playlistURL string) (CycleStats, error) {
	stats := CycleStats{Outcomes: make(map[Outcome]int), Pause: s.config.MinPause}

	pl, err := s.source.Fetch(ctx, playlistURL)
	if err != nil {
		var fe *playlist.FetchError
		if errors.As(err, &fe) {
			s.log.Errorf("Failed to get playlist: %v", err)
			return stats, err
		}
		s.log.Errorf("Unreadable playlist, retrying: %v", err)
		return stats, nil
	}
	if pl == nil {
		s.log.Debugf("Playlist not in HLS format, nothing to do")
		return stats, nil
	}
	s.log.Debugf("Received stream playlist with %d segments", len(pl.Segments))

	stats.Segments = len(pl.Segments)
	if half := pl.Duration / 2; half > stats.Pause {
		stats.Pause = half
	}

	for _, seg := range pl.Segments {
		if ctx.Err() != nil {
			break
		}
		stats.Outcomes[s.processSegment(ctx, seg)]++
	}

	s.log.Infof("Cycle done: %d segments, %d new tracks, %d matches, %d skipped, %d failed",
		stats.Segments, stats.Outcomes[OutcomeInserted], stats.Outcomes[OutcomeMatched],
		stats.Outcomes[OutcomeSkipped], stats.Outcomes[OutcomeFailed])
	return stats, nil
}

func (s *IntakeService) processSegment(ctx context.Context, seg models.Segment) Outcome {
	if !s.tracker.NeedDownload(seg) {
		return OutcomeSeen
	}

	res, err := s.classifier.Classify(seg)
	if err != nil {
		s.log.Infof("Segment#%d SKIPPED: no info: %v", seg.Number, err)
		s.log.Debugf("Segment#%d title=%q", seg.Number, seg.RawMetadata)
		return OutcomeSkipped
	}
	if !classifier.ShouldDownload(res.Kind) {
		s.log.Infof("Segment#%d SKIPPED: unknown kind, artist=%s, title=%s", seg.Number, res.Info.Artist, res.Info.Title)
		s.log.Debugf("Segment#%d title=%q", seg.Number, seg.RawMetadata)
		return OutcomeSkipped
	}
	if res.Fallback {
		s.log.Infof("Segment#%d DOWNLOAD: advertisement: title=%s", seg.Number, seg.RawMetadata)
	} else {
		s.log.Infof("Segment#%d DOWNLOAD: likely %s, artist: %s, title: %s", seg.Number, res.Kind, res.Info.Artist, res.Info.Title)
	}

	audio, err := s.source.Download(ctx, seg.URI)
	if err != nil {
		s.log.Errorf("Failed to download %s: %v", seg.URI, err)
		return OutcomeFailed
	}
	if len(audio.Bytes) == 0 {
		s.log.Errorf("Failed to download %s: empty body", seg.URI)
		return OutcomeFailed
	}
	s.log.Debugf("Segment#%d downloaded %s (%s)", seg.Number, humanize.Bytes(uint64(len(audio.Bytes))), audio.ContentType)

	artist, title := res.Info.Artist, res.Info.Title
	hint := utils.FilenameHint(s.config.Now(), res.Kind.String(), artist, title, seg.URI)

	results, err := s.oracle.Query(ctx, audio.Bytes, hint, s.config.MinConfidence)
	if err == nil {
		err = matcher.ValidateCoverage(results)
	}
	if err != nil {
		s.log.Errorf("Segment#%d oracle query failed, skipping: %v", seg.Number, err)
		return OutcomeFailed
	}
	for _, r := range results {
		s.log.Infof("%s '%s'/'%s' matches '%s'/'%s' %d%%",
			seg.URI, title, artist, orNone(r.Title), orNone(r.Artist), r.Score())
	}

	if kept := matcher.Consolidate(results); len(kept) > 0 {
		recorded, unknown := s.recordMatches(ctx, seg, kept)
		if recorded > 0 {
			return OutcomeMatched
		}
		if unknown < len(kept) {
			return OutcomeFailed
		}
		s.log.Warnf("Segment#%d matches no catalogued track, inserting as new", seg.Number)
	}
	return s.insertTrack(ctx, seg, res.Kind, artist, title, hint, audio.Bytes, audio.ContentType)
}

// recordMatches stores one match per kept result. It returns how many were
// recorded and how many named a track id the catalog does not hold.
func (s *IntakeService) recordMatches(ctx context.Context, seg models.Segment, kept []models.FingerprintResult) (recorded, unknown int) {
	now := s.config.Now()
	for _, r := range kept {
		err := s.catalog.InsertMatch(ctx, r.TrackID, r.Score(), now)
		switch {
		case err == nil:
			recorded++
			s.log.Infof("Segment#%d matched %s (%d%%)", seg.Number, r.TrackID, r.Score())
		case errors.Is(err, models.ErrForeignKey):
			unknown++
			s.log.Warnf("Segment#%d match %s is not in the catalog, ignoring", seg.Number, r.TrackID)
		default:
			s.log.Errorf("Segment#%d failed to record match %s: %v", seg.Number, r.TrackID, err)
		}
	}
	return recorded, unknown
}

// insertTrack stores the segment in the catalog, then registers it with the
// oracle. The catalog row is removed again if the oracle refuses it, so the
// oracle never holds an id the catalog lacks.
func (s *IntakeService) insertTrack(ctx context.Context, seg models.Segment, kind models.ContentKind, artist, title, hint string, audio []byte, contentType string) Outcome {
	id := s.config.NewID()

	err := s.catalog.InsertTrack(ctx, models.Track{
		ID:          id,
		AddedAt:     s.config.Now(),
		Kind:        kind,
		Artist:      artist,
		Title:       title,
		ContentType: contentType,
		Bytes:       audio,
	})
	if err != nil {
		s.log.Errorf("Segment#%d failed to store track %s: %v", seg.Number, id, err)
		return OutcomeFailed
	}

	if err := s.oracle.Insert(ctx, audio, hint, id, artist, title); err != nil {
		s.log.Errorf("Failed to insert track '%s'/'%s': %v", artist, title, err)
		if derr := s.catalog.DeleteTrack(context.WithoutCancel(ctx), id); derr != nil {
			s.log.Errorf("Segment#%d failed to remove track %s: %v", seg.Number, id, derr)
		}
		return OutcomeFailed
	}

	s.log.Infof("Inserted new track '%s'/'%s': %s", artist, title, id)
	return OutcomeInserted
}

func orNone(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

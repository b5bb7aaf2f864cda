// Package classifier decodes the station metadata embedded in each segment's
// EXTINF title and suggests what kind of content the segment carries.
package classifier

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

// AdContextMarker marks advertisement segments whose title carries no song metadata,
// e.g. `#EXTINF:10,offset=0,adContext=''`.
const AdContextMarker = "adContext="

// AdvertisementLabel is the artist and title given to marker-only advertisements.
const AdvertisementLabel = "Advertisement"

const metadataPattern = `(?:offset=\d+,)?title="(.+?)",artist="(.+?)",url="` +
	`song_spot=\\"(\w)\\" ` +
	`MediaBaseId=\\"(-?\d+)\\" ` +
	`itunesTrackId=\\"(-?\d+)\\" ` +
	`amgTrackId=\\"(-?\d+)\\" ` +
	`amgArtistId=\\"(-?\d+)\\" ` +
	`TAID=\\"(-?\d+)\\" ` +
	`TPID=\\"(-?\d+)\\" ` +
	`cartcutId=\\"(-?\d+)\\" ` +
	`amgArtworkURL=\\"(.*?)\\" ` +
	`length=\\"(\d\d:\d\d:\d\d)\\" ` +
	`unsID=\\"(-?\d+)\\" ` +
	`spotInstanceId=\\"(.*?)\\""`

// metadataFields is the number of capture groups in metadataPattern.
const metadataFields = 14

// ParseError reports metadata that does not match the expected grammar.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse segment metadata: %s: %v", e.Reason, e.Err)
	}
	return "parse segment metadata: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, models.ErrParse) hold for every ParseError.
func (e *ParseError) Is(target error) bool { return target == models.ErrParse }

// Result is the outcome of classifying one segment.
type Result struct {
	Info     models.SegmentInfo
	Kind     models.ContentKind
	// Fallback is set when the kind came from the adContext marker rather
	// than from parsed metadata.
	Fallback bool
}

// Classifier holds the metadata pattern, compiled once by New.
type Classifier struct {
	pattern *regexp.Regexp
}

func New() *Classifier {
	return &Classifier{pattern: regexp.MustCompile(metadataPattern)}
}

// Classify parses the segment's metadata and assigns a content kind. Segments
// without parseable metadata are advertisements when the raw title carries the
// adContext marker and a *ParseError otherwise.
func (c *Classifier) Classify(seg models.Segment) (Result, error) {
	if !seg.HasMetadata() {
		return Result{}, &ParseError{Reason: "no title"}
	}

	info, err := c.Parse(seg.RawMetadata)
	if err != nil {
		if strings.Contains(seg.RawMetadata, AdContextMarker) {
			return Result{
				Info:     models.SegmentInfo{Title: AdvertisementLabel, Artist: AdvertisementLabel},
				Kind:     models.KindAdvertisement,
				Fallback: true,
			}, nil
		}
		return Result{}, err
	}

	return Result{Info: info, Kind: Kind(info)}, nil
}

// Parse decodes all fields of a metadata blob. Any mismatch fails the whole parse.
func (c *Classifier) Parse(raw string) (models.SegmentInfo, error) {
	caps := c.pattern.FindStringSubmatch(raw)
	if len(caps) != metadataFields+1 {
		return models.SegmentInfo{}, &ParseError{Reason: "failed to match"}
	}

	info := models.SegmentInfo{
		Title:    caps[1],
		Artist:   caps[2],
		SongSpot: caps[3][0],
	}

	ints := []struct {
		name string
		raw  string
		dst  *int64
	}{
		{"MediaBaseId", caps[4], &info.MediaBaseID},
		{"itunesTrackId", caps[5], &info.ITunesTrackID},
		{"amgTrackId", caps[6], &info.AMGTrackID},
		{"amgArtistId", caps[7], &info.AMGArtistID},
		{"TAID", caps[8], &info.TAID},
		{"TPID", caps[9], &info.TPID},
		{"cartcutId", caps[10], &info.CartcutID},
		{"unsID", caps[13], &info.UNSID},
	}
	for _, f := range ints {
		v, err := strconv.ParseInt(f.raw, 10, 64)
		if err != nil {
			return models.SegmentInfo{}, &ParseError{Reason: "invalid " + f.name, Err: err}
		}
		*f.dst = v
	}

	length, err := parseClock(caps[12])
	if err != nil {
		return models.SegmentInfo{}, &ParseError{Reason: "invalid length", Err: err}
	}
	info.Length = length

	if artwork := caps[11]; isAbsoluteURL(artwork) {
		info.AMGArtworkURL = artwork
	}

	if id, err := uuid.Parse(caps[14]); err == nil {
		info.SpotInstanceID = &id
	}

	return info, nil
}

// parseClock converts HH:MM:SS into a duration.
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("want HH:MM:SS, got %q", s)
	}
	limits := [3]int{24, 60, 60}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, err
		}
		if v < 0 || v >= limits[i] {
			return 0, fmt.Errorf("field %q out of range in %q", p, s)
		}
		vals[i] = v
	}
	return time.Duration(vals[0])*time.Hour +
		time.Duration(vals[1])*time.Minute +
		time.Duration(vals[2])*time.Second, nil
}

func isAbsoluteURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

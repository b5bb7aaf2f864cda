package classifier

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

const spotID = "3e1c5c53-86a7-4c2b-9b38-1c1a9d5c1f11"

type fields struct {
	spot                                         string
	mediaBase, itunes, amgTrack, amgArtist       string
	taid, tpid, cartcut, uns                     string
	artwork, length, spotInstance, title, artist string
}

func defaults() fields {
	return fields{
		spot: "M", mediaBase: "0", itunes: "0", amgTrack: "0", amgArtist: "0",
		taid: "0", tpid: "0", cartcut: "0", uns: "0",
		artwork: "", length: "00:00:00", spotInstance: "-1",
		title: "Song", artist: "Band",
	}
}

func (f fields) raw() string {
	return fmt.Sprintf(
		`offset=0,title="%s",artist="%s",url="song_spot=\"%s\" MediaBaseId=\"%s\" itunesTrackId=\"%s\" amgTrackId=\"%s\" amgArtistId=\"%s\" TAID=\"%s\" TPID=\"%s\" cartcutId=\"%s\" amgArtworkURL=\"%s\" length=\"%s\" unsID=\"%s\" spotInstanceId=\"%s\""`,
		f.title, f.artist, f.spot, f.mediaBase, f.itunes, f.amgTrack, f.amgArtist,
		f.taid, f.tpid, f.cartcut, f.artwork, f.length, f.uns, f.spotInstance,
	)
}

func segment(raw string) models.Segment {
	return models.Segment{Number: 1, URI: "seg1.aac", RawMetadata: raw, DurationSeconds: 10}
}

func TestParseAllFields(t *testing.T) {
	c := New()
	f := fields{
		spot: "F", mediaBase: "11", itunes: "-22", amgTrack: "33", amgArtist: "44",
		taid: "55", tpid: "66", cartcut: "77", uns: "88",
		artwork: "https://img.example.com/a.jpg", length: "01:02:03", spotInstance: spotID,
		title: "Under Pressure", artist: "Queen",
	}

	info, err := c.Parse(f.raw())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if info.Title != "Under Pressure" || info.Artist != "Queen" {
		t.Errorf("Expected Queen / Under Pressure, got %s / %s", info.Artist, info.Title)
	}
	if info.SongSpot != 'F' {
		t.Errorf("Expected song spot F, got %c", info.SongSpot)
	}
	if info.MediaBaseID != 11 || info.ITunesTrackID != -22 || info.AMGTrackID != 33 || info.AMGArtistID != 44 {
		t.Errorf("Unexpected catalog ids: %+v", info)
	}
	if info.TAID != 55 || info.TPID != 66 || info.CartcutID != 77 || info.UNSID != 88 {
		t.Errorf("Unexpected station ids: %+v", info)
	}
	if info.AMGArtworkURL != "https://img.example.com/a.jpg" {
		t.Errorf("Expected artwork URL, got %q", info.AMGArtworkURL)
	}
	want := time.Hour + 2*time.Minute + 3*time.Second
	if info.Length != want {
		t.Errorf("Expected length %v, got %v", want, info.Length)
	}
	if info.SpotInstanceID == nil || info.SpotInstanceID.String() != spotID {
		t.Errorf("Expected spot instance %s, got %v", spotID, info.SpotInstanceID)
	}
}

func TestParseWithoutOffsetPrefix(t *testing.T) {
	raw := defaults().raw()[len("offset=0,"):]
	if _, err := New().Parse(raw); err != nil {
		t.Fatalf("Parse without offset failed: %v", err)
	}
}

func TestParseOptionalFieldsAbsent(t *testing.T) {
	f := defaults()
	f.artwork = "null"
	f.spotInstance = ""

	info, err := New().Parse(f.raw())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if info.AMGArtworkURL != "" {
		t.Errorf("Expected no artwork URL, got %q", info.AMGArtworkURL)
	}
	if info.SpotInstanceID != nil {
		t.Errorf("Expected no spot instance id, got %v", info.SpotInstanceID)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	overflow := defaults()
	overflow.mediaBase = "99999999999999999999"

	badClock := defaults()
	badClock.length = "00:61:00"

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "just some text"},
		{"missing field", `title="a",artist="b",url="song_spot=\"M\""`},
		{"integer overflow", overflow.raw()},
		{"bad clock", badClock.raw()},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Parse(tt.raw)
			if err == nil {
				t.Fatal("Expected parse error, got nil")
			}
			if !errors.Is(err, models.ErrParse) {
				t.Errorf("Expected ErrParse, got %v", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Expected *ParseError, got %T", err)
			}
		})
	}
}

func TestClassifyKinds(t *testing.T) {
	music := defaults()
	music.length = "00:03:00"
	music.mediaBase = "1"

	talk := defaults()
	talk.spot = "T"

	ad := defaults()
	ad.spot = "F"
	ad.amgTrack = "-1"
	ad.spotInstance = spotID

	artworkOnly := defaults()
	artworkOnly.spot = "F"
	artworkOnly.length = "00:02:30"
	artworkOnly.artwork = "http://art.example.com/x.png"

	noLength := defaults()
	noLength.mediaBase = "1"

	talkWithSpot := defaults()
	talkWithSpot.spot = "T"
	talkWithSpot.spotInstance = spotID

	tests := []struct {
		name string
		raw  string
		want models.ContentKind
	}{
		{"music", music.raw(), models.KindMusic},
		{"talk", talk.raw(), models.KindTalk},
		{"advertisement", ad.raw(), models.KindAdvertisement},
		{"music by artwork", artworkOnly.raw(), models.KindMusic},
		{"music without length", noLength.raw(), models.KindUnknown},
		{"talk with spot instance", talkWithSpot.raw(), models.KindUnknown},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Classify(segment(tt.raw))
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if res.Kind != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, res.Kind)
			}
			if res.Fallback {
				t.Error("Expected parsed classification, got fallback")
			}
		})
	}
}

func TestClassifyAdContextFallback(t *testing.T) {
	res, err := New().Classify(segment(`offset=0,adContext=''`))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Kind != models.KindAdvertisement {
		t.Errorf("Expected advertisement, got %s", res.Kind)
	}
	if !res.Fallback {
		t.Error("Expected fallback flag")
	}
	if res.Info.Artist != AdvertisementLabel || res.Info.Title != AdvertisementLabel {
		t.Errorf("Expected synthetic labels, got %s / %s", res.Info.Artist, res.Info.Title)
	}
}

func TestClassifyParseError(t *testing.T) {
	c := New()

	if _, err := c.Classify(segment("")); !errors.Is(err, models.ErrParse) {
		t.Errorf("Expected ErrParse for missing metadata, got %v", err)
	}
	if _, err := c.Classify(segment("offset=0,title=unknown")); !errors.Is(err, models.ErrParse) {
		t.Errorf("Expected ErrParse for unmatched metadata, got %v", err)
	}
}

func TestShouldDownload(t *testing.T) {
	tests := map[models.ContentKind]bool{
		models.KindUnknown:       false,
		models.KindTalk:          true,
		models.KindAdvertisement: true,
		models.KindMusic:         true,
	}
	for kind, want := range tests {
		if got := ShouldDownload(kind); got != want {
			t.Errorf("ShouldDownload(%s): expected %v, got %v", kind, want, got)
		}
	}
}

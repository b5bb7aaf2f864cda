// Package playlist polls the live HLS media playlist and downloads segments.
package playlist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grafov/m3u8"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

const (
	// MediaType is the only playlist content type that is decoded.
	MediaType = "application/vnd.apple.mpegurl"
	// DefaultAudioType is assumed for segments served without a Content-Type.
	DefaultAudioType = "audio/aac"

	DefaultTimeout = 30 * time.Second
	maxErrorBody   = 4096
)

// FetchError is a failed playlist or segment request. Body holds the start of
// the server's response.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Playlist is one refresh of the media playlist.
type Playlist struct {
	Segments []models.Segment
	// Duration is the sum of all segment durations.
	Duration time.Duration
}

// Audio is a downloaded segment.
type Audio struct {
	Bytes       []byte
	ContentType string
}

type Fetcher struct {
	http *http.Client
}

type Option func(*Fetcher)

func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.http.Timeout = d }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{http: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves and decodes the playlist. A 200 response with any content
// type other than a UTF-8 MPEG-URL yields a nil playlist and no error; any
// other status is a *FetchError carrying the response body.
func (f *Fetcher) Fetch(ctx context.Context, playlistURL string) (*Playlist, error) {
	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, &FetchError{URL: playlistURL, Err: err}
	}

	body, header, err := f.get(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	if !isPlaylistType(header.Get("Content-Type")) {
		return nil, nil
	}

	return Decode(bytes.NewReader(body), base)
}

// Decode parses a media playlist. Segment numbers are the media sequence plus
// the segment's index; relative URIs are resolved against base when non-nil.
func Decode(r io.Reader, base *url.URL) (*Playlist, error) {
	p, listType, err := m3u8.DecodeFrom(r, false)
	if err != nil {
		return nil, fmt.Errorf("decoding playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, errors.New("decoding playlist: not a media playlist")
	}
	media := p.(*m3u8.MediaPlaylist)

	out := &Playlist{}
	for i, seg := range media.Segments {
		if seg == nil {
			break
		}
		uri := seg.URI
		if base != nil {
			if ref, err := url.Parse(seg.URI); err == nil {
				uri = base.ResolveReference(ref).String()
			}
		}
		out.Segments = append(out.Segments, models.Segment{
			Number:          media.SeqNo + uint64(i),
			URI:             uri,
			RawMetadata:     seg.Title,
			DurationSeconds: seg.Duration,
		})
		out.Duration += time.Duration(seg.Duration * float64(time.Second))
	}
	return out, nil
}

// Download fetches one segment's audio.
func (f *Fetcher) Download(ctx context.Context, uri string) (Audio, error) {
	body, header, err := f.get(ctx, uri)
	if err != nil {
		return Audio{}, err
	}
	ct := header.Get("Content-Type")
	if ct == "" {
		ct = DefaultAudioType
	}
	return Audio{Bytes: body, ContentType: ct}, nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, &FetchError{URL: target, Err: err}
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	return body, resp.Header, nil
}

func isPlaylistType(header string) bool {
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, MediaType) && strings.EqualFold(params["charset"], "utf-8")
}

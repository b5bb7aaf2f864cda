// Package oracle talks to the remote audio fingerprinting service that decides
// whether a piece of audio has been heard before.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

const (
	queryPath  = "/api/v1/query"
	insertPath = "/api/v1/tracks"

	DefaultTimeout = 30 * time.Second
)

// Error is returned for every failed oracle call or undecodable response.
type Error struct {
	Op         string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("oracle %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type Option func(*Client)

// WithAPIKey sends key as the basic-auth user name on every call.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryResult struct {
	Track struct {
		ID     string  `json:"id"`
		Artist *string `json:"artist"`
		Title  *string `json:"title"`
	} `json:"track"`
	Audio *struct {
		Coverage struct {
			QueryCoverage *float64 `json:"queryCoverage"`
		} `json:"coverage"`
	} `json:"audio"`
}

// Query asks the oracle for catalogued tracks resembling audio. Results with an
// unparseable id, no coverage or coverage outside [0,1] fail the whole call.
func (c *Client) Query(ctx context.Context, audio []byte, filename string, minConfidence float64) ([]models.FingerprintResult, error) {
	const op = "query"

	body, contentType, err := multipartBody(audio, filename, map[string]string{
		"mediaType":     "Audio",
		"minConfidence": strconv.FormatFloat(minConfidence, 'f', -1, 64),
	})
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	raw, err := c.post(ctx, op, queryPath, body, contentType)
	if err != nil {
		return nil, err
	}

	var decoded []queryResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}

	out := make([]models.FingerprintResult, 0, len(decoded))
	for _, r := range decoded {
		res, err := r.toModel()
		if err != nil {
			return nil, &Error{Op: op, Err: err}
		}
		out = append(out, res)
	}
	return out, nil
}

func (r queryResult) toModel() (models.FingerprintResult, error) {
	id, err := uuid.Parse(r.Track.ID)
	if err != nil {
		return models.FingerprintResult{}, fmt.Errorf("parsing track id %q: %w", r.Track.ID, err)
	}
	if r.Audio == nil || r.Audio.Coverage.QueryCoverage == nil {
		return models.FingerprintResult{}, fmt.Errorf("track %s: missing query coverage", id)
	}
	res := models.FingerprintResult{
		TrackID:  id,
		Coverage: *r.Audio.Coverage.QueryCoverage,
		Artist:   r.Track.Artist,
		Title:    r.Track.Title,
	}
	if !res.ValidCoverage() {
		return models.FingerprintResult{}, fmt.Errorf("track %s coverage %v: %w", id, res.Coverage, models.ErrCoverageOutOfRange)
	}
	return res, nil
}

// Insert registers audio under id so later queries can find it.
func (c *Client) Insert(ctx context.Context, audio []byte, filename string, id uuid.UUID, artist, title string) error {
	const op = "insert"

	body, contentType, err := multipartBody(audio, filename, map[string]string{
		"id":        id.String(),
		"artist":    artist,
		"title":     title,
		"mediaType": "Audio",
	})
	if err != nil {
		return &Error{Op: op, Err: err}
	}

	_, err = c.post(ctx, op, insertPath, body, contentType)
	return err
}

func (c *Client) post(ctx context.Context, op, path string, body *bytes.Buffer, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.SetBasicAuth(c.apiKey, "")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	return raw, nil
}

func multipartBody(audio []byte, filename string, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

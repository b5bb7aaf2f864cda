package oracle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

func TestQuery(t *testing.T) {
	id := uuid.New()
	audio := []byte("segment-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, queryPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "secret", user)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "0.2", r.FormValue("minConfidence"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		got, _ := io.ReadAll(f)
		assert.Equal(t, audio, got)
		assert.Equal(t, "hint.aac", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"track":{"id":"`+id.String()+`","artist":"Queen","title":"Bicycle"},"audio":{"coverage":{"queryCoverage":0.87}}}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithAPIKey("secret"))
	results, err := c.Query(context.Background(), audio, "hint.aac", 0.2)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, id, results[0].TrackID)
	assert.InDelta(t, 0.87, results[0].Coverage, 1e-9)
	require.NotNil(t, results[0].Artist)
	assert.Equal(t, "Queen", *results[0].Artist)
	assert.Equal(t, 87, results[0].Score())
}

func TestQueryEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	results, err := NewClient(srv.URL).Query(context.Background(), []byte{1}, "a.aac", 0.2)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryBadResults(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name     string
		body     string
		coverage bool
	}{
		{"bad uuid", `[{"track":{"id":"nope"},"audio":{"coverage":{"queryCoverage":0.5}}}]`, false},
		{"missing audio", `[{"track":{"id":"` + id + `"}}]`, false},
		{"missing coverage", `[{"track":{"id":"` + id + `"},"audio":{"coverage":{}}}]`, false},
		{"coverage above one", `[{"track":{"id":"` + id + `"},"audio":{"coverage":{"queryCoverage":1.2}}}]`, true},
		{"not json", `<html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Query(context.Background(), []byte{1}, "a.aac", 0.2)
			require.Error(t, err)

			var oe *Error
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, "query", oe.Op)
			assert.Equal(t, tt.coverage, errors.Is(err, models.ErrCoverageOutOfRange))
		})
	}
}

func TestQueryHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Query(context.Background(), []byte{1}, "a.aac", 0.2)

	var oe *Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, http.StatusTooManyRequests, oe.StatusCode)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestInsert(t *testing.T) {
	id := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, insertPath, r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, id.String(), r.FormValue("id"))
		assert.Equal(t, "Queen", r.FormValue("artist"))
		assert.Equal(t, "Bicycle", r.FormValue("title"))
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Insert(context.Background(), []byte{1, 2}, "a.aac", id, "Queen", "Bicycle")
	require.NoError(t, err)
}

func TestInsertFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Insert(context.Background(), []byte{1}, "a.aac", uuid.New(), "a", "t")

	var oe *Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "insert", oe.Op)
	assert.Equal(t, http.StatusConflict, oe.StatusCode)
}

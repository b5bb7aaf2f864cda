package utils

import (
	"net/url"
	"path"
	"strings"
	"time"
)

const hintTimeLayout = "2006-01-02_15-04-05"

// FilenameHint builds the file name uploaded with a segment:
// <UTC time>_<kind>_<artist>_<title>.<last path segment of uri>
func FilenameHint(at time.Time, kind, artist, title, uri string) string {
	return strings.Join([]string{
		at.UTC().Format(hintTimeLayout),
		sanitize(kind),
		sanitize(artist),
		sanitize(title),
	}, "_") + "." + LastPathSegment(uri)
}

// LastPathSegment returns the final element of the URI path, or "unknown".
func LastPathSegment(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "unknown"
	}
	return path.Base(u.Path)
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}

package utils

import (
	"testing"
	"time"
)

func TestFilenameHint(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)

	got := FilenameHint(at, "music", "AC/DC", "Back In Black", "https://cdn.example.com/live/seg_1200.aac?token=x")
	want := "2024-03-09_07-05-01_music_AC_DC_Back In Black.seg_1200.aac"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFilenameHintUsesUTC(t *testing.T) {
	at := time.Date(2024, 3, 9, 9, 0, 0, 0, time.FixedZone("EET", 2*3600))

	got := FilenameHint(at, "talk", "a", "b", "seg.aac")
	want := "2024-03-09_07-00-00_talk_a_b.seg.aac"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestLastPathSegment(t *testing.T) {
	tests := map[string]string{
		"https://x.example.com/a/b/c.aac": "c.aac",
		"relative/7.ts":                   "7.ts",
		"https://x.example.com/":          "unknown",
		"https://x.example.com":           "unknown",
		"://bad":                          "unknown",
	}
	for in, want := range tests {
		if got := LastPathSegment(in); got != want {
			t.Errorf("LastPathSegment(%q): expected %q, got %q", in, want, got)
		}
	}
}

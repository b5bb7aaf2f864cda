// Package matcher decides which fingerprint candidates for one downloaded
// segment are genuine matches of an already catalogued track.
package matcher

import (
	"fmt"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

const (
	// StrongScore is the score at which a single candidate is trusted on its own.
	StrongScore = 75
	// PairScoreMin and PairScoreMax bound the summed score of two agreeing fragments.
	PairScoreMin = 90
	PairScoreMax = 100
)

// ValidateCoverage returns an error wrapping models.ErrCoverageOutOfRange for
// the first result whose coverage lies outside [0,1].
func ValidateCoverage(results []models.FingerprintResult) error {
	for _, r := range results {
		if !r.ValidCoverage() {
			return fmt.Errorf("track %s coverage %v: %w", r.TrackID, r.Coverage, models.ErrCoverageOutOfRange)
		}
	}
	return nil
}

// Consolidate keeps every result that scores at least StrongScore, and every
// result that pairs with another id agreeing on artist or title whose combined
// score lies in [PairScoreMin, PairScoreMax]. Input order is preserved.
// Results must have passed ValidateCoverage.
func Consolidate(results []models.FingerprintResult) []models.FingerprintResult {
	kept := make([]models.FingerprintResult, 0, len(results))
	for i, r := range results {
		if r.Score() >= StrongScore || hasPartner(results, i) {
			kept = append(kept, r)
		}
	}
	return kept
}

func hasPartner(results []models.FingerprintResult, i int) bool {
	r := results[i]
	for j, r2 := range results {
		if j == i || r2.TrackID == r.TrackID {
			continue
		}
		if !sameString(r.Artist, r2.Artist) && !sameString(r.Title, r2.Title) {
			continue
		}
		if sum := r.Score() + r2.Score(); sum >= PairScoreMin && sum <= PairScoreMax {
			return true
		}
	}
	return false
}

// sameString compares optional strings; two absent values are equal.
func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

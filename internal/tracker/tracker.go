// Package tracker decides which playlist segments are new since the last refresh.
package tracker

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/himanishpuri/RadioDNA/pkg/models"
)

// DefaultCapacity is the recency set size used by RecencyPolicy.
const DefaultCapacity = 10

// Policy reports whether a segment should be downloaded. Implementations
// mutate their state on every call, including calls that return false.
type Policy interface {
	NeedDownload(seg models.Segment) bool
}

// Kind selects a Policy at startup.
type Kind string

const (
	KindSequence Kind = "sequence"
	KindRecency  Kind = "recency"
)

// New builds the policy named by kind. capacity only applies to KindRecency.
func New(kind Kind, capacity int) (Policy, error) {
	switch kind {
	case KindSequence, "":
		return NewSequencePolicy(), nil
	case KindRecency:
		return NewRecencyPolicy(capacity)
	}
	return nil, fmt.Errorf("unknown tracker policy %q", kind)
}

// SequencePolicy keeps a watermark of the highest segment number seen.
// Renumbered playlists (section changes) are skipped until numbers pass the
// watermark again.
type SequencePolicy struct {
	lastSeen uint64
}

func NewSequencePolicy() *SequencePolicy {
	return &SequencePolicy{}
}

func (p *SequencePolicy) NeedDownload(seg models.Segment) bool {
	if seg.Number <= p.lastSeen {
		return false
	}
	p.lastSeen = seg.Number
	return true
}

// Watermark returns the highest segment number accepted so far.
func (p *SequencePolicy) Watermark() uint64 {
	return p.lastSeen
}

// RecencyPolicy remembers the most recently seen segment URIs.
type RecencyPolicy struct {
	seen *lru.Cache[string, struct{}]
}

func NewRecencyPolicy(capacity int) (*RecencyPolicy, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating recency set: %w", err)
	}
	return &RecencyPolicy{seen: cache}, nil
}

func (p *RecencyPolicy) NeedDownload(seg models.Segment) bool {
	// Get refreshes recency on a hit.
	if _, ok := p.seen.Get(seg.URI); ok {
		return false
	}
	p.seen.Add(seg.URI, struct{}{})
	return true
}

// Len returns the number of URIs currently remembered.
func (p *RecencyPolicy) Len() int {
	return p.seen.Len()
}

package session

import (
	"sort"
	"strings"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/engine"
)

// transcript accumulates segments in non-decreasing index order. A
// non-final segment may be superseded by a later one at the same index;
// anything below the highest index seen so far is stale and dropped.
type transcript struct {
	segments map[int]string
	maxIndex int
	finished bool
}

func newTranscript() *transcript {
	return &transcript{segments: make(map[int]string), maxIndex: -1}
}

// apply records a segment and reports whether it was accepted.
func (t *transcript) apply(seg engine.Segment) bool {
	if t.finished {
		return false
	}
	if seg.Index < t.maxIndex {
		return false
	}
	t.segments[seg.Index] = seg.Text
	t.maxIndex = seg.Index
	if seg.Final {
		t.finished = true
	}
	return true
}

func (t *transcript) text() string {
	indices := make([]int, 0, len(t.segments))
	for i := range t.segments {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var parts []string
	for _, i := range indices {
		if s := strings.TrimSpace(t.segments[i]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

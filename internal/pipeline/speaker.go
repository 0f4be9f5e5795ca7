package pipeline

import (
	"fmt"

	"github.com/satriahrh/swara/domain/entities"
)

const firstSpeakerLabel = "Speaker 1"

// SpeakerTracker assigns stable speaker labels to raw segments for the
// lifetime of one pipeline run.
//
// Segments carrying an explicit speaker identifier are mapped
// deterministically (identifier 0 is always "Speaker 1") and the mapping is
// cached so the same identifier yields the same label in every chunk. Chunks
// with no identifiers at all fall back to an alternation heuristic between
// "Speaker 1" and "Speaker 2". The heuristic is best-effort: it does not track
// true speaker turns across chunk boundaries, it only keeps labels plausible
// when the service gives us nothing to work with.
//
// SpeakerTracker is not safe for concurrent use; the assembler resolves
// chunks strictly in sequence order, which the alternation state depends on.
type SpeakerTracker struct {
	labels      map[int]string
	current     string
	alternating bool
}

// NewSpeakerTracker creates a tracker with its alternation label initialized
// to "Speaker 1".
func NewSpeakerTracker() *SpeakerTracker {
	return &SpeakerTracker{
		labels:  make(map[int]string),
		current: firstSpeakerLabel,
	}
}

// Resolve returns one speaker label per raw segment, parallel to the input.
func (t *SpeakerTracker) Resolve(segments []entities.RawSegment) []string {
	labels := make([]string, len(segments))
	if len(segments) == 0 {
		return labels
	}

	identified := false
	for _, seg := range segments {
		if seg.SpeakerID != nil {
			identified = true
			break
		}
	}

	if !identified {
		for i := range segments {
			labels[i] = t.alternate()
		}
		return labels
	}

	// Identifier takes precedence over alternation. Within an identified
	// chunk an occasional unidentified segment inherits its predecessor's
	// label rather than restarting the heuristic.
	last := firstSpeakerLabel
	for i, seg := range segments {
		if seg.SpeakerID != nil {
			labels[i] = t.labelFor(*seg.SpeakerID)
		} else {
			labels[i] = last
		}
		last = labels[i]
	}
	return labels
}

func (t *SpeakerTracker) labelFor(id int) string {
	if label, ok := t.labels[id]; ok {
		return label
	}
	label := fmt.Sprintf("Speaker %d", id+1)
	t.labels[id] = label
	return label
}

// alternate returns the label for the next unidentified segment. The very
// first one gets the current label; every one after that toggles it.
func (t *SpeakerTracker) alternate() string {
	if !t.alternating {
		t.alternating = true
		return t.current
	}
	if t.current == firstSpeakerLabel {
		t.current = "Speaker 2"
	} else {
		t.current = firstSpeakerLabel
	}
	return t.current
}

package entities

import (
	"errors"
	"fmt"
	"sync"
)

// Segment is a normalized transcript unit: absolute timing, a resolved speaker
// label and non-empty text. Segments with empty text are dropped before they
// ever become entities.
type Segment struct {
	// Start is the absolute start time in seconds since pipeline start.
	Start float64 `json:"start"`
	// End is the absolute end time in seconds since pipeline start.
	End float64 `json:"end"`
	// Speaker is the resolved speaker label, never empty.
	Speaker string `json:"speaker"`
	// Text is the transcribed text, never empty.
	Text string `json:"text"`
}

// Validate checks the segment invariants.
func (s Segment) Validate() error {
	if s.Text == "" {
		return errors.New("segment text is required")
	}
	if s.Speaker == "" {
		return errors.New("segment speaker is required")
	}
	if s.Start > s.End {
		return fmt.Errorf("segment start %.2f after end %.2f", s.Start, s.End)
	}
	return nil
}

// Format renders the segment in the documented transcript line format:
// [MM:SS - MM:SS] Speaker: text
func (s Segment) Format() string {
	return fmt.Sprintf("[%s - %s] %s: %s",
		FormatTimestamp(s.Start), FormatTimestamp(s.End), s.Speaker, s.Text)
}

// FormatTimestamp converts seconds to MM:SS.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Transcript is an append-only, time-ordered sequence of segments. Appending
// is owned by the transcript assembler for the lifetime of a run; snapshots
// may be taken concurrently from other goroutines, so access is synchronized
// internally.
type Transcript struct {
	mu       sync.Mutex
	segments []Segment
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds segments to the transcript. It returns an error if an appended
// segment would break the non-decreasing start time ordering.
func (t *Transcript) Append(segments ...Segment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, seg := range segments {
		if err := seg.Validate(); err != nil {
			return err
		}
		if n := len(t.segments); n > 0 && seg.Start < t.segments[n-1].Start {
			return fmt.Errorf("segment at %.2f precedes transcript tail %.2f",
				seg.Start, t.segments[n-1].Start)
		}
		t.segments = append(t.segments, seg)
	}
	return nil
}

// Segments returns a copy of the transcript's segments.
func (t *Transcript) Segments() []Segment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Len returns the number of segments in the transcript.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.segments)
}

package pipeline

import (
	"sort"
	"strings"

	"github.com/satriahrh/swara/domain/entities"
)

// ChunkResult is the outcome of transcribing one chunk, successful or not.
type ChunkResult struct {
	Chunk    *entities.AudioChunk
	Segments []entities.RawSegment
	// Failure is set when the chunk was skipped after a non-retryable error
	// or an exhausted retry budget. Segments is empty in that case.
	Failure *entities.ChunkFailure
}

// Emission is what the assembler releases for one chunk, in sequence order:
// either appended transcript segments or the chunk's failure report.
type Emission struct {
	Sequence int
	Segments []entities.Segment
	Failure  *entities.ChunkFailure
}

// Assembler merges per-chunk results into a single time-ordered transcript.
// Workers complete chunks in arbitrary order; the assembler buffers
// out-of-order results and only releases a chunk once every predecessor
// sequence index has been released. That, plus the chunk offset math, is what
// guarantees the transcript is non-decreasing by start time.
//
// Assembler is not safe for concurrent use; a single goroutine feeds it.
type Assembler struct {
	transcript *entities.Transcript
	tracker    *SpeakerTracker

	next      int
	pending   map[int]*ChunkResult
	lastStart float64
}

// NewAssembler creates an assembler appending into transcript.
func NewAssembler(transcript *entities.Transcript, tracker *SpeakerTracker) *Assembler {
	return &Assembler{
		transcript: transcript,
		tracker:    tracker,
		pending:    make(map[int]*ChunkResult),
	}
}

// Add accepts one chunk result and returns every emission it unblocks, in
// sequence order. A result for a future chunk returns nothing until the gap
// before it fills.
func (a *Assembler) Add(result *ChunkResult) ([]Emission, error) {
	a.pending[result.Chunk.Sequence] = result

	var emissions []Emission
	for {
		res, ok := a.pending[a.next]
		if !ok {
			return emissions, nil
		}
		delete(a.pending, a.next)

		if res.Failure != nil {
			emissions = append(emissions, Emission{Sequence: a.next, Failure: res.Failure})
			a.next++
			continue
		}

		segments := a.assemble(res)
		if len(segments) > 0 {
			if err := a.transcript.Append(segments...); err != nil {
				return emissions, err
			}
			emissions = append(emissions, Emission{Sequence: a.next, Segments: segments})
		}
		a.next++
	}
}

// Pending returns the number of buffered out-of-order results.
func (a *Assembler) Pending() int {
	return len(a.pending)
}

// assemble resolves speakers and rebases chunk-local times onto the run's
// absolute timeline. Empty-text segments are dropped, not emitted.
func (a *Assembler) assemble(res *ChunkResult) []entities.Segment {
	labels := a.tracker.Resolve(res.Segments)

	segments := make([]entities.Segment, 0, len(res.Segments))
	for i, raw := range res.Segments {
		text := strings.TrimSpace(raw.Text)
		if text == "" {
			continue
		}
		start := clampZero(raw.Start + res.Chunk.StartOffset)
		end := clampZero(raw.End + res.Chunk.StartOffset)
		if end < start {
			end = start
		}
		segments = append(segments, entities.Segment{
			Start:   start,
			End:     end,
			Speaker: labels[i],
			Text:    text,
		})
	}

	// Services occasionally return non-monotonic or boundary-spilling
	// timestamps. Sort within the chunk and floor starts at the transcript
	// tail so the global ordering invariant holds.
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	for i := range segments {
		if segments[i].Start < a.lastStart {
			segments[i].Start = a.lastStart
			if segments[i].End < segments[i].Start {
				segments[i].End = segments[i].Start
			}
		}
		a.lastStart = segments[i].Start
	}
	return segments
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

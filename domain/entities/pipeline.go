package entities

import "fmt"

// PipelineState is the lifecycle state of a transcription pipeline run.
type PipelineState string

// Pipeline lifecycle states. Completed and Failed are terminal.
const (
	PipelineIdle      PipelineState = "idle"
	PipelineRunning   PipelineState = "running"
	PipelineStopping  PipelineState = "stopping"
	PipelineCompleted PipelineState = "completed"
	PipelineFailed    PipelineState = "failed"
)

// Terminal reports whether the state is terminal.
func (s PipelineState) Terminal() bool {
	return s == PipelineCompleted || s == PipelineFailed
}

// CanTransitionTo reports whether a transition to next is legal.
func (s PipelineState) CanTransitionTo(next PipelineState) bool {
	switch s {
	case PipelineIdle:
		return next == PipelineRunning
	case PipelineRunning:
		return next == PipelineStopping || next == PipelineCompleted || next == PipelineFailed
	case PipelineStopping:
		return next == PipelineCompleted || next == PipelineFailed
	default:
		return false
	}
}

// EventType identifies a pipeline event.
type EventType string

// Pipeline event types emitted to the caller, in order of occurrence.
const (
	EventStatusChanged      EventType = "status_changed"
	EventTranscriptAppended EventType = "transcript_appended"
	EventChunkFailed        EventType = "chunk_failed"
	EventCompleted          EventType = "completed"
	EventError              EventType = "error"
)

// ChunkFailure describes a chunk that was skipped, with the absolute time
// range missing from the transcript.
type ChunkFailure struct {
	Sequence int     `json:"sequence"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Kind     string  `json:"kind"`
	Message  string  `json:"message"`
}

// Error implements the error interface.
func (f *ChunkFailure) Error() string {
	return fmt.Sprintf("chunk %d [%.1f,%.1f) failed: %s: %s",
		f.Sequence, f.Start, f.End, f.Kind, f.Message)
}

// Event is a single entry in the ordered pipeline event stream.
type Event struct {
	Type EventType `json:"type"`
	// State carries the new state for status_changed events.
	State PipelineState `json:"state,omitempty"`
	// Segments carries appended segments for transcript_appended events.
	Segments []Segment `json:"segments,omitempty"`
	// Failure carries the skipped chunk details for chunk_failed events.
	Failure *ChunkFailure `json:"failure,omitempty"`
	// Err carries the fatal error message for error events.
	Err string `json:"error,omitempty"`
}

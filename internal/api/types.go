package api

import (
	"time"

	"github.com/satriahrh/swara/domain/entities"
)

// StartSessionRequest is the payload for creating a transcription session.
type StartSessionRequest struct {
	// Source selects the audio source: "file" or "capture".
	Source string `json:"source"`
	// Path is the audio file path for file sessions.
	Path string `json:"path,omitempty"`
	// SpeakerCount hints the expected number of speakers (default 2).
	SpeakerCount int `json:"speaker_count,omitempty"`
	// Prompt is an optional context prompt for the recognizer.
	Prompt string `json:"prompt,omitempty"`
	// AutoDetectLanguage enables language auto-detection.
	AutoDetectLanguage bool `json:"auto_detect_language,omitempty"`
}

// SessionResponse describes one session.
type SessionResponse struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	State     entities.PipelineState `json:"state"`
	StartedAt time.Time              `json:"started_at"`
}

// TranscriptResponse carries the assembled transcript so far.
type TranscriptResponse struct {
	SessionID string                 `json:"session_id"`
	State     entities.PipelineState `json:"state"`
	Segments  []entities.Segment     `json:"segments"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

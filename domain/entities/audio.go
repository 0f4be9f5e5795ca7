package entities

import "errors"

// DefaultSampleRate is the PCM sample rate the pipeline operates at.
const DefaultSampleRate = 16000

// SampleBlock is a short run of mono PCM samples produced by an audio source.
// Blocks are folded into chunks as they arrive and are not retained afterwards.
type SampleBlock struct {
	Samples []int16 `json:"-"`
}

// Count returns the number of samples in the block.
func (b SampleBlock) Count() int {
	return len(b.Samples)
}

// AudioChunk is a contiguous window of audio treated as one transcription unit.
// Chunks are immutable once emitted by the chunk buffer.
type AudioChunk struct {
	// Sequence is the 0-based, gap-free chunk index within a run.
	Sequence int `json:"sequence"`
	// StartOffset is the chunk's absolute start in seconds since pipeline start.
	StartOffset float64 `json:"start_offset"`
	// SampleRate is the PCM sample rate in Hz.
	SampleRate int `json:"sample_rate"`
	// Samples holds the chunk's mono PCM audio.
	Samples []int16 `json:"-"`
}

// Duration returns the chunk duration in seconds.
func (c *AudioChunk) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// EndOffset returns the chunk's absolute end in seconds since pipeline start.
func (c *AudioChunk) EndOffset() float64 {
	return c.StartOffset + c.Duration()
}

// RecognitionOptions are supplied once per pipeline run and apply identically
// to every chunk in that run.
type RecognitionOptions struct {
	// SpeakerCount hints the expected number of speakers for diarization.
	SpeakerCount int `json:"speaker_count"`
	// Prompt is an optional free-text context prompt passed to the recognizer.
	Prompt string `json:"prompt,omitempty"`
	// AutoDetectLanguage enables language auto-detection.
	AutoDetectLanguage bool `json:"auto_detect_language"`
}

// Validate checks the options for internally consistent values.
func (o RecognitionOptions) Validate() error {
	if o.SpeakerCount < 1 {
		return errors.New("speaker count must be at least 1")
	}
	return nil
}

// RawSegment is the transcription service's reply unit: timing relative to the
// chunk it came from, text, and an optional raw speaker identifier.
type RawSegment struct {
	// Start is the segment start in seconds relative to the chunk.
	Start float64 `json:"start"`
	// End is the segment end in seconds relative to the chunk.
	End float64 `json:"end"`
	// Text is the transcribed text.
	Text string `json:"text"`
	// SpeakerID is the service-assigned speaker identifier, if any.
	SpeakerID *int `json:"speaker_id,omitempty"`
}

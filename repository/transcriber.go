package repository

import (
	"context"
	"fmt"

	"github.com/satriahrh/swara/domain/entities"
)

// Transcriber abstracts the remote speech-to-text service. One call is issued
// per chunk; retrying a transient failure does not duplicate transcript
// content because assembly is keyed by chunk sequence index.
type Transcriber interface {
	// Transcribe submits one chunk and returns its raw segments. An empty
	// result with a nil error means the service found no usable speech.
	Transcribe(ctx context.Context, chunk *entities.AudioChunk, opts entities.RecognitionOptions) ([]entities.RawSegment, error)
}

// ErrorKind classifies transcription failures per the pipeline error taxonomy.
type ErrorKind string

const (
	// ErrorKindServiceUnavailable covers non-2xx statuses and network
	// failures. Retryable up to the client's retry budget.
	ErrorKindServiceUnavailable ErrorKind = "service_unavailable"
	// ErrorKindMalformedReply covers 2xx replies with unparseable bodies.
	// Non-retryable; the chunk is skipped.
	ErrorKindMalformedReply ErrorKind = "malformed_reply"
)

// TranscriptionError is the error type returned by Transcriber
// implementations for classified failures.
type TranscriptionError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error returns the string representation of the error.
func (e *TranscriptionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TranscriptionError) Unwrap() error { return e.Cause }

// Retryable reports whether retrying the call may succeed.
func (e *TranscriptionError) Retryable() bool {
	return e.Kind == ErrorKindServiceUnavailable
}

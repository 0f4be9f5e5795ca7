package repository

import (
	"context"

	"github.com/satriahrh/swara/domain/entities"
)

// AudioSource abstracts where PCM audio comes from: a live capture device or a
// decoded file. The returned channel yields sample blocks until the source is
// exhausted or closed, then closes.
type AudioSource interface {
	// Open starts the source and returns its sample block stream.
	Open(ctx context.Context) (<-chan entities.SampleBlock, error)
	// Close releases device or file resources. Safe to call multiple times.
	Close() error
}

// ChunkStore persists raw audio chunks as self-contained files. Persistence is
// a pass-through detail: failures are logged by callers, never pipeline-fatal.
type ChunkStore interface {
	// Save writes one chunk. Implementations name files by chunk sequence.
	Save(chunk *entities.AudioChunk) error
}

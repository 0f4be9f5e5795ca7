// Package pipeline implements the chunked transcription pipeline: cutting a
// PCM stream into fixed-duration chunks, resolving speaker labels, assembling
// per-chunk results into a time-ordered transcript, and the controller that
// orchestrates those stages under cancellation.
package pipeline

import (
	"time"

	"github.com/satriahrh/swara/domain/entities"
)

// ChunkBuffer accumulates sample blocks into fixed-duration audio chunks.
// Accumulation is push-driven: Push never blocks waiting for more samples.
// ChunkBuffer is not safe for concurrent use; it is owned by the producer.
type ChunkBuffer struct {
	sampleRate    int
	chunkSamples  int
	chunkDuration float64

	pending []int16
	nextSeq int
}

// NewChunkBuffer creates a buffer cutting chunks of the given duration.
func NewChunkBuffer(sampleRate int, chunkDuration time.Duration) *ChunkBuffer {
	return &ChunkBuffer{
		sampleRate:    sampleRate,
		chunkSamples:  int(chunkDuration.Seconds() * float64(sampleRate)),
		chunkDuration: chunkDuration.Seconds(),
	}
}

// Push folds a sample block into the buffer and returns any chunks completed
// by it. A single large block can complete more than one chunk. Surplus
// samples past the last cut are retained for the next chunk; none are dropped
// or duplicated across the boundary.
func (b *ChunkBuffer) Push(block entities.SampleBlock) []*entities.AudioChunk {
	if block.Count() == 0 {
		return nil
	}
	b.pending = append(b.pending, block.Samples...)

	var chunks []*entities.AudioChunk
	for len(b.pending) >= b.chunkSamples {
		samples := make([]int16, b.chunkSamples)
		copy(samples, b.pending[:b.chunkSamples])
		b.pending = b.pending[b.chunkSamples:]
		chunks = append(chunks, b.cut(samples))
	}
	return chunks
}

// Flush emits the final partial chunk from any residual samples, or nil if
// the stream ended exactly on a chunk boundary. The buffer is reset.
func (b *ChunkBuffer) Flush() *entities.AudioChunk {
	if len(b.pending) == 0 {
		return nil
	}
	samples := make([]int16, len(b.pending))
	copy(samples, b.pending)
	b.pending = nil
	return b.cut(samples)
}

// Buffered returns the number of samples awaiting the next cut.
func (b *ChunkBuffer) Buffered() int {
	return len(b.pending)
}

func (b *ChunkBuffer) cut(samples []int16) *entities.AudioChunk {
	chunk := &entities.AudioChunk{
		Sequence:    b.nextSeq,
		StartOffset: float64(b.nextSeq) * b.chunkDuration,
		SampleRate:  b.sampleRate,
		Samples:     samples,
	}
	b.nextSeq++
	return chunk
}

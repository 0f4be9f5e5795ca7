// Package audio provides the pipeline's audio source adapters: a WAV file
// decoder and a push-driven capture buffer, plus on-disk chunk persistence.
package audio

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/internal/audioio"
	"github.com/satriahrh/swara/repository"
)

// defaultBlockSamples is how many samples a file source emits per block.
const defaultBlockSamples = 1024

// FileSource decodes a WAV file into 16kHz mono sample blocks.
type FileSource struct {
	path       string
	sampleRate int
	blockSize  int
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// Ensure FileSource implements the AudioSource interface
var _ repository.AudioSource = (*FileSource)(nil)

// NewFileSource creates a source reading from path.
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	return &FileSource{
		path:       path,
		sampleRate: entities.DefaultSampleRate,
		blockSize:  defaultBlockSamples,
		logger:     logger,
	}
}

// Open decodes the file and returns a stream of sample blocks. Decoding
// failures surface here; the stream itself cannot fail afterwards.
func (s *FileSource) Open(ctx context.Context) (<-chan entities.SampleBlock, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	samples, err := audioio.DecodeWAV(f, s.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	s.logger.Info("audio file loaded",
		zap.String("path", s.path),
		zap.Int("samples", len(samples)),
		zap.Float64("seconds", float64(len(samples))/float64(s.sampleRate)))

	streamCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	out := make(chan entities.SampleBlock)
	go func() {
		defer close(out)
		for start := 0; start < len(samples); start += s.blockSize {
			end := start + s.blockSize
			if end > len(samples) {
				end = len(samples)
			}
			select {
			case <-streamCtx.Done():
				return
			case out <- entities.SampleBlock{Samples: samples[start:end]}:
			}
		}
	}()

	return out, nil
}

// Close stops the stream. Safe to call multiple times.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

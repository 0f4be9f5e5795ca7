package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/repository"
)

// defaultDrainInterval is how often the drain loop converts buffered capture
// samples into sample blocks.
const defaultDrainInterval = 100 * time.Millisecond

// CaptureSource models a callback-driven capture device as a
// single-producer/single-consumer buffer. The capture callback calls Push,
// which only appends to an in-memory buffer and never touches I/O or the
// network; a drain goroutine started by Open converts the buffer into sample
// blocks at its own pace. This keeps the real-time capture path decoupled
// from chunk-cutting and transcription work.
type CaptureSource struct {
	drainInterval time.Duration
	logger        *zap.Logger

	mu       sync.Mutex
	buf      []int16
	opened   bool
	finished bool
	closed   bool
	finish   chan struct{}
}

// Ensure CaptureSource implements the AudioSource interface
var _ repository.AudioSource = (*CaptureSource)(nil)

// NewCaptureSource creates an empty capture buffer.
func NewCaptureSource(logger *zap.Logger) *CaptureSource {
	return &CaptureSource{
		drainInterval: defaultDrainInterval,
		logger:        logger,
		finish:        make(chan struct{}),
	}
}

// Push appends captured samples. It is the only method safe to call from a
// device callback: it never blocks on anything but the buffer mutex. Samples
// pushed after Finish are discarded.
func (s *CaptureSource) Push(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.closed {
		return
	}
	s.buf = append(s.buf, samples...)
}

// Finish marks the end of the capture stream. The drain loop flushes the
// remaining buffer and closes the block stream. Safe to call multiple times.
func (s *CaptureSource) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markFinished()
}

func (s *CaptureSource) markFinished() {
	if !s.finished {
		s.finished = true
		close(s.finish)
	}
}

// Open starts the drain loop and returns the sample block stream.
func (s *CaptureSource) Open(ctx context.Context) (<-chan entities.SampleBlock, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("capture source is closed")
	}
	if s.opened {
		s.mu.Unlock()
		return nil, errors.New("capture source already open")
	}
	s.opened = true
	s.mu.Unlock()

	out := make(chan entities.SampleBlock)
	go s.drain(ctx, out)
	return out, nil
}

func (s *CaptureSource) drain(ctx context.Context, out chan<- entities.SampleBlock) {
	defer close(out)

	ticker := time.NewTicker(s.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.finish:
			// Flush whatever the callback managed to push before the end.
			if !s.emit(ctx, out) {
				return
			}
			return
		case <-ticker.C:
			if !s.emit(ctx, out) {
				return
			}
		}
	}
}

// emit swaps the buffer out under the mutex and sends its contents as one
// block. Sending may block; the callback side never does.
func (s *CaptureSource) emit(ctx context.Context, out chan<- entities.SampleBlock) bool {
	s.mu.Lock()
	buf := s.buf
	s.buf = nil
	s.mu.Unlock()

	if len(buf) == 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case out <- entities.SampleBlock{Samples: buf}:
		return true
	}
}

// Close releases the source. It only marks the stream finished; the drain
// loop always flushes the remaining buffer before closing the block stream,
// so samples pushed before Close are never dropped. Safe to call multiple
// times.
func (s *CaptureSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.markFinished()
	return nil
}

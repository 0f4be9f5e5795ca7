package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/repository"
)

const (
	defaultChunkDuration = 30 * time.Second
	defaultWorkers       = 3
	defaultQueueSize     = 8
	eventBufferSize      = 256
)

// Config holds pipeline tuning parameters. The zero value gets sensible
// defaults applied on construction.
type Config struct {
	// ChunkDuration is the fixed chunk window (default 30s).
	ChunkDuration time.Duration
	// SampleRate is the PCM sample rate in Hz (default 16000).
	SampleRate int
	// Workers is the number of concurrent transcription calls (default 3).
	Workers int
	// QueueSize bounds the completed-chunk queue between the producer and
	// the workers (default 8).
	QueueSize int
}

// ApplyDefaults fills zero fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.ChunkDuration <= 0 {
		c.ChunkDuration = defaultChunkDuration
	}
	if c.SampleRate <= 0 {
		c.SampleRate = entities.DefaultSampleRate
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
}

// Controller orchestrates one pipeline run: a producer goroutine owning the
// audio source and the chunk buffer, a bounded worker pool calling the
// transcriber, and a single assembler goroutine enforcing ordered emission.
//
// A stop request is observed cooperatively at chunk boundaries: the producer
// stops cutting new chunks, but everything already queued is still drained
// and transcribed before the run reaches Completed, so stopping never loses
// audio that was captured. Per-chunk transcription failures are reported as
// events and skipped; only a source failure is pipeline-fatal.
type Controller struct {
	cfg         Config
	source      repository.AudioSource
	transcriber repository.Transcriber
	store       repository.ChunkStore
	opts        entities.RecognitionOptions
	logger      *zap.Logger

	mu         sync.Mutex
	state      entities.PipelineState
	transcript *entities.Transcript

	events chan entities.Event
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewController creates a controller for one run. store may be nil to disable
// chunk persistence.
func NewController(
	cfg Config,
	source repository.AudioSource,
	transcriber repository.Transcriber,
	store repository.ChunkStore,
	opts entities.RecognitionOptions,
	logger *zap.Logger,
) *Controller {
	cfg.ApplyDefaults()
	return &Controller{
		cfg:         cfg,
		source:      source,
		transcriber: transcriber,
		store:       store,
		opts:        opts,
		logger:      logger,
		state:       entities.PipelineIdle,
		transcript:  entities.NewTranscript(),
		events:      make(chan entities.Event, eventBufferSize),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Events returns the ordered event stream for this run. The channel is
// closed after the completed (or fatal error) event. Callers must drain it.
func (c *Controller) Events() <-chan entities.Event {
	return c.events
}

// State returns the current pipeline state.
func (c *Controller) State() entities.PipelineState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns a snapshot of the segments assembled so far. Safe to
// call mid-run; Transcript synchronizes its own access.
func (c *Controller) Transcript() []entities.Segment {
	return c.transcript.Segments()
}

// Start opens the audio source and launches the pipeline goroutines. It
// returns an error if the controller already ran or the source cannot be
// opened; a source failure is fatal and transitions the run to Failed.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.opts.Validate(); err != nil {
		return fmt.Errorf("invalid recognition options: %w", err)
	}
	if !c.transition(entities.PipelineRunning) {
		return fmt.Errorf("pipeline cannot start from state %s", c.State())
	}

	blocks, err := c.source.Open(ctx)
	if err != nil {
		c.transition(entities.PipelineFailed)
		c.emit(entities.Event{Type: entities.EventError, Err: err.Error()})
		close(c.events)
		return fmt.Errorf("open audio source: %w", err)
	}

	// Stop requests must not abort in-flight or queued transcription work,
	// so workers run on their own context released only at run teardown.
	workCtx, workCancel := context.WithCancel(context.Background())

	chunks := make(chan *entities.AudioChunk, c.cfg.QueueSize)
	results := make(chan *ChunkResult, c.cfg.QueueSize)

	c.wg.Add(1)
	go c.produce(ctx, blocks, chunks)

	var workers sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		workers.Add(1)
		go c.work(workCtx, &workers, chunks, results)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		workers.Wait()
		close(results)
	}()

	c.wg.Add(1)
	go c.assemble(results, workCancel)

	// Honor caller context cancellation as a graceful stop request.
	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-c.stop:
		case <-c.done:
		}
	}()

	return nil
}

// Stop requests a graceful stop. Already-queued chunks are still transcribed
// before the run reaches Completed. Safe to call multiple times.
func (c *Controller) Stop() {
	c.once.Do(func() {
		close(c.stop)
		if c.transition(entities.PipelineStopping) {
			c.logger.Info("pipeline stopping, draining queued chunks")
		}
	})
}

// Wait blocks until the run has fully terminated.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// produce owns the audio source and the chunk buffer. It folds sample blocks
// into chunks and hands completed chunks to the workers. On a stop request it
// closes the source and drains the block stream to its end before the
// deferred residual flush, so stopping never loses delivered audio.
func (c *Controller) produce(ctx context.Context, blocks <-chan entities.SampleBlock, chunks chan<- *entities.AudioChunk) {
	defer c.wg.Done()
	defer close(chunks)

	buffer := NewChunkBuffer(c.cfg.SampleRate, c.cfg.ChunkDuration)

	defer func() {
		if final := buffer.Flush(); final != nil {
			c.dispatch(final, chunks)
		}
		if err := c.source.Close(); err != nil {
			c.logger.Warn("closing audio source", zap.Error(err))
		}
	}()

	for {
		select {
		case <-c.stop:
			// Ask the source to wind down, then consume every block it
			// already produced. A capture source flushes its last pushed
			// samples on the way out; returning before the stream closes
			// would drop them.
			if err := c.source.Close(); err != nil {
				c.logger.Warn("closing audio source", zap.Error(err))
			}
			for block := range blocks {
				for _, chunk := range buffer.Push(block) {
					c.dispatch(chunk, chunks)
				}
			}
			return
		case block, ok := <-blocks:
			if !ok {
				return
			}
			for _, chunk := range buffer.Push(block) {
				c.dispatch(chunk, chunks)
			}
		}
	}
}

func (c *Controller) dispatch(chunk *entities.AudioChunk, chunks chan<- *entities.AudioChunk) {
	if c.store != nil {
		if err := c.store.Save(chunk); err != nil {
			c.logger.Warn("persisting chunk",
				zap.Int("chunk", chunk.Sequence), zap.Error(err))
		}
	}
	c.logger.Debug("chunk cut",
		zap.Int("chunk", chunk.Sequence),
		zap.Float64("start", chunk.StartOffset),
		zap.Float64("duration", chunk.Duration()))
	chunks <- chunk
}

// work drains the chunk queue and calls the transcriber. Retry and backoff
// for transient failures live inside the transcriber implementation; by the
// time an error reaches here the chunk is skipped.
func (c *Controller) work(ctx context.Context, workers *sync.WaitGroup, chunks <-chan *entities.AudioChunk, results chan<- *ChunkResult) {
	defer c.wg.Done()
	defer workers.Done()

	for chunk := range chunks {
		segments, err := c.transcriber.Transcribe(ctx, chunk, c.opts)
		if err != nil {
			results <- &ChunkResult{
				Chunk:   chunk,
				Failure: chunkFailure(chunk, err),
			}
			continue
		}
		results <- &ChunkResult{Chunk: chunk, Segments: segments}
	}
}

// assemble consumes completed results, releases them in sequence order and
// emits the corresponding events. It runs in a single goroutine; only the
// transcript, which synchronizes itself, is visible to anyone else mid-run.
func (c *Controller) assemble(results <-chan *ChunkResult, workCancel context.CancelFunc) {
	defer c.wg.Done()
	defer workCancel()

	assembler := NewAssembler(c.transcript, NewSpeakerTracker())

	for result := range results {
		emissions, err := assembler.Add(result)
		if err != nil {
			c.logger.Error("assembling transcript", zap.Error(err))
			c.finish(entities.PipelineFailed, err)
			return
		}
		for _, em := range emissions {
			if em.Failure != nil {
				c.logger.Warn("chunk skipped",
					zap.Int("chunk", em.Failure.Sequence),
					zap.Float64("start", em.Failure.Start),
					zap.Float64("end", em.Failure.End),
					zap.String("kind", em.Failure.Kind))
				c.emit(entities.Event{Type: entities.EventChunkFailed, Failure: em.Failure})
				continue
			}
			c.emit(entities.Event{Type: entities.EventTranscriptAppended, Segments: em.Segments})
		}
	}

	if n := assembler.Pending(); n > 0 {
		c.logger.Error("results lost before assembly", zap.Int("pending", n))
	}
	c.finish(entities.PipelineCompleted, nil)
}

func (c *Controller) finish(state entities.PipelineState, err error) {
	c.transition(state)
	if err != nil {
		c.emit(entities.Event{Type: entities.EventError, Err: err.Error()})
	} else {
		c.emit(entities.Event{Type: entities.EventCompleted})
	}
	close(c.events)
	close(c.done)
}

// transition moves to next if legal and emits a status event. Illegal
// transitions (e.g. Stopping when already Completed) are ignored.
func (c *Controller) transition(next entities.PipelineState) bool {
	c.mu.Lock()
	if !c.state.CanTransitionTo(next) {
		c.mu.Unlock()
		return false
	}
	c.state = next
	c.mu.Unlock()

	c.logger.Info("pipeline state changed", zap.String("state", string(next)))
	c.emit(entities.Event{Type: entities.EventStatusChanged, State: next})
	return true
}

// emit delivers an event without ever blocking the pipeline. The buffer is
// generous; if a caller stops draining, events are dropped with a log line
// rather than stalling transcription.
func (c *Controller) emit(event entities.Event) {
	select {
	case c.events <- event:
	default:
		c.logger.Warn("event buffer full, dropping event", zap.String("type", string(event.Type)))
	}
}

func chunkFailure(chunk *entities.AudioChunk, err error) *entities.ChunkFailure {
	kind := "error"
	var terr *repository.TranscriptionError
	if errors.As(err, &terr) {
		kind = string(terr.Kind)
	}
	return &entities.ChunkFailure{
		Sequence: chunk.Sequence,
		Start:    chunk.StartOffset,
		End:      chunk.EndOffset(),
		Kind:     kind,
		Message:  err.Error(),
	}
}

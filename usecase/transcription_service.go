// Package usecase wires audio sources, the transcription pipeline and
// transcript sinks into caller-facing session operations.
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/swara/adapters/audio"
	"github.com/satriahrh/swara/adapters/transcript"
	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/internal/pipeline"
	"github.com/satriahrh/swara/repository"
)

// Broadcaster fans pipeline events out to connected callers. Implemented by
// the websocket hub; a no-op implementation is fine for CLI use.
type Broadcaster interface {
	Broadcast(sessionID string, event entities.Event)
}

// NopBroadcaster discards events.
type NopBroadcaster struct{}

// Broadcast implements Broadcaster.
func (NopBroadcaster) Broadcast(string, entities.Event) {}

// ServiceConfig holds configuration for the transcription service.
// Optional fields with defaults:
// - TranscriptDir: directory for per-session transcript files (default: "transcripts")
// - ChunkDir: directory for persisted chunk WAVs (default: "recorded_chunks")
// - PersistChunks: whether chunks are written to ChunkDir (default: false)
// - Pipeline: pipeline tuning, zero value uses pipeline defaults
type ServiceConfig struct {
	TranscriptDir string
	ChunkDir      string
	PersistChunks bool
	Pipeline      pipeline.Config
}

// NewServiceConfigFromEnv creates a ServiceConfig from environment variables.
func NewServiceConfigFromEnv() ServiceConfig {
	cfg := ServiceConfig{
		TranscriptDir: os.Getenv("SWARA_TRANSCRIPT_DIR"),
		ChunkDir:      os.Getenv("SWARA_CHUNK_DIR"),
		PersistChunks: os.Getenv("SWARA_PERSIST_CHUNKS") == "true",
	}
	if secondsStr := os.Getenv("SWARA_CHUNK_SECONDS"); secondsStr != "" {
		if seconds, err := strconv.Atoi(secondsStr); err == nil && seconds > 0 {
			cfg.Pipeline.ChunkDuration = time.Duration(seconds) * time.Second
		}
	}
	if workersStr := os.Getenv("SWARA_WORKERS"); workersStr != "" {
		if workers, err := strconv.Atoi(workersStr); err == nil && workers > 0 {
			cfg.Pipeline.Workers = workers
		}
	}
	return cfg
}

func (c *ServiceConfig) applyDefaults() {
	if c.TranscriptDir == "" {
		c.TranscriptDir = "transcripts"
	}
	if c.ChunkDir == "" {
		c.ChunkDir = "recorded_chunks"
	}
}

// Session is one pipeline run owned by the service.
type Session struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`

	controller *pipeline.Controller
	capture    *audio.CaptureSource
	sink       repository.TranscriptSink
}

// State returns the session's pipeline state.
func (s *Session) State() entities.PipelineState {
	return s.controller.State()
}

// Transcript returns the segments assembled so far.
func (s *Session) Transcript() []entities.Segment {
	return s.controller.Transcript()
}

// TranscriptionService manages transcription sessions: it builds the audio
// source, runs the pipeline controller, writes the transcript file and fans
// events out to the broadcaster.
type TranscriptionService struct {
	cfg         ServiceConfig
	transcriber repository.Transcriber
	broadcaster Broadcaster
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewTranscriptionService creates a new transcription service.
func NewTranscriptionService(
	cfg ServiceConfig,
	transcriber repository.Transcriber,
	broadcaster Broadcaster,
	logger *zap.Logger,
) *TranscriptionService {
	cfg.applyDefaults()
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &TranscriptionService{
		cfg:         cfg,
		transcriber: transcriber,
		broadcaster: broadcaster,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// StartFileSession starts a session transcribing a WAV file.
func (s *TranscriptionService) StartFileSession(ctx context.Context, path string, opts entities.RecognitionOptions) (*Session, error) {
	source := audio.NewFileSource(path, s.logger)
	return s.start(ctx, "file", source, nil, opts)
}

// StartCaptureSession starts a session fed by pushed capture audio. The
// caller streams PCM via PushAudio and ends the stream with StopSession.
func (s *TranscriptionService) StartCaptureSession(ctx context.Context, opts entities.RecognitionOptions) (*Session, error) {
	capture := audio.NewCaptureSource(s.logger)
	return s.start(ctx, "capture", capture, capture, opts)
}

func (s *TranscriptionService) start(ctx context.Context, sourceKind string, source repository.AudioSource, capture *audio.CaptureSource, opts entities.RecognitionOptions) (*Session, error) {
	if opts.SpeakerCount == 0 {
		opts.SpeakerCount = 2
	}

	var store repository.ChunkStore
	if s.cfg.PersistChunks {
		dirStore, err := audio.NewDirChunkStore(s.cfg.ChunkDir, s.logger)
		if err != nil {
			return nil, fmt.Errorf("prepare chunk store: %w", err)
		}
		store = dirStore
	}

	id := uuid.New().String()

	if err := os.MkdirAll(s.cfg.TranscriptDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare transcript directory: %w", err)
	}
	sink, err := transcript.NewFileWriter(filepath.Join(s.cfg.TranscriptDir, id+".txt"), s.logger)
	if err != nil {
		return nil, err
	}

	controller := pipeline.NewController(s.cfg.Pipeline, source, s.transcriber, store, opts, s.logger)
	session := &Session{
		ID:         id,
		Source:     sourceKind,
		StartedAt:  time.Now(),
		controller: controller,
		capture:    capture,
		sink:       sink,
	}

	if err := controller.Start(ctx); err != nil {
		sink.Close()
		return nil, err
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	go s.consume(session)

	s.logger.Info("transcription session started",
		zap.String("session", id),
		zap.String("source", sourceKind),
		zap.Int("speakers", opts.SpeakerCount))
	return session, nil
}

// consume relays pipeline events to the broadcaster and the transcript file
// until the run terminates.
func (s *TranscriptionService) consume(session *Session) {
	for event := range session.controller.Events() {
		if event.Type == entities.EventTranscriptAppended {
			if err := session.sink.Append(event.Segments...); err != nil {
				s.logger.Error("appending to transcript file",
					zap.String("session", session.ID), zap.Error(err))
			}
		}
		s.broadcaster.Broadcast(session.ID, event)
	}
	if err := session.sink.Close(); err != nil {
		s.logger.Warn("closing transcript file",
			zap.String("session", session.ID), zap.Error(err))
	}
	s.logger.Info("transcription session finished",
		zap.String("session", session.ID),
		zap.String("state", string(session.State())))
}

// PushAudio feeds PCM samples into a capture session.
func (s *TranscriptionService) PushAudio(sessionID string, samples []int16) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if session.capture == nil {
		return fmt.Errorf("session %s is not a capture session", sessionID)
	}
	session.capture.Push(samples)
	return nil
}

// StopSession requests a graceful stop: queued chunks are still transcribed.
func (s *TranscriptionService) StopSession(sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if session.capture != nil {
		session.capture.Finish()
	}
	session.controller.Stop()
	return nil
}

// Session looks up a session by ID.
func (s *TranscriptionService) Session(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("unknown session %s", sessionID)
	}
	return session, nil
}

// Sessions returns all sessions in no particular order.
func (s *TranscriptionService) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

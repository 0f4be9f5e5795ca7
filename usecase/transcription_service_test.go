package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/internal/audioio"
	"github.com/satriahrh/swara/internal/pipeline"
)

type stubTranscriber struct {
	mu    sync.Mutex
	calls int
}

func (f *stubTranscriber) Transcribe(ctx context.Context, chunk *entities.AudioChunk, opts entities.RecognitionOptions) ([]entities.RawSegment, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	speaker := 0
	return []entities.RawSegment{
		{Start: 0.2, End: 0.8, Text: fmt.Sprintf("words from chunk %d", chunk.Sequence), SpeakerID: &speaker},
	}, nil
}

// recordingBroadcaster collects events and signals run termination.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []entities.Event
	done   chan struct{}
	once   sync.Once
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{done: make(chan struct{})}
}

func (b *recordingBroadcaster) Broadcast(sessionID string, event entities.Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	if event.Type == entities.EventCompleted || event.Type == entities.EventError {
		b.once.Do(func() { close(b.done) })
	}
}

func (b *recordingBroadcaster) wait(t *testing.T) []entities.Event {
	t.Helper()
	select {
	case <-b.done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for the session to finish")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]entities.Event, len(b.events))
	copy(out, b.events)
	return out
}

func testServiceConfig(t *testing.T) ServiceConfig {
	t.Helper()
	base := t.TempDir()
	return ServiceConfig{
		TranscriptDir: filepath.Join(base, "transcripts"),
		ChunkDir:      filepath.Join(base, "chunks"),
		Pipeline: pipeline.Config{
			ChunkDuration: time.Second,
			SampleRate:    entities.DefaultSampleRate,
			Workers:       2,
		},
	}
}

func TestFileSessionWritesTranscript(t *testing.T) {
	cfg := testServiceConfig(t)
	wavPath := filepath.Join(t.TempDir(), "input.wav")
	// 2.5s of audio: two full chunks plus a residual.
	samples := make([]int16, 2*entities.DefaultSampleRate+entities.DefaultSampleRate/2)
	if err := os.WriteFile(wavPath, audioio.EncodeWAV(samples, entities.DefaultSampleRate), 0o644); err != nil {
		t.Fatalf("writing input WAV: %v", err)
	}

	broadcaster := newRecordingBroadcaster()
	service := NewTranscriptionService(cfg, &stubTranscriber{}, broadcaster, zap.NewNop())

	session, err := service.StartFileSession(context.Background(), wavPath, entities.RecognitionOptions{SpeakerCount: 2})
	if err != nil {
		t.Fatalf("StartFileSession returned error: %v", err)
	}
	events := broadcaster.wait(t)

	if got := session.State(); got != entities.PipelineCompleted {
		t.Errorf("State = %s, want %s", got, entities.PipelineCompleted)
	}
	if got := len(session.Transcript()); got != 3 {
		t.Errorf("Transcript has %d segments, want 3", got)
	}

	var appended int
	for _, event := range events {
		if event.Type == entities.EventTranscriptAppended {
			appended++
		}
	}
	if appended != 3 {
		t.Errorf("Broadcast %d transcript events, want 3", appended)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.TranscriptDir, session.ID+".txt"))
	if err != nil {
		t.Fatalf("Reading transcript file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Transcript file has %d lines, want 3: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "Speaker 1: words from chunk 0") {
		t.Errorf("Unexpected first line: %q", lines[0])
	}
}

func TestCaptureSessionStopDrains(t *testing.T) {
	cfg := testServiceConfig(t)
	broadcaster := newRecordingBroadcaster()
	transcriber := &stubTranscriber{}
	service := NewTranscriptionService(cfg, transcriber, broadcaster, zap.NewNop())

	session, err := service.StartCaptureSession(context.Background(), entities.RecognitionOptions{SpeakerCount: 2})
	if err != nil {
		t.Fatalf("StartCaptureSession returned error: %v", err)
	}

	// Push 1.5 chunks worth, then stop immediately: both the full chunk and
	// the residual must still be transcribed even though the drain loop has
	// not ticked yet.
	if err := service.PushAudio(session.ID, make([]int16, entities.DefaultSampleRate+entities.DefaultSampleRate/2)); err != nil {
		t.Fatalf("PushAudio returned error: %v", err)
	}
	if err := service.StopSession(session.ID); err != nil {
		t.Fatalf("StopSession returned error: %v", err)
	}
	broadcaster.wait(t)

	if got := session.State(); got != entities.PipelineCompleted {
		t.Errorf("State = %s, want %s", got, entities.PipelineCompleted)
	}
	if got := len(session.Transcript()); got != 2 {
		t.Errorf("Transcript has %d segments, want 2", got)
	}
}

func TestPushAudioRejectsFileSession(t *testing.T) {
	cfg := testServiceConfig(t)
	wavPath := filepath.Join(t.TempDir(), "input.wav")
	if err := os.WriteFile(wavPath, audioio.EncodeWAV(make([]int16, 100), entities.DefaultSampleRate), 0o644); err != nil {
		t.Fatalf("writing input WAV: %v", err)
	}

	broadcaster := newRecordingBroadcaster()
	service := NewTranscriptionService(cfg, &stubTranscriber{}, broadcaster, zap.NewNop())
	session, err := service.StartFileSession(context.Background(), wavPath, entities.RecognitionOptions{SpeakerCount: 2})
	if err != nil {
		t.Fatalf("StartFileSession returned error: %v", err)
	}

	if err := service.PushAudio(session.ID, []int16{1, 2}); err == nil {
		t.Error("PushAudio should fail for a file session")
	}
	broadcaster.wait(t)
}

func TestUnknownSession(t *testing.T) {
	service := NewTranscriptionService(testServiceConfig(t), &stubTranscriber{}, nil, zap.NewNop())
	if _, err := service.Session("missing"); err == nil {
		t.Error("Expected lookup of unknown session to fail")
	}
	if err := service.StopSession("missing"); err == nil {
		t.Error("Expected stop of unknown session to fail")
	}
}

func TestSessionsListsStarted(t *testing.T) {
	cfg := testServiceConfig(t)
	wavPath := filepath.Join(t.TempDir(), "input.wav")
	if err := os.WriteFile(wavPath, audioio.EncodeWAV(make([]int16, 100), entities.DefaultSampleRate), 0o644); err != nil {
		t.Fatalf("writing input WAV: %v", err)
	}

	broadcaster := newRecordingBroadcaster()
	service := NewTranscriptionService(cfg, &stubTranscriber{}, broadcaster, zap.NewNop())
	session, err := service.StartFileSession(context.Background(), wavPath, entities.RecognitionOptions{SpeakerCount: 2})
	if err != nil {
		t.Fatalf("StartFileSession returned error: %v", err)
	}

	sessions := service.Sessions()
	if len(sessions) != 1 || sessions[0].ID != session.ID {
		t.Errorf("Sessions() = %v, want the one started session", sessions)
	}
	broadcaster.wait(t)
}

package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/internal/audioio"
)

func writeTestWAV(t *testing.T, samples []int16, sampleRate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.wav")
	if err := os.WriteFile(path, audioio.EncodeWAV(samples, sampleRate), 0o644); err != nil {
		t.Fatalf("writing test WAV: %v", err)
	}
	return path
}

func drainBlocks(blocks <-chan entities.SampleBlock) []int16 {
	var all []int16
	for block := range blocks {
		all = append(all, block.Samples...)
	}
	return all
}

func TestFileSourceStreamsAllSamples(t *testing.T) {
	samples := make([]int16, 5000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	source := NewFileSource(writeTestWAV(t, samples, entities.DefaultSampleRate), zap.NewNop())

	blocks, err := source.Open(context.Background())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	got := drainBlocks(blocks)

	if len(got) != len(samples) {
		t.Fatalf("Streamed %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("Sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
	if err := source.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

func TestFileSourceResamplesToPipelineRate(t *testing.T) {
	// One second of 8kHz audio should come out as one second at 16kHz.
	samples := make([]int16, 8000)
	source := NewFileSource(writeTestWAV(t, samples, 8000), zap.NewNop())

	blocks, err := source.Open(context.Background())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	got := drainBlocks(blocks)
	if len(got) != 16000 {
		t.Errorf("Streamed %d samples, want 16000 after resampling", len(got))
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "nope.wav"), zap.NewNop())
	if _, err := source.Open(context.Background()); err == nil {
		t.Error("Expected Open to fail for a missing file")
	}
}

func TestFileSourceInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	source := NewFileSource(path, zap.NewNop())
	if _, err := source.Open(context.Background()); err == nil {
		t.Error("Expected Open to fail for a non-WAV file")
	}
}

func TestFileSourceCloseStopsStream(t *testing.T) {
	samples := make([]int16, 100000)
	source := NewFileSource(writeTestWAV(t, samples, entities.DefaultSampleRate), zap.NewNop())

	blocks, err := source.Open(context.Background())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	<-blocks
	if err := source.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	// The stream must terminate rather than block forever.
	for range blocks {
	}
	if err := source.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}
}

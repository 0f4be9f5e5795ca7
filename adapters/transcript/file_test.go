package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
)

func TestFileWriterAppendsFormattedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	writer, err := NewFileWriter(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileWriter returned error: %v", err)
	}

	err = writer.Append(
		entities.Segment{Start: 0.5, End: 4.2, Speaker: "Speaker 1", Text: "hello"},
		entities.Segment{Start: 4.2, End: 65.0, Speaker: "Speaker 2", Text: "hi there"},
	)
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading transcript file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	want := []string{
		"[00:00 - 00:04] Speaker 1: hello",
		"[00:04 - 01:05] Speaker 2: hi there",
	}
	if len(lines) != len(want) {
		t.Fatalf("Got %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestFileWriterCloseIsIdempotent(t *testing.T) {
	writer, err := NewFileWriter(filepath.Join(t.TempDir(), "out.txt"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileWriter returned error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}
}

func TestFileWriterAppendAfterClose(t *testing.T) {
	writer, err := NewFileWriter(filepath.Join(t.TempDir(), "out.txt"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileWriter returned error: %v", err)
	}
	writer.Close()
	if err := writer.Append(entities.Segment{Start: 0, End: 1, Speaker: "Speaker 1", Text: "late"}); err == nil {
		t.Error("Append after Close should fail")
	}
}

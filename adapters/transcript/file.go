// Package transcript provides transcript sink adapters.
package transcript

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/repository"
)

// FileWriter appends segments to a plain-text transcript file, one line per
// segment in the documented [MM:SS - MM:SS] Speaker: text format.
type FileWriter struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// Ensure FileWriter implements the TranscriptSink interface
var _ repository.TranscriptSink = (*FileWriter)(nil)

// NewFileWriter creates (truncating) the transcript file at path.
func NewFileWriter(path string, logger *zap.Logger) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create transcript file: %w", err)
	}
	return &FileWriter{path: path, logger: logger, file: f}, nil
}

// Append writes one formatted line per segment.
func (w *FileWriter) Append(segments ...entities.Segment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("transcript file %s already closed", w.path)
	}
	for _, seg := range segments {
		if _, err := fmt.Fprintln(w.file, seg.Format()); err != nil {
			return fmt.Errorf("write transcript line: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the file. Safe to call multiple times.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.logger.Info("transcript written", zap.String("path", w.path))
	return w.file.Close()
}

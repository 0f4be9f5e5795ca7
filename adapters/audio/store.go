package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/internal/audioio"
	"github.com/satriahrh/swara/repository"
)

// DirChunkStore writes each chunk to a directory as chunk_NNN.wav. Stale
// chunk files from a previous run are swept when the store is created.
type DirChunkStore struct {
	dir    string
	logger *zap.Logger
}

// Ensure DirChunkStore implements the ChunkStore interface
var _ repository.ChunkStore = (*DirChunkStore)(nil)

// NewDirChunkStore creates the directory if needed and removes old .wav
// files left over from earlier recordings.
func NewDirChunkStore(dir string, logger *zap.Logger) (*DirChunkStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chunk directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wav") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("removing stale chunk file", zap.String("path", path), zap.Error(err))
		}
	}

	return &DirChunkStore{dir: dir, logger: logger}, nil
}

// Save writes one chunk as a WAV file named by its sequence index.
func (s *DirChunkStore) Save(chunk *entities.AudioChunk) error {
	name := fmt.Sprintf("chunk_%03d.wav", chunk.Sequence+1)
	path := filepath.Join(s.dir, name)
	data := audioio.EncodeWAV(chunk.Samples, chunk.SampleRate)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write chunk file: %w", err)
	}
	s.logger.Debug("chunk persisted", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

package filesystem

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/earthwork-discovery/internal/domain"
	"go.uber.org/zap"
)

// RunDirLayout is the timestamp layout of run directories.
const RunDirLayout = "20060102_150405"

// artifactPaths maps output kinds to their place inside a run directory.
var artifactPaths = map[string]string{
	domain.OutputModel:      filepath.Join("models", "classifier.json"),
	domain.OutputCheckpoint: filepath.Join("results", "checkpoint.json"),
	domain.OutputHotspots:   filepath.Join("results", "hotspots.json"),
	domain.OutputNarrative:  filepath.Join("results", "narrative.md"),
	domain.OutputMetrics:    filepath.Join("results", "metrics.prom"),
	domain.OutputMap:        filepath.Join("maps", "discovery_map.html"),
}

// ArtifactStore writes the outputs of one run below root/<timestamp>.
type ArtifactStore struct {
	dir    string
	logger *zap.Logger
}

func NewArtifactStore(root string, started time.Time, logger *zap.Logger) (*ArtifactStore, error) {
	dir := filepath.Join(root, started.Format(RunDirLayout))
	for _, sub := range []string{"models", "results", "maps"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	logger.Info("Output directory ready", zap.String("dir", dir))
	return &ArtifactStore{dir: dir, logger: logger}, nil
}

func (s *ArtifactStore) Dir() string { return s.dir }

// Path returns where kind is written. Unknown kinds land in results/.
func (s *ArtifactStore) Path(kind string) string {
	if rel, ok := artifactPaths[kind]; ok {
		return filepath.Join(s.dir, rel)
	}
	return filepath.Join(s.dir, "results", kind)
}

// Write streams kind through fn into a temporary file renamed into place
// once fn succeeds.
func (s *ArtifactStore) Write(kind string, fn func(w io.Writer) error) (string, error) {
	path := s.Path(kind)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", kind, err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", kind, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write %s: %w", kind, err)
	}

	s.logger.Debug("Artifact written", zap.String("kind", kind), zap.String("path", path))
	return path, nil
}

func (s *ArtifactStore) WriteJSON(kind string, v interface{}) (string, error) {
	return s.Write(kind, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// ReadCheckpoint loads a checkpoint written by a previous run.
func ReadCheckpoint(path string) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	if err := readJSON(path, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func ReadHotspots(path string) ([]domain.Hotspot, error) {
	var hotspots []domain.Hotspot
	if err := readJSON(path, &hotspots); err != nil {
		return nil, err
	}
	return hotspots, nil
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArtifactStoreLayout(t *testing.T) {
	root := t.TempDir()
	started := time.Date(2024, 6, 1, 10, 30, 15, 0, time.UTC)

	store, err := NewArtifactStore(root, started, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "20240601_103015"), store.Dir())
	assert.Equal(t, filepath.Join(store.Dir(), "maps", "discovery_map.html"), store.Path(domain.OutputMap))
	assert.Equal(t, filepath.Join(store.Dir(), "models", "classifier.json"), store.Path(domain.OutputModel))
	assert.Equal(t, filepath.Join(store.Dir(), "results", "extra.txt"), store.Path("extra.txt"))
	for _, sub := range []string{"models", "results", "maps"} {
		assert.DirExists(t, filepath.Join(store.Dir(), sub))
	}
}

func TestArtifactStoreCheckpointRoundTrip(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir(), time.Now(), zap.NewNop())
	require.NoError(t, err)

	cp := &domain.Checkpoint{
		RunID:   uuid.New(),
		Backend: "reference",
		Metrics: domain.ModelMetrics{TestAUC: 0.77, CVAUC: []float64{0.7, 0.8}},
		Outputs: map[string]string{domain.OutputMap: "maps/discovery_map.html"},
	}
	hotspots := []domain.Hotspot{{Rank: 1, Lat: -9.9, Lon: -67.1, Confidence: domain.ConfidenceHigh}}

	cpPath, err := store.WriteJSON(domain.OutputCheckpoint, cp)
	require.NoError(t, err)
	hsPath, err := store.WriteJSON(domain.OutputHotspots, hotspots)
	require.NoError(t, err)

	gotCP, err := ReadCheckpoint(cpPath)
	require.NoError(t, err)
	assert.Equal(t, cp.RunID, gotCP.RunID)
	assert.Equal(t, cp.Metrics, gotCP.Metrics)

	gotHS, err := ReadHotspots(hsPath)
	require.NoError(t, err)
	assert.Equal(t, hotspots, gotHS)
}

func TestArtifactStoreFailedWriteLeavesNothing(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir(), time.Now(), zap.NewNop())
	require.NoError(t, err)

	_, err = store.Write(domain.OutputNarrative, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("boom")
	})
	require.Error(t, err)

	_, statErr := os.Stat(store.Path(domain.OutputNarrative))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
	entries, err := os.ReadDir(filepath.Join(store.Dir(), "results"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package testhelpers

import (
	"time"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/google/uuid"
)

// SampleRun returns a finished checkpoint with two ranked hotspots.
func SampleRun(finished time.Time) (*domain.Checkpoint, []domain.Hotspot) {
	cp := &domain.Checkpoint{
		RunID:      uuid.New(),
		StartedAt:  finished.Add(-15 * time.Minute),
		FinishedAt: finished,
		Backend:    "parallel",
		Tiles: domain.TileSelection{
			Selected:   []string{"S10W068_FABDEM_V1-2.tif"},
			TotalTiles: 4,
			TotalSites: 120,
		},
		Dataset: domain.DatasetStats{Positives: 120, Negatives: 100, Features: []string{"elevation", "slope"}},
		Metrics: domain.ModelMetrics{TrainAUC: 0.93, TestAUC: 0.81, CVAUC: []float64{0.8, 0.82}, CVMean: 0.81, CVStd: 0.01},
		Outputs: map[string]string{domain.OutputMap: "maps/discovery_map.html"},
	}
	hotspots := []domain.Hotspot{
		{Rank: 1, Lat: -9.91, Lon: -67.12, MeanProb: 0.82, MaxProb: 0.9, Count: 14, Tile: "S10W068_FABDEM_V1-2.tif", Confidence: domain.ConfidenceHigh},
		{Rank: 2, Lat: -9.55, Lon: -67.48, MeanProb: 0.61, MaxProb: 0.7, Count: 5, Tile: "S10W068_FABDEM_V1-2.tif", Confidence: domain.ConfidenceMedium, Deforested: true},
	}
	cp.HotspotCount = len(hotspots)
	return cp, hotspots
}

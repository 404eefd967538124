package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunCompletedEvent(t *testing.T) {
	cp := &Checkpoint{
		RunID:      uuid.New(),
		FinishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Metrics:    ModelMetrics{TestAUC: 0.81},
		Outputs: map[string]string{
			OutputMap:        "outputs/run/maps/discovery_map.html",
			OutputCheckpoint: "outputs/run/results/checkpoint.json",
		},
	}

	t.Run("with hotspots", func(t *testing.T) {
		hotspots := []Hotspot{
			{Rank: 1, Lat: -9.9, Lon: -67.1, MeanProb: 0.9},
			{Rank: 2, Lat: -9.8, Lon: -67.0, MeanProb: 0.6},
		}
		ev := NewRunCompletedEvent(cp, hotspots)

		assert.Equal(t, cp.RunID, ev.RunID)
		assert.Equal(t, 2, ev.HotspotCount)
		assert.Equal(t, 0.81, ev.TestAUC)
		require.NotNil(t, ev.TopHotspot)
		assert.Equal(t, 1, ev.TopHotspot.Rank)
		assert.Equal(t, "outputs/run/maps/discovery_map.html", ev.MapPath)
		assert.Equal(t, "outputs/run/results/checkpoint.json", ev.CheckpointPath)

		hotspots[0].Rank = 99
		assert.Equal(t, 1, ev.TopHotspot.Rank, "event must not alias the input slice")
	})

	t.Run("without hotspots", func(t *testing.T) {
		ev := NewRunCompletedEvent(cp, nil)
		assert.Zero(t, ev.HotspotCount)
		assert.Nil(t, ev.TopHotspot)
	})
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		prob     float64
		expected string
	}{
		{0.95, ConfidenceHigh},
		{0.71, ConfidenceHigh},
		{0.7, ConfidenceMedium},
		{0.51, ConfidenceMedium},
		{0.5, ConfidenceLow},
		{0.1, ConfidenceLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ConfidenceFor(tt.prob), "prob %v", tt.prob)
	}
}

func TestBoundingBox(t *testing.T) {
	box := BoundingBox{MinLon: -61, MinLat: -1, MaxLon: -60, MaxLat: 0}

	assert.True(t, box.Contains(Point{Lat: -0.5, Lon: -60.5}))
	assert.True(t, box.Contains(Point{Lat: 0, Lon: -60}), "edges are inclusive")
	assert.False(t, box.Contains(Point{Lat: 0.0001, Lon: -60.5}))
	assert.Equal(t, Point{Lat: -0.5, Lon: -60.5}, box.Center())
}

func TestTotalBounds(t *testing.T) {
	_, ok := TotalBounds(nil)
	assert.False(t, ok)

	box, ok := TotalBounds([]Point{
		{Lat: -9.5, Lon: -67.2},
		{Lat: -10.1, Lon: -66.8},
		{Lat: -9.9, Lon: -67.5},
	})
	require.True(t, ok)
	assert.Equal(t, BoundingBox{MinLon: -67.5, MinLat: -10.1, MaxLon: -66.8, MaxLat: -9.5}, box)
}

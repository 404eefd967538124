package usecase_test

import (
	"testing"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockContainment struct {
	mock.Mock
}

func (m *MockContainment) Empty() bool {
	return m.Called().Bool(0)
}

func (m *MockContainment) Contains(p domain.Point) bool {
	return m.Called(p).Bool(0)
}

func pred(lat, lon, prob float64) usecase.Prediction {
	return usecase.Prediction{Point: domain.Point{Lat: lat, Lon: lon}, Probability: prob, Tile: "S10W068_FABDEM_V1-2.tif"}
}

func defaultHotspotOptions() usecase.HotspotOptions {
	return usecase.HotspotOptions{
		Threshold:         0.5,
		MergeDistanceKm:   1.0,
		MinSiteDistanceKm: 0.5,
		Top:               20,
	}
}

func TestHotspotsClusterAndRank(t *testing.T) {
	uc := usecase.NewHotspotUseCase(defaultHotspotOptions(), zap.NewNop())

	preds := []usecase.Prediction{
		pred(-9.500, -67.500, 0.60),
		pred(-9.502, -67.500, 0.90), // 0.22 km from the first
		pred(-9.800, -67.200, 0.72),
		pred(-9.300, -67.900, 0.50), // not above threshold
		pred(-9.100, -67.100, 0.20),
	}

	hotspots := uc.Find(preds, nil, nil)

	require.Len(t, hotspots, 2)
	first, second := hotspots[0], hotspots[1]

	assert.Equal(t, 1, first.Rank)
	assert.InDelta(t, 0.75, first.MeanProb, 1e-12)
	assert.Equal(t, 0.90, first.MaxProb)
	assert.Equal(t, 2, first.Count)
	assert.InDelta(t, -9.501, first.Lat, 1e-12)
	assert.InDelta(t, -67.5, first.Lon, 1e-12)
	assert.Equal(t, domain.ConfidenceHigh, first.Confidence)

	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, 0.72, second.MeanProb)
	assert.Equal(t, 1, second.Count)
	assert.Equal(t, "S10W068_FABDEM_V1-2.tif", second.Tile)
	assert.False(t, second.Deforested)
}

func TestHotspotsSkipKnownSites(t *testing.T) {
	uc := usecase.NewHotspotUseCase(defaultHotspotOptions(), zap.NewNop())
	sites := []domain.KnownSite{{ID: 1, Point: domain.Point{Lat: -9.5, Lon: -67.5}}}

	hotspots := uc.Find([]usecase.Prediction{
		pred(-9.501, -67.5, 0.95), // 0.11 km from the site
		pred(-9.520, -67.5, 0.65), // 2.2 km away
	}, sites, nil)

	require.Len(t, hotspots, 1)
	assert.Equal(t, 0.65, hotspots[0].MeanProb)
	assert.Equal(t, domain.ConfidenceMedium, hotspots[0].Confidence)
}

func TestHotspotsDeforestation(t *testing.T) {
	inside := domain.Point{Lat: -9.5, Lon: -67.5}
	outside := domain.Point{Lat: -9.9, Lon: -67.9}

	defor := new(MockContainment)
	defor.On("Empty").Return(false)
	defor.On("Contains", inside).Return(true)
	defor.On("Contains", outside).Return(false)

	preds := []usecase.Prediction{
		{Point: inside, Probability: 0.8},
		{Point: outside, Probability: 0.9},
	}

	t.Run("flag only", func(t *testing.T) {
		hotspots := usecase.NewHotspotUseCase(defaultHotspotOptions(), zap.NewNop()).Find(preds, nil, defor)
		require.Len(t, hotspots, 2)
		assert.False(t, hotspots[0].Deforested)
		assert.True(t, hotspots[1].Deforested)
	})

	t.Run("mask", func(t *testing.T) {
		opts := defaultHotspotOptions()
		opts.MaskDeforested = true
		hotspots := usecase.NewHotspotUseCase(opts, zap.NewNop()).Find(preds, nil, defor)
		require.Len(t, hotspots, 1)
		assert.True(t, hotspots[0].Deforested)
		assert.Equal(t, 0.8, hotspots[0].MeanProb)
	})
}

func TestHotspotsTopN(t *testing.T) {
	opts := defaultHotspotOptions()
	opts.Top = 3
	uc := usecase.NewHotspotUseCase(opts, zap.NewNop())

	var preds []usecase.Prediction
	for i := 0; i < 10; i++ {
		preds = append(preds, pred(-9+float64(i)*0.1, -67, 0.51+float64(i)*0.04))
	}

	hotspots := uc.Find(preds, nil, nil)

	require.Len(t, hotspots, 3)
	for i, h := range hotspots {
		assert.Equal(t, i+1, h.Rank)
	}
	assert.InDelta(t, 0.87, hotspots[0].MeanProb, 1e-12)
	assert.Greater(t, hotspots[0].MeanProb, hotspots[1].MeanProb)
}

func TestHotspotsNone(t *testing.T) {
	uc := usecase.NewHotspotUseCase(defaultHotspotOptions(), zap.NewNop())
	assert.Empty(t, uc.Find(nil, nil, nil))
}

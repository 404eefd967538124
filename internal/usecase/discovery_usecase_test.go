package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/earthwork-discovery/internal/config"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/features"
	"github.com/earthwork-discovery/internal/infrastructure/genai"
	"github.com/earthwork-discovery/internal/metrics"
	apperrors "github.com/earthwork-discovery/internal/pkg/errors"
	"github.com/earthwork-discovery/internal/raster"
	"github.com/earthwork-discovery/internal/sampling"
	"github.com/earthwork-discovery/internal/usecase"
	"github.com/earthwork-discovery/internal/visualization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

var runStarted = time.Date(2024, 6, 1, 10, 30, 15, 0, time.UTC)

func smallModel() config.ModelConfig {
	return config.ModelConfig{
		NEstimators:     20,
		LearningRate:    0.3,
		MaxDepth:        3,
		MinChildWeight:  1,
		Subsample:       1,
		ColsampleByTree: 1,
		RegAlpha:        0,
		RegLambda:       1,
		TestFraction:    0.25,
		CVFolds:         3,
	}
}

type DiscoveryUseCaseSuite struct {
	suite.Suite

	elevation *MockElevationRepository
	sites     *MockSiteRepository
	waterways *MockWaterwayRepository
	results   *MockResultsRepository
	stream    *MockStreamRepository
	store     *memoryStore
	metrics   *metrics.Pipeline
	uc        *usecase.DiscoveryUseCase
}

func (s *DiscoveryUseCaseSuite) SetupTest() {
	logger := zap.NewNop()
	s.elevation = new(MockElevationRepository)
	s.sites = new(MockSiteRepository)
	s.waterways = new(MockWaterwayRepository)
	s.results = new(MockResultsRepository)
	s.stream = new(MockStreamRepository)
	s.store = newMemoryStore(s.T().TempDir())
	s.metrics = metrics.NewPipeline()

	backend := raster.NewReference()
	fuc := usecase.NewFeatureUseCase(
		s.elevation,
		nil,
		features.NewTopographicCalculator(backend, logger),
		features.NewSpectralCalculator(logger),
		features.NewTemporalCalculator(tileSize, tileSize, logger),
		s.metrics,
		logger,
	)
	sampler := sampling.NewNegativeSampler(rand.New(rand.NewPCG(42, 43)), logger)

	s.uc = usecase.NewDiscoveryUseCase(usecase.DiscoveryDeps{
		Tiles:      usecase.NewTileUseCase(s.elevation, s.sites, 0, logger),
		Features:   fuc,
		Dataset:    usecase.NewDatasetUseCase(fuc, sampler, backend, s.metrics, logger),
		Training:   usecase.NewTrainingUseCase(smallModel(), 42, s.metrics, logger),
		Prediction: usecase.NewPredictionUseCase(4, s.metrics, logger),
		Hotspots: usecase.NewHotspotUseCase(usecase.HotspotOptions{
			Threshold:         0.5,
			MergeDistanceKm:   2,
			MinSiteDistanceKm: 1,
			Top:               5,
		}, logger),
		Waterways: s.waterways,
		Results:   s.results,
		Stream:    s.stream,
		Narrator:  genai.NewNarrator(nil, logger),
		Map:       visualization.NewMapRenderer(logger),
		NewStore: func(time.Time) (usecase.ArtifactStore, error) {
			return s.store, nil
		},
		Backend: backend,
		Metrics: s.metrics,
		Clock:   func() time.Time { return runStarted },
		Logger:  logger,
	})
}

func (s *DiscoveryUseCaseSuite) expectTiles(sites []domain.KnownSite) {
	s.sites.On("LoadSites", mock.Anything).Return(sites, nil)
	s.elevation.On("ListTiles", mock.Anything).Return([]string{tileName, emptyTile}, nil)
	s.elevation.On("LoadTile", mock.Anything, tileName).Return(syntheticTile(tileName, sites), nil)
}

func (s *DiscoveryUseCaseSuite) TestRunProducesOutputs() {
	ctx := context.Background()
	s.expectTiles(knownSites(12))

	river := geom.LineString{{X: -67.5, Y: -10}, {X: -67.5, Y: -9}}
	s.waterways.On("Waterways", mock.Anything, domain.BoundingBox{MinLon: -68, MinLat: -10, MaxLon: -67, MaxLat: -9}).
		Return([]geom.Geom{river}, nil)
	s.results.On("SaveRun", mock.Anything, mock.AnythingOfType("*domain.Checkpoint"), mock.Anything).Return(nil)
	s.stream.On("PublishToStream", mock.Anything, domain.StreamDiscoveryDone, mock.AnythingOfType("domain.RunCompletedEvent")).Return(nil)

	res, err := s.uc.Run(ctx)
	s.Require().NoError(err)

	cp := res.Checkpoint
	s.Equal(runStarted, cp.StartedAt)
	s.Equal(raster.BackendReference, cp.Backend)
	s.Equal(12, cp.Dataset.Positives)
	s.Equal(24, cp.Dataset.Negatives)
	s.Equal(36, cp.Dataset.TrainRows+cp.Dataset.TestRows)
	s.Equal(features.FeatureRiverDistance, cp.Dataset.Features[len(cp.Dataset.Features)-1])
	s.GreaterOrEqual(cp.Metrics.TrainAUC, 0.5)
	s.Len(cp.Metrics.CVAUC, 3)
	s.Equal(len(res.Hotspots), cp.HotspotCount)
	for i := 1; i < len(res.Hotspots); i++ {
		s.GreaterOrEqual(res.Hotspots[i-1].MeanProb, res.Hotspots[i].MeanProb)
	}

	for _, kind := range []string{
		domain.OutputModel, domain.OutputMap, domain.OutputNarrative,
		domain.OutputHotspots, domain.OutputMetrics, domain.OutputCheckpoint,
	} {
		s.Equal(s.store.Path(kind), cp.Outputs[kind], kind)
	}
	s.NotEmpty(s.store.file(domain.OutputModel))
	s.Contains(string(s.store.file(domain.OutputMap)), "leaflet")
	s.Equal(res.Narrative, string(s.store.file(domain.OutputNarrative)))

	var saved domain.Checkpoint
	s.Require().NoError(json.Unmarshal(s.store.file(domain.OutputCheckpoint), &saved))
	s.Equal(cp.RunID, saved.RunID)
	s.Equal(cp.Outputs, saved.Outputs)

	var hotspots []domain.Hotspot
	s.Require().NoError(json.Unmarshal(s.store.file(domain.OutputHotspots), &hotspots))
	s.Len(hotspots, len(res.Hotspots))

	s.waterways.AssertExpectations(s.T())
	s.results.AssertExpectations(s.T())
	s.stream.AssertExpectations(s.T())

	ev := s.stream.Calls[0].Arguments.Get(2).(domain.RunCompletedEvent)
	s.Equal(cp.RunID, ev.RunID)
	s.Equal(s.store.Path(domain.OutputMap), ev.MapPath)
}

func (s *DiscoveryUseCaseSuite) TestResultsStoreFailureIsNotFatal() {
	s.expectTiles(knownSites(12))
	s.waterways.On("Waterways", mock.Anything, mock.Anything).Return(nil, errors.New("overpass: 429"))
	s.results.On("SaveRun", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	s.stream.On("PublishToStream", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	res, err := s.uc.Run(context.Background())
	s.Require().NoError(err)
	s.NotNil(res.Checkpoint)
	s.NotEmpty(s.store.file(domain.OutputCheckpoint))
}

func (s *DiscoveryUseCaseSuite) TestNoKnownSites() {
	s.sites.On("LoadSites", mock.Anything).Return([]domain.KnownSite{}, nil)

	_, err := s.uc.Run(context.Background())
	s.ErrorIs(err, apperrors.ErrNoKnownSites)
	s.Empty(s.store.files)
	s.results.AssertNotCalled(s.T(), "SaveRun", mock.Anything, mock.Anything, mock.Anything)
}

func (s *DiscoveryUseCaseSuite) TestCancelledRun() {
	s.expectTiles(knownSites(12))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.waterways.On("Waterways", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	_, err := s.uc.Run(ctx)
	s.ErrorIs(err, context.Canceled)
	s.stream.AssertNotCalled(s.T(), "PublishToStream", mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscoveryUseCaseSuite(t *testing.T) {
	suite.Run(t, new(DiscoveryUseCaseSuite))
}

func TestTrainingUseCase_SingleClass(t *testing.T) {
	ds := usecase.NewDataset()
	ds.Append(&features.Table{
		Columns: []string{features.FeatureElevation, features.FeatureRiverDistance},
		Rows: []features.Row{
			{Values: []float64{1, 2}},
			{Values: []float64{3, 4}},
		},
	}, []int{domain.LabelPositive, domain.LabelPositive}, tileName)

	_, err := usecase.NewTrainingUseCase(smallModel(), 42, metrics.NewPipeline(), zap.NewNop()).Train(ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientTraining)
}

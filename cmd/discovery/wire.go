package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/earthwork-discovery/internal/config"
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/earthwork-discovery/internal/features"
	"github.com/earthwork-discovery/internal/infrastructure/genai"
	"github.com/earthwork-discovery/internal/metrics"
	"github.com/earthwork-discovery/internal/raster"
	"github.com/earthwork-discovery/internal/repository/filesystem"
	"github.com/earthwork-discovery/internal/repository/overpass"
	"github.com/earthwork-discovery/internal/repository/postgres"
	redisRepo "github.com/earthwork-discovery/internal/repository/redis"
	"github.com/earthwork-discovery/internal/sampling"
	"github.com/earthwork-discovery/internal/usecase"
	"github.com/earthwork-discovery/internal/visualization"
	"go.uber.org/zap"
)

// sources are the input repositories shared by every command.
type sources struct {
	elevation repository.ElevationRepository
	sites     repository.SiteRepository
}

func newSources(cfg *config.Config, log *zap.Logger) sources {
	return sources{
		elevation: filesystem.NewElevationRepository(cfg.Data.DTMFolder, log),
		sites:     filesystem.NewSiteRepository(cfg.Data.KMLPath, log),
	}
}

// buildDiscovery wires a discovery run. The returned func releases the
// connections it opened.
func buildDiscovery(ctx context.Context, cfg *config.Config, log *zap.Logger) (usecase.DiscoveryDeps, func()) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("Failed to close resource", zap.Error(err))
			}
		}
	}

	src := newSources(cfg, log)
	backend := raster.SelectBackend(cfg.Backend.Accelerate, cfg.Backend.Workers, log)
	closers = append(closers, func() error { backend.Release(); return nil })
	m := metrics.NewPipeline()

	var imagery repository.ImageryRepository
	if cfg.Data.HLSFolder != "" || cfg.Data.CopernicusFolder != "" {
		imagery = filesystem.NewImageryRepository(filesystem.ImageryConfig{
			HLSFolder:        cfg.Data.HLSFolder,
			CopernicusFolder: cfg.Data.CopernicusFolder,
			PriorityTiles:    cfg.Data.PriorityTiles,
		}, log)
	} else {
		log.Warn("No imagery folders configured, spectral and temporal features disabled")
	}

	fuc := usecase.NewFeatureUseCase(
		src.elevation,
		imagery,
		features.NewTopographicCalculator(backend, log),
		features.NewSpectralCalculator(log),
		features.NewTemporalCalculator(cfg.Pipeline.TemporalRows, cfg.Pipeline.TemporalCols, log),
		m,
		log,
	)

	seed := cfg.Pipeline.RandomSeed
	sampler := sampling.NewNegativeSampler(rand.New(rand.NewPCG(seed, seed+1)), log)

	deps := usecase.DiscoveryDeps{
		Tiles:      usecase.NewTileUseCase(src.elevation, src.sites, cfg.Pipeline.MaxTiles, log),
		Features:   fuc,
		Dataset:    usecase.NewDatasetUseCase(fuc, sampler, backend, m, log),
		Training:   usecase.NewTrainingUseCase(cfg.Model, seed, m, log),
		Prediction: usecase.NewPredictionUseCase(cfg.Pipeline.PredictionStep, m, log),
		Hotspots: usecase.NewHotspotUseCase(usecase.HotspotOptions{
			Threshold:         cfg.Pipeline.Threshold,
			MergeDistanceKm:   cfg.Pipeline.MergeDistanceKm,
			MinSiteDistanceKm: cfg.Pipeline.MinSiteDistanceKm,
			MaskDeforested:    cfg.Pipeline.MaskDeforested,
			Top:               cfg.Pipeline.TopHotspots,
		}, log),
		StreamName: cfg.Redis.Stream,
		Map:        visualization.NewMapRenderer(log),
		NewStore: func(started time.Time) (usecase.ArtifactStore, error) {
			store, err := filesystem.NewArtifactStore(cfg.Data.OutputDir, started, log)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
		Backend: backend,
		Metrics: m,
		Logger:  log,
	}

	if cfg.Data.HydrographyPath != "" {
		deps.Hydrography = filesystem.NewGeometryRepository(cfg.Data.HydrographyPath, "rivers", log)
	}
	if cfg.Hydrography.OverpassURL != "" {
		deps.Waterways = overpass.NewWaterwayRepository(cfg.Hydrography.OverpassURL, cfg.Hydrography.OverpassTimeout, log)
	}
	if cfg.Data.DeforestationPath != "" {
		deps.Deforestation = filesystem.NewGeometryRepository(cfg.Data.DeforestationPath, "deforestation", log)
	}

	generator, err := genai.NewClient(ctx, cfg.Narrative, "", log)
	switch {
	case errors.Is(err, genai.ErrNoAPIKey):
		log.Warn("GENAI_API_KEY not set, narratives use the fallback text")
	case err != nil:
		log.Warn("Text generation unavailable, narratives use the fallback text", zap.Error(err))
	}
	deps.Narrator = genai.NewNarrator(generator, log)

	if cfg.Results.Enabled {
		db, err := postgres.New(&cfg.Results, log)
		if err != nil {
			log.Warn("Results store unavailable, run will not be stored", zap.Error(err))
		} else {
			closers = append(closers, db.Close)
			results := postgres.NewResultsRepository(db, log)
			if err := results.EnsureSchema(ctx); err != nil {
				log.Warn("Results schema unavailable, run will not be stored", zap.Error(err))
			} else {
				deps.Results = results
			}
		}
	}

	if cfg.Redis.Enabled {
		client, err := redisRepo.NewClient(&cfg.Redis, log)
		if err != nil {
			log.Warn("Redis unavailable, run event will not be published", zap.Error(err))
		} else {
			closers = append(closers, client.Close)
			deps.Stream = redisRepo.NewStreamRepository(client.Redis(), log)
		}
	}

	return deps, closeAll
}

package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/earthwork-discovery/internal/features"
	"github.com/earthwork-discovery/internal/metrics"
	"github.com/earthwork-discovery/internal/raster"
	"go.uber.org/zap"
)

// spectralOrder fixes the column order of spectral indices.
var spectralOrder = []string{
	features.IndexNDVI, features.IndexEVI2, features.IndexSAVI, features.IndexNDRE1,
	features.IndexBSI, features.IndexSCI, features.IndexAAI, features.IndexEDI,
}

// TileFeatures is the feature grid of one elevation tile.
type TileFeatures struct {
	Tile    *domain.ElevationTile
	Set     *features.Set
	Periods []string
	// Defaulted names features replaced by neutral values.
	Defaulted []string
}

// FeatureUseCase computes every feature raster of a tile.
type FeatureUseCase struct {
	elevation repository.ElevationRepository
	imagery   repository.ImageryRepository
	topo      *features.TopographicCalculator
	spectral  *features.SpectralCalculator
	temporal  *features.TemporalCalculator
	metrics   *metrics.Pipeline
	logger    *zap.Logger
}

// NewFeatureUseCase accepts a nil imagery repository; tiles then carry
// topographic features only.
func NewFeatureUseCase(
	elevation repository.ElevationRepository,
	imagery repository.ImageryRepository,
	topo *features.TopographicCalculator,
	spectral *features.SpectralCalculator,
	temporal *features.TemporalCalculator,
	m *metrics.Pipeline,
	logger *zap.Logger,
) *FeatureUseCase {
	return &FeatureUseCase{
		elevation: elevation,
		imagery:   imagery,
		topo:      topo,
		spectral:  spectral,
		temporal:  temporal,
		metrics:   m,
		logger:    logger,
	}
}

// Compute loads tile name and derives its topographic, spectral and
// temporal features on the elevation grid.
func (uc *FeatureUseCase) Compute(ctx context.Context, name string) (*TileFeatures, error) {
	tile, err := uc.elevation.LoadTile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load tile: %w", err)
	}

	topo, err := uc.topo.Compute(tile.Elevation)
	if err != nil {
		return nil, fmt.Errorf("topographic features of %s: %w", name, err)
	}
	tf := &TileFeatures{Tile: tile, Set: topo.Features, Defaulted: topo.Defaulted()}
	for _, f := range tf.Defaulted {
		uc.metrics.Fallbacks.WithLabelValues(f).Inc()
	}

	scenes := uc.loadScenes(ctx, tile)
	if latest := latestScene(scenes); latest != nil {
		indices := uc.spectral.Compute(latest.Bands)
		for _, idx := range spectralOrder {
			if r, ok := indices[idx]; ok {
				uc.add(tf, idx, r)
			}
		}
		uc.logger.Debug("Spectral indices computed",
			zap.String("tile", name),
			zap.String("scene", latest.ID),
			zap.Int("indices", len(indices)),
		)
	}

	rows, cols := tile.Elevation.Shape()
	temporal := uc.temporal.ComputeOnGrid(uc.ndviSeries(scenes), rows, cols)
	tf.Periods = temporal.Periods
	if !temporal.Sufficient {
		uc.metrics.Fallbacks.WithLabelValues("temporal").Inc()
		uc.logger.Warn("Insufficient temporal data, using neutral temporal features",
			zap.String("tile", name),
			zap.Int("periods", len(temporal.Periods)),
		)
	}
	for _, f := range temporal.Features.Names() {
		r, _ := temporal.Features.Get(f)
		uc.add(tf, f, r)
	}

	uc.logger.Info("Tile features computed",
		zap.String("tile", name),
		zap.Int("features", tf.Set.Len()),
		zap.Strings("defaulted", tf.Defaulted),
	)
	return tf, nil
}

func (uc *FeatureUseCase) add(tf *TileFeatures, name string, r *raster.Raster) {
	if err := tf.Set.Add(name, r); err != nil {
		uc.metrics.Fallbacks.WithLabelValues("shape").Inc()
		uc.logger.Warn("Feature dropped", zap.String("feature", name), zap.Error(err))
	}
}

func (uc *FeatureUseCase) loadScenes(ctx context.Context, tile *domain.ElevationTile) []domain.Scene {
	if uc.imagery == nil {
		return nil
	}
	set, err := uc.imagery.LoadForTile(ctx, tile)
	if err != nil {
		uc.metrics.Fallbacks.WithLabelValues("imagery").Inc()
		uc.logger.Warn("Imagery unavailable for tile", zap.String("tile", tile.Name), zap.Error(err))
		return nil
	}
	return set.Scenes
}

// ndviSeries builds one NDVI raster per temporal label. HLS scenes come
// first; a Copernicus scene only fills labels no HLS scene provides.
func (uc *FeatureUseCase) ndviSeries(scenes []domain.Scene) map[string]*raster.Raster {
	series := make(map[string]*raster.Raster)
	for _, source := range []string{domain.SourceHLS, domain.SourceCopernicus} {
		for _, s := range scenes {
			if s.Source != source {
				continue
			}
			if _, ok := series[s.Label]; ok {
				continue
			}
			if ndvi, ok := uc.spectral.Compute(s.Bands)[features.IndexNDVI]; ok {
				series[s.Label] = ndvi
			}
		}
	}
	return series
}

// latestScene picks the scene with the greatest label; ties keep the
// earlier scene.
func latestScene(scenes []domain.Scene) *domain.Scene {
	if len(scenes) == 0 {
		return nil
	}
	order := make([]int, len(scenes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scenes[order[a]].Label > scenes[order[b]].Label
	})
	return &scenes[order[0]]
}

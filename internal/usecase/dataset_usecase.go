package usecase

import (
	"context"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/features"
	"github.com/earthwork-discovery/internal/metrics"
	apperrors "github.com/earthwork-discovery/internal/pkg/errors"
	"github.com/earthwork-discovery/internal/pkg/memory"
	"github.com/earthwork-discovery/internal/raster"
	"github.com/earthwork-discovery/internal/sampling"
	"github.com/earthwork-discovery/internal/tile"
	"go.uber.org/zap"
)

// DatasetUseCase samples labelled feature rows from the selected tiles.
type DatasetUseCase struct {
	features *FeatureUseCase
	sampler  *sampling.NegativeSampler
	backend  raster.Backend
	metrics  *metrics.Pipeline
	logger   *zap.Logger
}

func NewDatasetUseCase(
	fuc *FeatureUseCase,
	sampler *sampling.NegativeSampler,
	backend raster.Backend,
	m *metrics.Pipeline,
	logger *zap.Logger,
) *DatasetUseCase {
	return &DatasetUseCase{
		features: fuc,
		sampler:  sampler,
		backend:  backend,
		metrics:  m,
		logger:   logger,
	}
}

// Build extracts the known sites of every tile as positives together with
// generated negatives. Tiles that fail to load are skipped.
func (uc *DatasetUseCase) Build(ctx context.Context, selected []tile.Coverage, extractor *features.Extractor) (*Dataset, error) {
	ds := NewDataset()

	for i, cov := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		uc.logger.Info("Processing tile",
			zap.Int("index", i+1),
			zap.Int("of", len(selected)),
			zap.String("tile", cov.Tile),
			zap.Int("sites", cov.Count()),
		)

		tf, err := uc.features.Compute(ctx, cov.Tile)
		if err != nil {
			uc.metrics.TilesFailed.Inc()
			uc.logger.Warn("Skipping tile", zap.String("tile", cov.Tile), zap.Error(err))
			continue
		}

		positives := domain.SitePoints(cov.Sites)
		negatives := uc.sampler.Generate(positives, tf.Tile.Bounds)

		points := make([]domain.Point, 0, len(positives)+len(negatives))
		labels := make([]int, 0, len(positives)+len(negatives))
		for _, p := range positives {
			points = append(points, p)
			labels = append(labels, domain.LabelPositive)
		}
		for _, p := range negatives {
			points = append(points, p)
			labels = append(labels, domain.LabelNegative)
		}

		table := extractor.Extract(points, tf.Set, tf.Tile.Transform)
		ds.Append(table, labels, cov.Tile)

		uc.metrics.TilesProcessed.Inc()
		uc.metrics.Samples.WithLabelValues("positive").Add(float64(len(positives)))
		uc.metrics.Samples.WithLabelValues("negative").Add(float64(len(negatives)))
		if n := table.DefaultedCount(); n > 0 {
			uc.metrics.Fallbacks.WithLabelValues("point").Add(float64(n))
		}

		memory.Cleanup("tile "+cov.Tile, uc.backend, uc.logger)
	}

	if ds.Len() == 0 {
		return nil, apperrors.ErrNoElevationTiles
	}
	pos, neg := ds.Counts()
	uc.logger.Info("Training dataset assembled",
		zap.Int("rows", ds.Len()),
		zap.Int("positives", pos),
		zap.Int("negatives", neg),
		zap.Int("features", len(ds.Columns)),
		zap.Int("defaulted_rows", ds.Defaulted),
	)
	return ds, nil
}

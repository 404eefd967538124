package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ctessum/geom"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/earthwork-discovery/internal/features"
	"github.com/earthwork-discovery/internal/geo"
	"github.com/earthwork-discovery/internal/metrics"
	"github.com/earthwork-discovery/internal/pkg/memory"
	"github.com/earthwork-discovery/internal/raster"
	"github.com/earthwork-discovery/internal/tile"
	"github.com/earthwork-discovery/internal/visualization"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArtifactStore persists the outputs of one run.
type ArtifactStore interface {
	Dir() string
	Path(kind string) string
	Write(kind string, fn func(w io.Writer) error) (string, error)
	WriteJSON(kind string, v interface{}) (string, error)
}

// ArtifactStoreFactory opens the output location of a run started at the
// given time.
type ArtifactStoreFactory func(started time.Time) (ArtifactStore, error)

type Narrator interface {
	Narrate(ctx context.Context, hotspots []domain.Hotspot, auc float64) string
}

type MapRenderer interface {
	Render(w io.Writer, in visualization.MapInput) error
}

// DiscoveryDeps wires the discovery run. Hydrography, Waterways,
// Deforestation, Results and Stream are optional.
type DiscoveryDeps struct {
	Tiles      *TileUseCase
	Features   *FeatureUseCase
	Dataset    *DatasetUseCase
	Training   *TrainingUseCase
	Prediction *PredictionUseCase
	Hotspots   *HotspotUseCase

	Hydrography   repository.GeometryRepository
	Waterways     repository.WaterwayRepository
	Deforestation repository.GeometryRepository
	Results       repository.ResultsRepository
	Stream        repository.StreamRepository
	StreamName    string

	Narrator Narrator
	Map      MapRenderer
	NewStore ArtifactStoreFactory
	Backend  raster.Backend
	Metrics  *metrics.Pipeline
	Clock    func() time.Time
	Logger   *zap.Logger
}

// RunResult summarises a finished run.
type RunResult struct {
	Checkpoint *domain.Checkpoint
	Hotspots   []domain.Hotspot
	Narrative  string
	Dir        string
}

// DiscoveryUseCase runs the whole pipeline: tile selection, features,
// training, prediction, hotspots and publication.
type DiscoveryUseCase struct {
	deps   DiscoveryDeps
	logger *zap.Logger
}

func NewDiscoveryUseCase(deps DiscoveryDeps) *DiscoveryUseCase {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.StreamName == "" {
		deps.StreamName = domain.StreamDiscoveryDone
	}
	return &DiscoveryUseCase{deps: deps, logger: deps.Logger}
}

// Run executes one discovery run. Only fatal conditions return an error;
// optional sinks log their failures.
func (uc *DiscoveryUseCase) Run(ctx context.Context) (*RunResult, error) {
	d := uc.deps
	started := d.Clock().UTC()
	runID := uuid.New()
	uc.logger.Info("Starting discovery run", zap.Stringer("run_id", runID))
	defer memory.Cleanup("end", d.Backend, uc.logger)

	done := d.Metrics.Stage("tile_selection")
	report, err := d.Tiles.Report(ctx)
	done()
	if err != nil {
		return nil, err
	}
	selected := report.Selection.Selected()
	area := selectionBounds(selected)

	store, err := d.NewStore(started)
	if err != nil {
		return nil, fmt.Errorf("prepare outputs: %w", err)
	}

	rivers := uc.riverIndex(ctx, area)
	deforestation := uc.deforestationIndex(ctx)
	extractor := features.NewExtractor(rivers, uc.logger)

	done = d.Metrics.Stage("dataset")
	ds, err := d.Dataset.Build(ctx, selected, extractor)
	done()
	if err != nil {
		return nil, err
	}

	done = d.Metrics.Stage("training")
	trained, err := d.Training.Train(ds)
	done()
	if err != nil {
		return nil, err
	}
	outputs := make(map[string]string)
	if path, err := store.Write(domain.OutputModel, trained.Classifier.Save); err != nil {
		uc.logger.Error("Failed to save classifier", zap.Error(err))
	} else {
		outputs[domain.OutputModel] = path
	}
	memory.Cleanup("training", d.Backend, uc.logger)

	done = d.Metrics.Stage("prediction")
	preds := uc.predict(ctx, trained, selected, extractor)
	done()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hotspots := d.Hotspots.Find(preds, report.Sites, deforestation)
	d.Metrics.Hotspots.Set(float64(len(hotspots)))

	if path, err := store.Write(domain.OutputMap, func(w io.Writer) error {
		return d.Map.Render(w, mapInput(area, preds, report.Sites, hotspots))
	}); err != nil {
		uc.logger.Error("Failed to write discovery map", zap.Error(err))
	} else {
		outputs[domain.OutputMap] = path
	}

	narrative := d.Narrator.Narrate(ctx, hotspots, trained.Metrics.TestAUC)
	if path, err := store.Write(domain.OutputNarrative, func(w io.Writer) error {
		_, err := io.WriteString(w, narrative)
		return err
	}); err != nil {
		uc.logger.Error("Failed to write narrative", zap.Error(err))
	} else {
		outputs[domain.OutputNarrative] = path
	}

	if path, err := store.WriteJSON(domain.OutputHotspots, hotspots); err != nil {
		uc.logger.Error("Failed to write hotspots", zap.Error(err))
	} else {
		outputs[domain.OutputHotspots] = path
	}

	if err := d.Metrics.WriteTextfile(store.Path(domain.OutputMetrics)); err != nil {
		uc.logger.Warn("Failed to write metrics", zap.Error(err))
	} else {
		outputs[domain.OutputMetrics] = store.Path(domain.OutputMetrics)
	}

	pos, neg := ds.Counts()
	outputs[domain.OutputCheckpoint] = store.Path(domain.OutputCheckpoint)
	cp := &domain.Checkpoint{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: d.Clock().UTC(),
		Backend:    d.Backend.Name(),
		Tiles:      report.Selection.Summary(report.TotalTiles),
		Dataset: domain.DatasetStats{
			Positives: pos,
			Negatives: neg,
			Defaulted: ds.Defaulted,
			Features:  ds.Columns,
			TrainRows: trained.TrainRows,
			TestRows:  trained.TestRows,
		},
		Metrics:      trained.Metrics,
		HotspotCount: len(hotspots),
		Outputs:      outputs,
	}
	if _, err := store.WriteJSON(domain.OutputCheckpoint, cp); err != nil {
		return nil, fmt.Errorf("write checkpoint: %w", err)
	}

	uc.publish(ctx, cp, hotspots)

	uc.logger.Info("Discovery run completed",
		zap.Stringer("run_id", runID),
		zap.String("dir", store.Dir()),
		zap.Int("hotspots", len(hotspots)),
		zap.Float64("test_auc", cp.Metrics.TestAUC),
		zap.Duration("elapsed", cp.FinishedAt.Sub(started)),
	)
	return &RunResult{Checkpoint: cp, Hotspots: hotspots, Narrative: narrative, Dir: store.Dir()}, nil
}

// predict scores every selected tile; a tile that fails is skipped.
func (uc *DiscoveryUseCase) predict(ctx context.Context, trained *TrainingResult, selected []tile.Coverage, extractor *features.Extractor) []Prediction {
	d := uc.deps
	var preds []Prediction
	for _, cov := range selected {
		if ctx.Err() != nil {
			return preds
		}
		tf, err := d.Features.Compute(ctx, cov.Tile)
		if err != nil {
			uc.logger.Warn("Skipping prediction for tile", zap.String("tile", cov.Tile), zap.Error(err))
			continue
		}
		tilePreds, err := d.Prediction.PredictTile(ctx, trained.Classifier, tf, extractor)
		if err != nil {
			uc.logger.Warn("Prediction failed", zap.String("tile", cov.Tile), zap.Error(err))
			continue
		}
		preds = append(preds, tilePreds...)
		memory.Cleanup("prediction "+cov.Tile, d.Backend, uc.logger)
	}
	return preds
}

// riverIndex prefers the hydrography shapefile and falls back to OSM
// waterways inside area. Both failing leaves the index empty.
func (uc *DiscoveryUseCase) riverIndex(ctx context.Context, area domain.BoundingBox) *geo.Index {
	d := uc.deps
	var geoms []geom.Geom
	if d.Hydrography != nil {
		g, err := d.Hydrography.LoadGeometries(ctx)
		if err != nil {
			uc.logger.Warn("Hydrography unavailable", zap.Error(err))
		}
		geoms = g
	}
	if len(geoms) == 0 && d.Waterways != nil {
		g, err := d.Waterways.Waterways(ctx, area)
		if err != nil {
			uc.logger.Warn("OSM waterways unavailable", zap.Error(err))
		}
		geoms = g
	}
	return uc.index("rivers", geoms)
}

func (uc *DiscoveryUseCase) deforestationIndex(ctx context.Context) *geo.Index {
	if uc.deps.Deforestation == nil {
		return nil
	}
	g, err := uc.deps.Deforestation.LoadGeometries(ctx)
	if err != nil {
		uc.logger.Warn("Deforestation layer unavailable", zap.Error(err))
		return nil
	}
	return uc.index("deforestation", g)
}

func (uc *DiscoveryUseCase) index(layer string, geoms []geom.Geom) *geo.Index {
	ix, skipped := geo.NewIndex(geoms)
	if skipped > 0 {
		uc.logger.Warn("Unsupported geometries skipped", zap.String("layer", layer), zap.Int("skipped", skipped))
	}
	if ix.Empty() {
		uc.logger.Warn("Reference layer is empty", zap.String("layer", layer))
	} else {
		uc.logger.Info("Reference layer indexed", zap.String("layer", layer), zap.Int("features", ix.Len()))
	}
	return ix
}

// publish hands the run to the optional results store and event stream.
func (uc *DiscoveryUseCase) publish(ctx context.Context, cp *domain.Checkpoint, hotspots []domain.Hotspot) {
	d := uc.deps
	if d.Results != nil {
		if err := d.Results.SaveRun(ctx, cp, hotspots); err != nil {
			uc.logger.Error("Failed to store run results", zap.Error(err))
		}
	}
	if d.Stream != nil {
		if err := d.Stream.PublishToStream(ctx, d.StreamName, domain.NewRunCompletedEvent(cp, hotspots)); err != nil {
			uc.logger.Error("Failed to publish run event", zap.Error(err))
		}
	}
}

func selectionBounds(selected []tile.Coverage) domain.BoundingBox {
	box := selected[0].Bounds
	for _, c := range selected[1:] {
		box.MinLon = min(box.MinLon, c.Bounds.MinLon)
		box.MinLat = min(box.MinLat, c.Bounds.MinLat)
		box.MaxLon = max(box.MaxLon, c.Bounds.MaxLon)
		box.MaxLat = max(box.MaxLat, c.Bounds.MaxLat)
	}
	return box
}

func mapInput(area domain.BoundingBox, preds []Prediction, sites []domain.KnownSite, hotspots []domain.Hotspot) visualization.MapInput {
	heat := make([]visualization.Prediction, len(preds))
	for i, p := range preds {
		heat[i] = visualization.Prediction{Point: p.Point, Probability: p.Probability}
	}
	return visualization.MapInput{
		Bounds:      &area,
		Predictions: heat,
		Sites:       sites,
		Hotspots:    hotspots,
	}
}

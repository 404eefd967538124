package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/airbusgeo/godal"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/earthwork-discovery/internal/raster"
	"github.com/earthwork-discovery/internal/tile"
	"go.uber.org/zap"
)

type elevationRepository struct {
	folder string
	logger *zap.Logger
}

// NewElevationRepository reads FABDEM GeoTIFFs from folder.
func NewElevationRepository(folder string, logger *zap.Logger) repository.ElevationRepository {
	RegisterDrivers()
	return &elevationRepository{folder: folder, logger: logger}
}

func (r *elevationRepository) ListTiles(ctx context.Context) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(r.folder, "*.tif"))
	if err != nil {
		return nil, fmt.Errorf("list elevation tiles: %w", err)
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	sort.Strings(names)
	r.logger.Info("Elevation tiles found",
		zap.String("folder", r.folder),
		zap.Int("count", len(names)),
	)
	return names, nil
}

func (r *elevationRepository) LoadTile(ctx context.Context, name string) (*domain.ElevationTile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(r.folder, name)
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer ds.Close()

	elevation, err := readFirstBand(ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("%s: geotransform: %w", name, err)
	}
	transform := raster.GeoTransform(gt)

	bounds, err := tile.ParseBounds(name)
	if err != nil {
		// fall back to the raster footprint for non-FABDEM names
		bounds = footprint(transform, elevation.Rows(), elevation.Cols())
	}

	r.logger.Debug("Elevation tile loaded",
		zap.String("tile", name),
		zap.Int("rows", elevation.Rows()),
		zap.Int("cols", elevation.Cols()),
	)
	return &domain.ElevationTile{
		Name:       name,
		Path:       path,
		Bounds:     bounds,
		Elevation:  elevation,
		Transform:  transform,
		Projection: ds.Projection(),
	}, nil
}

// footprint is the box covered by a north-up grid.
func footprint(gt raster.GeoTransform, rows, cols int) domain.BoundingBox {
	x0, y0 := gt[0], gt[3]
	x1 := x0 + float64(cols)*gt[1] + float64(rows)*gt[2]
	y1 := y0 + float64(cols)*gt[4] + float64(rows)*gt[5]
	return domain.BoundingBox{
		MinLon: min(x0, x1), MaxLon: max(x0, x1),
		MinLat: min(y0, y1), MaxLat: max(y0, y1),
	}
}

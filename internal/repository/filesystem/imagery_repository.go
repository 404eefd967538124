package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/earthwork-discovery/internal/raster"
	"go.uber.org/zap"
)

// ImageryConfig locates the scene collections.
type ImageryConfig struct {
	HLSFolder        string
	CopernicusFolder string
	PriorityTiles    []string
}

type imageryRepository struct {
	cfg    ImageryConfig
	logger *zap.Logger
}

func NewImageryRepository(cfg ImageryConfig, logger *zap.Logger) repository.ImageryRepository {
	RegisterDrivers()
	return &imageryRepository{cfg: cfg, logger: logger}
}

// LoadForTile resamples every prioritized scene onto the tile grid. Missing
// band files are skipped; a scene without any readable band is dropped.
func (r *imageryRepository) LoadForTile(ctx context.Context, tile *domain.ElevationTile) (*domain.ImagerySet, error) {
	set := &domain.ImagerySet{}

	hls, err := r.scenes(r.cfg.HLSFolder, hlsPrefix)
	if err != nil {
		return nil, err
	}
	for _, dir := range hls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bands := make(map[string]*raster.Raster)
		for _, band := range hlsBands {
			r.readBand(bands, band, HLSBandPath(r.cfg.HLSFolder, dir, band), dir, tile)
		}
		r.add(set, domain.Scene{ID: HLSIdentifier(dir), Source: domain.SourceHLS, Label: TemporalLabel(dir), Bands: bands})
	}

	cop, err := r.scenes(r.cfg.CopernicusFolder, copernicusPrefix)
	if err != nil {
		return nil, err
	}
	for _, dir := range cop {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bands := make(map[string]*raster.Raster)
		for _, b := range copernicusBands {
			r.readBand(bands, b.code, CopernicusBandPath(r.cfg.CopernicusFolder, dir, b.code, b.res), dir, tile)
		}
		r.add(set, domain.Scene{ID: CopernicusIdentifier(dir), Source: domain.SourceCopernicus, Label: TemporalLabel(dir), Bands: bands})
	}

	r.logger.Info("Imagery loaded",
		zap.String("tile", tile.Name),
		zap.Int("scenes", len(set.Scenes)),
		zap.Int("hls_candidates", len(hls)),
		zap.Int("copernicus_candidates", len(cop)),
	)
	return set, nil
}

func (r *imageryRepository) scenes(root, prefix string) ([]string, error) {
	dirs, err := sceneDirs(root, prefix)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("Imagery folder does not exist", zap.String("folder", root))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Prioritize(dirs, r.cfg.PriorityTiles), nil
}

func (r *imageryRepository) readBand(dst map[string]*raster.Raster, band, path, scene string, tile *domain.ElevationTile) {
	if _, err := os.Stat(path); err != nil {
		r.logger.Warn("Band file missing",
			zap.String("scene", scene),
			zap.String("band", band),
		)
		return
	}
	data, err := readWarped(path, tile)
	if err != nil {
		r.logger.Warn("Failed to load band",
			zap.String("scene", scene),
			zap.String("band", band),
			zap.Error(err),
		)
		return
	}
	dst[band] = data
}

func (r *imageryRepository) add(set *domain.ImagerySet, scene domain.Scene) {
	if len(scene.Bands) == 0 {
		r.logger.Warn("Scene has no readable bands", zap.String("scene", scene.ID))
		return
	}
	set.Scenes = append(set.Scenes, scene)
}

package filesystem

import (
	"context"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/earthwork-discovery/internal/domain/repository"
	"go.uber.org/zap"
)

const lonLat = "+proj=longlat +datum=WGS84 +no_defs"

type geometryRepository struct {
	path   string
	layer  string
	logger *zap.Logger
}

// NewGeometryRepository reads a shapefile layer and reprojects it to lon/lat
// when its .prj says otherwise. layer only names the data in logs.
func NewGeometryRepository(path, layer string, logger *zap.Logger) repository.GeometryRepository {
	return &geometryRepository{path: path, layer: layer, logger: logger}
}

func (r *geometryRepository) LoadGeometries(ctx context.Context) ([]geom.Geom, error) {
	dec, err := shp.NewDecoder(r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s shapefile: %w", r.layer, err)
	}
	defer dec.Close()

	trans, err := r.transform(dec)
	if err != nil {
		return nil, err
	}

	var out []geom.Geom
	failed := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		if g == nil {
			failed++
			continue
		}
		if trans != nil {
			if g, err = g.Transform(trans); err != nil {
				failed++
				continue
			}
		}
		out = append(out, g)
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode %s shapefile: %w", r.layer, err)
	}

	if failed > 0 {
		r.logger.Warn("Skipped unreadable shapes",
			zap.String("layer", r.layer),
			zap.Int("skipped", failed),
		)
	}
	r.logger.Info("Vector layer loaded",
		zap.String("layer", r.layer),
		zap.String("path", r.path),
		zap.Int("shapes", len(out)),
	)
	return out, nil
}

// transform returns nil when the layer carries no projection file.
func (r *geometryRepository) transform(dec *shp.Decoder) (proj.Transformer, error) {
	src, err := dec.SR()
	if err != nil {
		r.logger.Debug("No projection file, assuming lon/lat",
			zap.String("layer", r.layer),
			zap.Error(err),
		)
		return nil, nil
	}
	dst, err := proj.Parse(lonLat)
	if err != nil {
		return nil, fmt.Errorf("parse lon/lat projection: %w", err)
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("%s projection: %w", r.layer, err)
	}
	return trans, nil
}

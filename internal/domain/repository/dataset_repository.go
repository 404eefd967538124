package repository

import (
	"context"

	"github.com/ctessum/geom"
	"github.com/earthwork-discovery/internal/domain"
)

// ElevationRepository lists and reads FABDEM tiles.
type ElevationRepository interface {
	// ListTiles returns tile file names, sorted.
	ListTiles(ctx context.Context) ([]string, error)
	LoadTile(ctx context.Context, name string) (*domain.ElevationTile, error)
}

type SiteRepository interface {
	LoadSites(ctx context.Context) ([]domain.KnownSite, error)
}

// ImageryRepository resamples satellite scenes onto an elevation tile grid.
type ImageryRepository interface {
	LoadForTile(ctx context.Context, tile *domain.ElevationTile) (*domain.ImagerySet, error)
}

// GeometryRepository reads a vector layer in lon/lat degrees.
type GeometryRepository interface {
	LoadGeometries(ctx context.Context) ([]geom.Geom, error)
}

// WaterwayRepository fetches river lines inside a bounding box.
type WaterwayRepository interface {
	Waterways(ctx context.Context, bbox domain.BoundingBox) ([]geom.Geom, error)
}

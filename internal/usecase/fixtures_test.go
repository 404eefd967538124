package usecase_test

import (
	"math"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/raster"
	"github.com/earthwork-discovery/internal/tile"
)

const (
	tileName  = "S10W068_FABDEM_V1-2.tif"
	emptyTile = "S11W068_FABDEM_V1-2.tif"
	tileSize  = 40
)

// syntheticTile is a 40x40 tile with a mound at every known site.
func syntheticTile(name string, sites []domain.KnownSite) *domain.ElevationTile {
	bounds, err := tile.ParseBounds(name)
	if err != nil {
		panic(err)
	}
	step := 1.0 / tileSize
	gt := raster.NorthUp(bounds.MinLon, bounds.MaxLat, step, step)

	elev := raster.New(tileSize, tileSize)
	for i := 0; i < tileSize; i++ {
		for j := 0; j < tileSize; j++ {
			elev.Set(i, j, 180+3*math.Sin(float64(i)/5)+2*math.Cos(float64(j)/7))
		}
	}
	for _, s := range sites {
		row, col, err := gt.Index(s.Lon, s.Lat)
		if err != nil || !elev.InBounds(row, col) {
			continue
		}
		elev.Set(row, col, elev.At(row, col)+15)
	}

	return &domain.ElevationTile{
		Name:      name,
		Bounds:    bounds,
		Elevation: elev,
		Transform: gt,
	}
}

// knownSites spreads n sites over the interior of S10W068.
func knownSites(n int) []domain.KnownSite {
	sites := make([]domain.KnownSite, n)
	for i := range sites {
		sites[i] = domain.KnownSite{
			ID:   i,
			Name: "site",
			Point: domain.Point{
				Lat: -9.9 + 0.8*float64(i%4)/3,
				Lon: -67.9 + 0.8*float64(i/4)/float64(max(1, (n-1)/4)),
			},
		}
	}
	return sites
}

func filledBands(red, nir float64) map[string]*raster.Raster {
	return map[string]*raster.Raster{
		"B04": raster.Filled(tileSize, tileSize, red),
		"B08": raster.Filled(tileSize, tileSize, nir),
	}
}

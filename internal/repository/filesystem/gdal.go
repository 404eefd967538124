package filesystem

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/raster"
)

var (
	ErrNoBands = errors.New("filesystem: dataset has no bands")

	registerOnce sync.Once
)

// RegisterDrivers registers every GDAL driver once per process.
func RegisterDrivers() {
	registerOnce.Do(godal.RegisterAll)
}

// readFirstBand reads band 1 of ds as float64.
func readFirstBand(ds *godal.Dataset) (*raster.Raster, error) {
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, ErrNoBands
	}
	structure := bands[0].Structure()
	w, h := structure.SizeX, structure.SizeY
	data := make([]float64, w*h)
	if err := bands[0].Read(0, 0, data, w, h); err != nil {
		return nil, fmt.Errorf("read band: %w", err)
	}
	return raster.FromSlice(h, w, data)
}

// warpSwitches resamples a dataset onto the pixel grid of tile.
func warpSwitches(tile *domain.ElevationTile) []string {
	rows, cols := tile.Elevation.Shape()
	gt := tile.Transform
	west, north := gt[0], gt[3]
	east := west + float64(cols)*gt[1]
	south := north + float64(rows)*gt[5]
	srs := tile.Projection
	if srs == "" {
		srs = "EPSG:4326"
	}
	return []string{
		"-of", "MEM",
		"-t_srs", srs,
		"-te", ff(west), ff(south), ff(east), ff(north),
		"-ts", strconv.Itoa(cols), strconv.Itoa(rows),
		"-r", "bilinear",
		"-ot", "Float64",
	}
}

// readWarped opens path and returns band 1 resampled onto the tile grid.
func readWarped(path string, tile *domain.ElevationTile) (*raster.Raster, error) {
	src, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	warped, err := src.Warp("", warpSwitches(tile))
	if err != nil {
		return nil, fmt.Errorf("warp %s: %w", path, err)
	}
	defer warped.Close()

	r, err := readFirstBand(warped)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

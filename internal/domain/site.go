package domain

import "github.com/earthwork-discovery/internal/raster"

// KnownSite is a surveyed earthwork loaded from the placemark file.
type KnownSite struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Point
}

func SitePoints(sites []KnownSite) []Point {
	points := make([]Point, len(sites))
	for i, s := range sites {
		points[i] = s.Point
	}
	return points
}

// ElevationTile is one 1x1 degree FABDEM tile read into memory.
type ElevationTile struct {
	Name       string
	Path       string
	Bounds     BoundingBox
	Elevation  *raster.Raster
	Transform  raster.GeoTransform
	Projection string
}

// Label values for SamplePoint.
const (
	LabelNegative = 0
	LabelPositive = 1
)

// SamplePoint is a labelled training or prediction location.
type SamplePoint struct {
	Point
	Label int    `json:"label"`
	Tile  string `json:"tile,omitempty"`
}

// Imagery sources.
const (
	SourceHLS        = "hls"
	SourceCopernicus = "copernicus"
)

// Scene is one satellite acquisition resampled onto an elevation tile grid.
// Bands are keyed by Sentinel-2 band code. Label is the temporal period the
// scene belongs to.
type Scene struct {
	ID     string
	Source string
	Label  string
	Bands  map[string]*raster.Raster
}

// ImagerySet holds the scenes loaded for one tile in priority order.
type ImagerySet struct {
	Scenes []Scene
}

package domain

import (
	"fmt"
	"math"
)

type Point struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// BoundingBox is an axis-aligned lon/lat box in degrees. Edges are part of
// the box.
type BoundingBox struct {
	MinLon float64 `json:"min_lon" db:"min_lon"`
	MinLat float64 `json:"min_lat" db:"min_lat"`
	MaxLon float64 `json:"max_lon" db:"max_lon"`
	MaxLat float64 `json:"max_lat" db:"max_lat"`
}

// Contains reports whether p lies inside b or on its boundary.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

func (b BoundingBox) Width() float64  { return b.MaxLon - b.MinLon }
func (b BoundingBox) Height() float64 { return b.MaxLat - b.MinLat }

func (b BoundingBox) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// TotalBounds returns the smallest box holding every point. ok is false for
// an empty slice.
func TotalBounds(points []Point) (box BoundingBox, ok bool) {
	if len(points) == 0 {
		return BoundingBox{}, false
	}
	box = BoundingBox{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
	for _, p := range points {
		box.MinLon = math.Min(box.MinLon, p.Lon)
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLon = math.Max(box.MaxLon, p.Lon)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
	}
	return box, true
}

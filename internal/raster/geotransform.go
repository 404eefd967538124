package raster

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrSingular   = errors.New("raster: geotransform is not invertible")
	ErrNonFinite  = errors.New("raster: non-finite coordinate")
	ErrOutOfRange = errors.New("raster: pixel outside raster")
)

// GeoTransform is a GDAL-ordered affine transform:
//
//	x = gt[0] + col*gt[1] + row*gt[2]
//	y = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

// NorthUp builds the transform of a grid whose upper-left corner is
// (west, north) with square-ish pixels of size dx by dy degrees.
func NorthUp(west, north, dx, dy float64) GeoTransform {
	return GeoTransform{west, dx, 0, north, 0, -dy}
}

// Index returns the pixel containing (x, y). Fractional pixel positions are
// floored, so a point on a pixel's upper-left edge belongs to that pixel.
func (g GeoTransform) Index(x, y float64) (row, col int, err error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, fmt.Errorf("%w: (%v, %v)", ErrNonFinite, x, y)
	}
	det := g[1]*g[5] - g[2]*g[4]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return 0, 0, ErrSingular
	}
	dx := x - g[0]
	dy := y - g[3]
	fc := (g[5]*dx - g[2]*dy) / det
	fr := (-g[4]*dx + g[1]*dy) / det
	if math.IsNaN(fc) || math.IsNaN(fr) || math.Abs(fc) > math.MaxInt32 || math.Abs(fr) > math.MaxInt32 {
		return 0, 0, fmt.Errorf("%w: (%v, %v)", ErrOutOfRange, x, y)
	}
	return int(math.Floor(fr)), int(math.Floor(fc)), nil
}

// Center returns the coordinate of the centre of pixel (row, col).
func (g GeoTransform) Center(row, col int) (x, y float64) {
	c := float64(col) + 0.5
	r := float64(row) + 0.5
	return g[0] + c*g[1] + r*g[2], g[3] + c*g[4] + r*g[5]
}

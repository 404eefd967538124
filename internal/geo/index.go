// Package geo indexes reference vector layers (rivers, deforestation
// polygons) for nearest-distance and containment queries in lon/lat
// degrees.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/earthwork-discovery/internal/domain"
)

var (
	ErrEmptyIndex       = errors.New("geo: index holds no geometry")
	ErrUnsupportedShape = errors.New("geo: unsupported geometry type")
)

const initialSearch = 0.05

// feature is one indexed geometry, split into its line parts and polygons.
type feature struct {
	bounds   *geom.Bounds
	lines    []geom.LineString
	polygons []geom.Polygon
}

func (f *feature) Bounds() *geom.Bounds { return f.bounds }

// Index answers distance and containment queries over a fixed geometry set.
type Index struct {
	tree   *rtree.Rtree
	extent *geom.Bounds
	count  int
}

// NewIndex builds an index. Geometries that are not lines or polygons are
// reported through the returned skip count.
func NewIndex(geoms []geom.Geom) (*Index, int) {
	ix := &Index{tree: rtree.NewTree(25, 50)}
	skipped := 0
	for _, g := range geoms {
		f, err := newFeature(g)
		if err != nil {
			skipped++
			continue
		}
		ix.tree.Insert(f)
		if ix.extent == nil {
			ix.extent = f.bounds.Copy()
		} else {
			ix.extent.Extend(f.bounds)
		}
		ix.count++
	}
	return ix, skipped
}

func newFeature(g geom.Geom) (*feature, error) {
	f := &feature{}
	switch t := g.(type) {
	case geom.LineString:
		f.lines = []geom.LineString{t}
	case geom.MultiLineString:
		f.lines = []geom.LineString(t)
	case geom.Polygon:
		f.polygons = []geom.Polygon{t}
	case geom.MultiPolygon:
		f.polygons = []geom.Polygon(t)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedShape, g)
	}
	if len(f.lines) == 0 && len(f.polygons) == 0 {
		return nil, fmt.Errorf("%w: empty %T", ErrUnsupportedShape, g)
	}
	f.bounds = g.Bounds()
	return f, nil
}

func (ix *Index) Len() int { return ix.count }

func (ix *Index) Empty() bool { return ix == nil || ix.count == 0 }

// Distance returns the planar distance in degrees from p to the nearest
// indexed geometry; points inside a polygon are at distance 0.
func (ix *Index) Distance(p domain.Point) (float64, error) {
	if ix.Empty() {
		return 0, ErrEmptyIndex
	}
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
		return 0, fmt.Errorf("geo: non-finite point (%v, %v)", p.Lon, p.Lat)
	}
	pt := geom.Point{X: p.Lon, Y: p.Lat}

	// Any geometry closer than r has a bounding box intersecting the
	// square of half-width r around pt, so a hit within r is final.
	limit := farthestCorner(pt, ix.extent)
	for r := initialSearch; ; r *= 4 {
		window := &geom.Bounds{
			Min: geom.Point{X: pt.X - r, Y: pt.Y - r},
			Max: geom.Point{X: pt.X + r, Y: pt.Y + r},
		}
		best := math.Inf(1)
		for _, s := range ix.tree.SearchIntersect(window) {
			if d := s.(*feature).distance(pt); d < best {
				best = d
			}
		}
		if best <= r || r >= limit {
			if math.IsInf(best, 1) {
				return 0, ErrEmptyIndex
			}
			return best, nil
		}
	}
}

// Contains reports whether p falls inside any indexed polygon.
func (ix *Index) Contains(p domain.Point) bool {
	if ix.Empty() {
		return false
	}
	pt := geom.Point{X: p.Lon, Y: p.Lat}
	for _, s := range ix.tree.SearchIntersect(&geom.Bounds{Min: pt, Max: pt}) {
		for _, poly := range s.(*feature).polygons {
			if pointInPolygon(pt, poly) {
				return true
			}
		}
	}
	return false
}

func (f *feature) distance(pt geom.Point) float64 {
	best := math.Inf(1)
	for _, line := range f.lines {
		best = math.Min(best, pathDistance(pt, line, false))
	}
	for _, poly := range f.polygons {
		if pointInPolygon(pt, poly) {
			return 0
		}
		for _, ring := range poly {
			best = math.Min(best, pathDistance(pt, ring, true))
		}
	}
	return best
}

func pathDistance(pt geom.Point, path []geom.Point, closed bool) float64 {
	switch len(path) {
	case 0:
		return math.Inf(1)
	case 1:
		return math.Hypot(pt.X-path[0].X, pt.Y-path[0].Y)
	}
	best := math.Inf(1)
	for i := 1; i < len(path); i++ {
		best = math.Min(best, segmentDistance(pt, path[i-1], path[i]))
	}
	if closed {
		best = math.Min(best, segmentDistance(pt, path[len(path)-1], path[0]))
	}
	return best
}

func segmentDistance(p, a, b geom.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// pointInPolygon counts ring boundaries as inside; holes are excluded.
func pointInPolygon(pt geom.Point, poly geom.Polygon) bool {
	return pt.Within(poly) != geom.Outside
}

func farthestCorner(pt geom.Point, b *geom.Bounds) float64 {
	dx := math.Max(math.Abs(pt.X-b.Min.X), math.Abs(pt.X-b.Max.X))
	dy := math.Max(math.Abs(pt.Y-b.Min.Y), math.Abs(pt.Y-b.Max.Y))
	return math.Max(dx, dy)
}

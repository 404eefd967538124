package features

import (
	"math"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/raster"
	"go.uber.org/zap"
)

const (
	// FeatureRiverDistance is the trailing column of every extracted table.
	FeatureRiverDistance = "distance_to_river"

	DefaultFeatureValue  = 0.0
	DefaultRiverDistance = 1000.0
)

// DistanceIndex measures how far a point is from reference geometry.
type DistanceIndex interface {
	Empty() bool
	Distance(p domain.Point) (float64, error)
}

// Row is the feature vector of one point.
type Row struct {
	Point   domain.Point
	Values  []float64
	Outcome Outcome
	// DistanceDefaulted is set when the river distance fell back to its default.
	DistanceDefaulted bool
}

// Table is a dense point-by-feature matrix. Rows align one-to-one with the
// points it was extracted for.
type Table struct {
	Columns []string
	Rows    []Row
}

// Matrix returns the values of every row.
func (t *Table) Matrix() [][]float64 {
	out := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values
	}
	return out
}

// DefaultedCount counts rows replaced entirely by defaults.
func (t *Table) DefaultedCount() int {
	n := 0
	for _, r := range t.Rows {
		if r.Outcome.IsDefaulted() {
			n++
		}
	}
	return n
}

// Column returns the index of name, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Extractor samples feature rasters at point locations.
type Extractor struct {
	reference DistanceIndex
	logger    *zap.Logger
}

// NewExtractor accepts a nil reference; distances then take their default.
func NewExtractor(reference DistanceIndex, logger *zap.Logger) *Extractor {
	return &Extractor{reference: reference, logger: logger}
}

// Extract builds one row per point. Pixels are located through transform,
// which must describe the grid of set. Out-of-grid features read as 0.0;
// a point that cannot be located at all gets a full default row.
func (e *Extractor) Extract(points []domain.Point, set *Set, transform raster.GeoTransform) *Table {
	names := set.Names()
	table := &Table{
		Columns: append(names, FeatureRiverDistance),
		Rows:    make([]Row, len(points)),
	}
	rasters := make([]*raster.Raster, len(names))
	for i, name := range names {
		rasters[i], _ = set.Get(name)
	}

	defaultedRows := 0
	for i, p := range points {
		row, col, err := transform.Index(p.Lon, p.Lat)
		if err != nil {
			table.Rows[i] = defaultRow(p, len(names), err)
			defaultedRows++
			continue
		}

		values := make([]float64, len(names)+1)
		for k, r := range rasters {
			if r.InBounds(row, col) {
				values[k] = r.At(row, col)
			} else {
				values[k] = DefaultFeatureValue
			}
		}

		dist, ok := e.distance(p)
		values[len(names)] = dist
		table.Rows[i] = Row{
			Point:             p,
			Values:            values,
			Outcome:           computed(),
			DistanceDefaulted: !ok,
		}
	}

	if defaultedRows > 0 {
		e.logger.Warn("Points replaced with default feature rows",
			zap.Int("defaulted", defaultedRows),
			zap.Int("points", len(points)),
		)
	}
	return table
}

func (e *Extractor) distance(p domain.Point) (float64, bool) {
	if e.reference == nil || e.reference.Empty() {
		return DefaultRiverDistance, false
	}
	d, err := e.reference.Distance(p)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
		e.logger.Debug("River distance failed, using default",
			zap.Float64("lat", p.Lat),
			zap.Float64("lon", p.Lon),
			zap.Error(err),
		)
		return DefaultRiverDistance, false
	}
	return d, true
}

func defaultRow(p domain.Point, features int, reason error) Row {
	values := make([]float64, features+1)
	for k := 0; k < features; k++ {
		values[k] = DefaultFeatureValue
	}
	values[features] = DefaultRiverDistance
	return Row{
		Point:             p,
		Values:            values,
		Outcome:           defaulted(reason),
		DistanceDefaulted: true,
	}
}

// Package features turns elevation, imagery and time-series rasters into
// named feature grids and samples them at points.
package features

import (
	"fmt"

	"github.com/earthwork-discovery/internal/raster"
)

// Set is an ordered collection of equally shaped feature rasters.
type Set struct {
	names   []string
	rasters map[string]*raster.Raster
	rows    int
	cols    int
}

func NewSet() *Set {
	return &Set{rasters: make(map[string]*raster.Raster)}
}

// Add stores r under name. The first raster fixes the shape of the set;
// later rasters of a different shape are rejected. Re-adding a name
// replaces it in place.
func (s *Set) Add(name string, r *raster.Raster) error {
	if r == nil {
		return fmt.Errorf("features: nil raster for %q", name)
	}
	if len(s.names) == 0 {
		s.rows, s.cols = r.Shape()
	} else if r.Rows() != s.rows || r.Cols() != s.cols {
		return fmt.Errorf("%w: %q is %dx%d, set is %dx%d",
			raster.ErrShapeMismatch, name, r.Rows(), r.Cols(), s.rows, s.cols)
	}
	if _, ok := s.rasters[name]; !ok {
		s.names = append(s.names, name)
	}
	s.rasters[name] = r
	return nil
}

func (s *Set) Get(name string) (*raster.Raster, bool) {
	r, ok := s.rasters[name]
	return r, ok
}

// Names returns the feature names in insertion order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Set) Len() int { return len(s.names) }

func (s *Set) Shape() (int, int) { return s.rows, s.cols }

// Merge adds every raster of other, returning the names that were
// rejected.
func (s *Set) Merge(other *Set) []error {
	var errs []error
	for _, name := range other.names {
		if err := s.Add(name, other.rasters[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

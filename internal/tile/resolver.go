// Package tile resolves FABDEM tile footprints from file names and ranks
// tiles by how many known sites they cover.
package tile

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/earthwork-discovery/internal/domain"
)

var ErrUnparseable = errors.New("tile: name does not match S<lat>W<lon>_FABDEM_V1-2.tif")

var namePattern = regexp.MustCompile(`^S(\d+)W(\d+)_FABDEM_V1-2\.tif`)

// ParseBounds decodes the one-degree footprint encoded in a FABDEM file
// name, e.g. S01W061_FABDEM_V1-2.tif covers lon [-61, -60], lat [-1, 0].
// Directory components are ignored.
func ParseBounds(name string) (domain.BoundingBox, error) {
	m := namePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return domain.BoundingBox{}, fmt.Errorf("%w: %q", ErrUnparseable, name)
	}
	lat, err := strconv.Atoi(m[1])
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("%w: %q", ErrUnparseable, name)
	}
	lon, err := strconv.Atoi(m[2])
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("%w: %q", ErrUnparseable, name)
	}

	south := -float64(lat)
	west := -float64(lon)
	return domain.BoundingBox{
		MinLon: west,
		MinLat: south,
		MaxLon: west + 1,
		MaxLat: south + 1,
	}, nil
}

// Overlaps is a separating-axis test with inclusive edges: boxes that only
// touch along a side or corner overlap.
func Overlaps(a, b domain.BoundingBox) bool {
	return !(a.MinLon > b.MaxLon ||
		a.MaxLon < b.MinLon ||
		a.MinLat > b.MaxLat ||
		a.MaxLat < b.MinLat)
}

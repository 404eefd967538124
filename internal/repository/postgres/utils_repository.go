package postgres

// Query limits for run listings.
const (
	DefaultRunLimit = 20
	MaxRunLimit     = 200
)

// SRID4326 is WGS84 lon/lat.
const SRID4326 = 4326

// ClampLimit maps non-positive limits to the default and caps the rest.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRunLimit
	case limit > MaxRunLimit:
		return MaxRunLimit
	}
	return limit
}

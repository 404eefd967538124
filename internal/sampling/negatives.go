package sampling

import (
	"math/rand/v2"

	"github.com/earthwork-discovery/internal/domain"
	"go.uber.org/zap"
)

const (
	// MaxNegatives caps the negatives generated for one tile.
	MaxNegatives = 100
	// NearFraction of the target is drawn around known sites.
	NearFraction = 0.7
	// NearOffset is the largest per-axis offset from a site, in degrees.
	NearOffset = 0.05
)

// Target returns the number of negatives generated for positives sites.
func Target(positives int) int {
	return min(2*positives, MaxNegatives)
}

// NegativeSampler draws background points for one tile. Points near known
// sites are harder to separate than uniform ones, so most of the budget goes
// there.
type NegativeSampler struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// NewNegativeSampler takes ownership of rng; a sampler is not safe for
// concurrent use.
func NewNegativeSampler(rng *rand.Rand, logger *zap.Logger) *NegativeSampler {
	return &NegativeSampler{rng: rng, logger: logger}
}

// Generate returns exactly Target(len(positives)) points inside bounds.
// Negatives are not checked against the positives themselves.
func (s *NegativeSampler) Generate(positives []domain.Point, bounds domain.BoundingBox) []domain.Point {
	n := Target(len(positives))
	near := int(float64(n) * NearFraction)
	out := make([]domain.Point, 0, n)

	if sites := min(len(positives), near); sites > 0 {
		chosen := positives
		if len(positives) > sites {
			chosen = make([]domain.Point, sites)
			for i, idx := range s.rng.Perm(len(positives))[:sites] {
				chosen[i] = positives[idx]
			}
		}

		attempts := max(1, near/sites)
	sample:
		for _, site := range chosen {
			for a := 0; a < attempts; a++ {
				p := domain.Point{
					Lat: site.Lat + s.uniform(-NearOffset, NearOffset),
					Lon: site.Lon + s.uniform(-NearOffset, NearOffset),
				}
				if bounds.Contains(p) {
					out = append(out, p)
				}
				if len(out) >= near {
					break sample
				}
			}
		}
	}

	nearCount := len(out)
	for len(out) < n {
		out = append(out, domain.Point{
			Lat: s.uniform(bounds.MinLat, bounds.MaxLat),
			Lon: s.uniform(bounds.MinLon, bounds.MaxLon),
		})
	}

	s.logger.Debug("Generated negative samples",
		zap.Int("total", len(out)),
		zap.Int("near_sites", nearCount),
		zap.Int("random", len(out)-nearCount),
	)
	return out
}

func (s *NegativeSampler) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

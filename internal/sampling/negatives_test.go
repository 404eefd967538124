package sampling

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var tileBounds = domain.BoundingBox{MinLon: -68, MinLat: -10, MaxLon: -67, MaxLat: -9}

func newSampler(seed uint64) *NegativeSampler {
	return NewNegativeSampler(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), zap.NewNop())
}

func sites(n int) []domain.Point {
	out := make([]domain.Point, n)
	for i := range out {
		out[i] = domain.Point{Lat: -9.5 + float64(i%10)*0.02, Lon: -67.5 + float64(i/10)*0.02}
	}
	return out
}

func TestTarget(t *testing.T) {
	assert.Equal(t, 0, Target(0))
	assert.Equal(t, 2, Target(1))
	assert.Equal(t, 60, Target(30))
	assert.Equal(t, 100, Target(50))
	assert.Equal(t, 100, Target(400))
}

func TestGenerateCountAndBounds(t *testing.T) {
	for _, n := range []int{1, 3, 10, 49, 50, 120} {
		points := newSampler(uint64(n)).Generate(sites(n), tileBounds)

		assert.Len(t, points, Target(n), "positives=%d", n)
		for _, p := range points {
			assert.True(t, tileBounds.Contains(p), "positives=%d point=%+v", n, p)
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	assert.Empty(t, newSampler(1).Generate(nil, tileBounds))
}

func TestGenerateNearSites(t *testing.T) {
	positives := sites(30)
	points := newSampler(7).Generate(positives, tileBounds)

	// 42 near slots over 30 sites allows one attempt per site, all in bounds
	for _, p := range points[:30] {
		closest := math.Inf(1)
		for _, s := range positives {
			closest = math.Min(closest, math.Max(math.Abs(p.Lat-s.Lat), math.Abs(p.Lon-s.Lon)))
		}
		assert.LessOrEqual(t, closest, NearOffset)
	}
}

func TestGenerateSiteOnCornerDropsOutsideAttempts(t *testing.T) {
	corner := []domain.Point{{Lat: tileBounds.MinLat, Lon: tileBounds.MinLon}}

	points := newSampler(3).Generate(corner, tileBounds)

	assert.Len(t, points, 2)
	for _, p := range points {
		assert.True(t, tileBounds.Contains(p))
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	a := newSampler(42).Generate(sites(25), tileBounds)
	b := newSampler(42).Generate(sites(25), tileBounds)
	c := newSampler(43).Generate(sites(25), tileBounds)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

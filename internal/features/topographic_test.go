package features

import (
	"math"
	"testing"

	"github.com/earthwork-discovery/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func plane(rows, cols int, a, b float64) *raster.Raster {
	r := raster.New(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			r.Set(i, j, a*float64(i)+b*float64(j)+100)
		}
	}
	return r
}

func bumpy(rows, cols int) *raster.Raster {
	r := raster.New(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			r.Set(i, j, 200+10*math.Sin(float64(i)/3)*math.Cos(float64(j)/5)+0.1*float64(i*j))
		}
	}
	return r
}

func allFeatureNames() []string {
	names := []string{FeatureElevation, FeatureSlope, FeatureAspect, FeatureTopoAnomaly}
	for _, r := range TPIRadii {
		names = append(names, TPIName(r))
	}
	return append(names, FeatureProfileCurvature, FeaturePlanCurvature)
}

func TestTopographicPlane(t *testing.T) {
	calc := NewTopographicCalculator(raster.NewReference(), zap.NewNop())
	dem := plane(40, 40, 2, 3)

	res, err := calc.Compute(dem)
	require.NoError(t, err)

	assert.Equal(t, allFeatureNames(), res.Features.Names())
	assert.Empty(t, res.Defaulted())

	slope, _ := res.Features.Get(FeatureSlope)
	aspect, _ := res.Features.Get(FeatureAspect)
	profile, _ := res.Features.Get(FeatureProfileCurvature)
	plan, _ := res.Features.Get(FeaturePlanCurvature)
	tpi, _ := res.Features.Get(TPIName(15))
	elev, _ := res.Features.Get(FeatureElevation)

	for i := 0; i < 40; i++ {
		for j := 0; j < 40; j++ {
			assert.InDelta(t, math.Sqrt(13), slope.At(i, j), 1e-12)
			assert.InDelta(t, math.Atan2(2, 3), aspect.At(i, j), 1e-12)
			assert.InDelta(t, 0, profile.At(i, j), 1e-12)
			assert.InDelta(t, 0, plan.At(i, j), 1e-12)
		}
	}
	assert.InDelta(t, 0, tpi.At(20, 20), 1e-9)
	assert.Equal(t, dem.Data(), elev.Data())
	assert.NotSame(t, dem, elev)
}

func TestTopographicSmallRasterDefaultsWideWindows(t *testing.T) {
	calc := NewTopographicCalculator(raster.NewReference(), zap.NewNop())

	res, err := calc.Compute(bumpy(10, 12))
	require.NoError(t, err)

	assert.Equal(t, []string{TPIName(7), TPIName(15)}, res.Defaulted())
	assert.ErrorIs(t, res.Outcomes[TPIName(7)].Reason, raster.ErrWindowTooLarge)

	for _, name := range allFeatureNames() {
		r, ok := res.Features.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, 10, r.Rows())
		assert.Equal(t, 12, r.Cols())
	}
	wide, _ := res.Features.Get(TPIName(15))
	for _, v := range wide.Data() {
		assert.Zero(t, v)
	}
}

func TestTopographicSingleRow(t *testing.T) {
	calc := NewTopographicCalculator(raster.NewReference(), zap.NewNop())

	res, err := calc.Compute(plane(1, 50, 0, 1))
	require.NoError(t, err)

	defaulted := res.Defaulted()
	for _, name := range []string{FeatureSlope, FeatureAspect, FeatureProfileCurvature, FeaturePlanCurvature} {
		assert.Contains(t, defaulted, name)
	}
	assert.False(t, res.Outcomes[FeatureElevation].IsDefaulted())
	assert.False(t, res.Outcomes[FeatureTopoAnomaly].IsDefaulted())
}

func TestTopographicEmpty(t *testing.T) {
	calc := NewTopographicCalculator(raster.NewReference(), zap.NewNop())
	_, err := calc.Compute(raster.New(0, 0))
	assert.ErrorIs(t, err, raster.ErrEmpty)
}

func TestTopographicBackendsAgree(t *testing.T) {
	dem := bumpy(45, 38)
	par := raster.NewParallel(3)
	defer par.Release()

	ref, err := NewTopographicCalculator(raster.NewReference(), zap.NewNop()).Compute(dem)
	require.NoError(t, err)
	acc, err := NewTopographicCalculator(par, zap.NewNop()).Compute(dem)
	require.NoError(t, err)

	require.Equal(t, ref.Features.Names(), acc.Features.Names())
	for _, name := range ref.Features.Names() {
		a, _ := ref.Features.Get(name)
		b, _ := acc.Features.Get(name)
		assert.InDeltaSlice(t, a.Data(), b.Data(), 1e-9, name)
	}
}

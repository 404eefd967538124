package features

import (
	"testing"

	"github.com/earthwork-discovery/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func row(t *testing.T, values ...float64) *raster.Raster {
	t.Helper()
	r, err := raster.FromRows([][]float64{values})
	require.NoError(t, err)
	return r
}

func TestSpectralNDVI(t *testing.T) {
	calc := NewSpectralCalculator(zap.NewNop())

	out := calc.Compute(map[string]*raster.Raster{
		BandRed: row(t, 1, 2),
		BandNIR: row(t, 3, 4),
	})

	require.Contains(t, out, IndexNDVI)
	assert.Equal(t, []float64{
		(3.0 - 1.0) / (3.0 + 1.0 + 1e-10),
		(4.0 - 2.0) / (4.0 + 2.0 + 1e-10),
	}, out[IndexNDVI].Data())

	assert.InDeltaSlice(t, []float64{
		2.5 * 2 / (3 + 2.4*1 + 1),
		2.5 * 2 / (4 + 2.4*2 + 1),
	}, out[IndexEVI2].Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{
		2.0 / 4.5 * 1.5,
		2.0 / 6.5 * 1.5,
	}, out[IndexSAVI].Data(), 1e-12)

	assert.NotContains(t, out, IndexBSI)
	assert.NotContains(t, out, IndexEDI)
}

func TestSpectralMissingNIR(t *testing.T) {
	calc := NewSpectralCalculator(zap.NewNop())

	out := calc.Compute(map[string]*raster.Raster{
		BandRed:   row(t, 1, 2),
		BandSWIR1: row(t, 5, 6),
		BandBlue:  row(t, 1, 1),
		BandNIR:   nil,
	})

	for _, idx := range []string{IndexNDVI, IndexEVI2, IndexSAVI, IndexNDRE1, IndexBSI, IndexSCI, IndexAAI, IndexEDI} {
		_, ok := out[idx]
		assert.False(t, ok, "%s must be absent", idx)
	}
	assert.Empty(t, out)
}

func TestSpectralAllIndices(t *testing.T) {
	calc := NewSpectralCalculator(zap.NewNop())
	bands := map[string]*raster.Raster{
		BandBlue:     row(t, 0.05),
		BandRed:      row(t, 0.10),
		BandRedEdge1: row(t, 0.20),
		BandNIR:      row(t, 0.40),
		BandSWIR1:    row(t, 0.30),
	}

	out := calc.Compute(bands)

	assert.Len(t, out, 8)
	assert.InDelta(t, (0.40-0.20)/(0.40+0.20), out[IndexNDRE1].At(0, 0), 1e-9)
	assert.InDelta(t, ((0.30+0.10)-(0.40+0.05))/((0.30+0.10)+(0.40+0.05)), out[IndexBSI].At(0, 0), 1e-9)
	assert.InDelta(t, (0.30-0.40)/(0.30+0.40), out[IndexSCI].At(0, 0), 1e-9)
	assert.InDelta(t, (0.30-0.10)/0.40, out[IndexAAI].At(0, 0), 1e-9)
	assert.InDelta(t,
		(out[IndexBSI].At(0, 0)-out[IndexNDVI].At(0, 0))/2,
		out[IndexEDI].At(0, 0), 1e-15)
}

func TestSpectralShapeMismatch(t *testing.T) {
	calc := NewSpectralCalculator(zap.NewNop())

	out := calc.Compute(map[string]*raster.Raster{
		BandRed:      row(t, 1, 2),
		BandNIR:      row(t, 3, 4, 5),
		BandRedEdge1: row(t, 1, 1, 1),
	})

	assert.NotContains(t, out, IndexNDVI)
	assert.Contains(t, out, IndexNDRE1)
}

func TestSetRejectsMismatchedShape(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add("a", raster.New(2, 3)))
	require.NoError(t, set.Add("b", raster.New(2, 3)))
	assert.ErrorIs(t, set.Add("c", raster.New(3, 2)), raster.ErrShapeMismatch)
	require.NoError(t, set.Add("a", raster.Filled(2, 3, 1)))

	assert.Equal(t, []string{"a", "b"}, set.Names())
	r, ok := set.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, r.At(1, 2))

	other := NewSet()
	require.NoError(t, other.Add("d", raster.New(4, 4)))
	errs := set.Merge(other)
	assert.Len(t, errs, 1)
	assert.Equal(t, 2, set.Len())
}

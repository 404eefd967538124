package features

import (
	"errors"
	"fmt"

	"github.com/earthwork-discovery/internal/raster"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Sentinel-2 style band codes.
const (
	BandBlue     = "B02"
	BandGreen    = "B03"
	BandRed      = "B04"
	BandRedEdge1 = "B05"
	BandNIR      = "B08"
	BandSWIR1    = "B11"
	BandSWIR2    = "B12"
)

// Spectral index names.
const (
	IndexNDVI  = "ndvi"
	IndexEVI2  = "evi2"
	IndexSAVI  = "savi"
	IndexNDRE1 = "ndre1"
	IndexBSI   = "bsi"
	IndexSCI   = "sci"
	IndexAAI   = "aai"
	IndexEDI   = "edi"
)

const (
	epsilon   = 1e-10
	saviL     = 0.5
	evi2Gain  = 2.5
	evi2Coeff = 2.4
)

var errMissingBand = errors.New("features: band missing")

// SpectralCalculator derives band-ratio indices from reflectance rasters.
type SpectralCalculator struct {
	logger *zap.Logger
}

func NewSpectralCalculator(logger *zap.Logger) *SpectralCalculator {
	return &SpectralCalculator{logger: logger}
}

// Compute returns every index whose bands are present and equally shaped.
// Indices with a missing band are left out of the result; a shape mismatch
// also drops the index and is logged.
func (c *SpectralCalculator) Compute(bands map[string]*raster.Raster) map[string]*raster.Raster {
	out := make(map[string]*raster.Raster)

	if b, ok := c.need(IndexNDVI, bands, BandRed, BandNIR); ok {
		red, nir := b[0], b[1]
		out[IndexNDVI] = normalizedDifference(nir, red, epsilon)
		out[IndexEVI2] = evi2(nir, red)
		savi := normalizedDifference(nir, red, saviL)
		floats.Scale(1+saviL, savi.Data())
		out[IndexSAVI] = savi
	}

	if b, ok := c.need(IndexNDRE1, bands, BandNIR, BandRedEdge1); ok {
		out[IndexNDRE1] = normalizedDifference(b[0], b[1], epsilon)
	}

	if b, ok := c.need(IndexBSI, bands, BandRed, BandNIR, BandSWIR1, BandBlue); ok {
		red, nir, swir1, blue := b[0], b[1], b[2], b[3]
		soil := raster.ZerosLike(red)
		floats.AddTo(soil.Data(), swir1.Data(), red.Data())
		veg := raster.ZerosLike(red)
		floats.AddTo(veg.Data(), nir.Data(), blue.Data())
		out[IndexBSI] = normalizedDifference(soil, veg, epsilon)
	}

	if b, ok := c.need(IndexSCI, bands, BandSWIR1, BandNIR); ok {
		out[IndexSCI] = normalizedDifference(b[0], b[1], epsilon)
	}

	if b, ok := c.need(IndexAAI, bands, BandRed, BandSWIR1, BandNIR); ok {
		red, swir1, nir := b[0], b[1], b[2]
		num := raster.ZerosLike(red)
		floats.SubTo(num.Data(), swir1.Data(), red.Data())
		den := nir.Clone()
		floats.AddConst(epsilon, den.Data())
		floats.Div(num.Data(), den.Data())
		out[IndexAAI] = num
	}

	bsi, hasBSI := out[IndexBSI]
	ndvi, hasNDVI := out[IndexNDVI]
	if hasBSI && hasNDVI {
		edi := raster.ZerosLike(bsi)
		floats.SubTo(edi.Data(), bsi.Data(), ndvi.Data())
		floats.Scale(0.5, edi.Data())
		out[IndexEDI] = edi
	}

	return out
}

// need looks up the bands an index depends on.
func (c *SpectralCalculator) need(index string, bands map[string]*raster.Raster, codes ...string) ([]*raster.Raster, bool) {
	found, err := lookupBands(bands, codes...)
	switch {
	case err == nil:
		return found, true
	case errors.Is(err, errMissingBand):
		c.logger.Debug("Skipping spectral index", zap.String("index", index), zap.Error(err))
	default:
		c.logger.Warn("Skipping spectral index", zap.String("index", index), zap.Error(err))
	}
	return nil, false
}

func lookupBands(bands map[string]*raster.Raster, codes ...string) ([]*raster.Raster, error) {
	found := make([]*raster.Raster, len(codes))
	for i, code := range codes {
		b := bands[code]
		if b == nil {
			return nil, fmt.Errorf("%w: %s", errMissingBand, code)
		}
		if i > 0 && !b.SameShape(found[0]) {
			return nil, fmt.Errorf("%w: %s is %v, %s is %v",
				raster.ErrShapeMismatch, code, b, codes[0], found[0])
		}
		found[i] = b
	}
	return found, nil
}

// normalizedDifference computes (a-b)/(a+b+k).
func normalizedDifference(a, b *raster.Raster, k float64) *raster.Raster {
	out := raster.ZerosLike(a)
	den := raster.ZerosLike(a)
	floats.SubTo(out.Data(), a.Data(), b.Data())
	floats.AddTo(den.Data(), a.Data(), b.Data())
	floats.AddConst(k, den.Data())
	floats.Div(out.Data(), den.Data())
	return out
}

// evi2 computes 2.5*(nir-red)/(nir+2.4*red+1).
func evi2(nir, red *raster.Raster) *raster.Raster {
	out := raster.ZerosLike(nir)
	den := raster.ZerosLike(nir)
	floats.SubTo(out.Data(), nir.Data(), red.Data())
	floats.Scale(evi2Gain, out.Data())
	floats.AddScaledTo(den.Data(), nir.Data(), evi2Coeff, red.Data())
	floats.AddConst(1, den.Data())
	floats.Div(out.Data(), den.Data())
	return out
}

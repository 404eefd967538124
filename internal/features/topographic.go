package features

import (
	"fmt"
	"math"

	"github.com/earthwork-discovery/internal/raster"
	"go.uber.org/zap"
)

// Topographic feature names.
const (
	FeatureElevation        = "elevation"
	FeatureSlope            = "slope"
	FeatureAspect           = "aspect"
	FeatureTopoAnomaly      = "topo_anomaly"
	FeatureProfileCurvature = "profile_curvature"
	FeaturePlanCurvature    = "plan_curvature"
)

const (
	anomalySigma    = 15.0
	anomalyTruncate = 4.0
	curvatureEps    = 1e-10
)

// TPIRadii are the neighbourhood radii of the relief features.
var TPIRadii = []int{3, 7, 15}

func TPIName(radius int) string {
	return fmt.Sprintf("tpi_scale_%d", radius)
}

// TopographicResult holds the derived rasters and how each was obtained.
type TopographicResult struct {
	Features *Set
	Outcomes map[string]Outcome
}

// Defaulted lists the features replaced by zeros.
func (r *TopographicResult) Defaulted() []string {
	var names []string
	for _, name := range r.Features.Names() {
		if r.Outcomes[name].IsDefaulted() {
			names = append(names, name)
		}
	}
	return names
}

// TopographicCalculator derives terrain features from an elevation raster.
type TopographicCalculator struct {
	backend raster.Backend
	logger  *zap.Logger
}

func NewTopographicCalculator(backend raster.Backend, logger *zap.Logger) *TopographicCalculator {
	return &TopographicCalculator{backend: backend, logger: logger}
}

// Compute returns elevation, slope, aspect, topo_anomaly, the TPI scales and
// both curvatures, all shaped like dem. Individual failures are replaced
// with zeros and recorded in Outcomes; only an empty dem is an error.
func (c *TopographicCalculator) Compute(dem *raster.Raster) (*TopographicResult, error) {
	if dem == nil || dem.Len() == 0 {
		return nil, raster.ErrEmpty
	}
	res := &TopographicResult{
		Features: NewSet(),
		Outcomes: make(map[string]Outcome),
	}
	put := func(name string, r *raster.Raster, err error) {
		if err != nil {
			c.logger.Warn("Topographic feature failed, using zeros",
				zap.String("feature", name),
				zap.String("backend", c.backend.Name()),
				zap.Error(err),
			)
			r = raster.ZerosLike(dem)
			res.Outcomes[name] = defaulted(err)
		} else {
			res.Outcomes[name] = computed()
		}
		// shapes always match dem here
		_ = res.Features.Add(name, r)
	}

	put(FeatureElevation, dem.Clone(), nil)

	gy, gx, gradErr := raster.Gradient(c.backend, dem)
	if gradErr != nil {
		put(FeatureSlope, nil, gradErr)
		put(FeatureAspect, nil, gradErr)
	} else {
		slope, aspect := c.slopeAspect(gy, gx)
		put(FeatureSlope, slope, nil)
		put(FeatureAspect, aspect, nil)
	}

	anomaly, err := c.anomaly(dem)
	put(FeatureTopoAnomaly, anomaly, err)

	for _, radius := range TPIRadii {
		tpi, err := c.relief(dem, radius)
		put(TPIName(radius), tpi, err)
	}

	if gradErr != nil {
		put(FeatureProfileCurvature, nil, gradErr)
		put(FeaturePlanCurvature, nil, gradErr)
	} else {
		profile, plan, err := c.curvature(gy, gx)
		put(FeatureProfileCurvature, profile, err)
		put(FeaturePlanCurvature, plan, err)
	}

	return res, nil
}

func (c *TopographicCalculator) slopeAspect(gy, gx *raster.Raster) (*raster.Raster, *raster.Raster) {
	slope := raster.ZerosLike(gy)
	aspect := raster.ZerosLike(gy)
	cols := gy.Cols()
	_ = c.backend.Run(gy.Rows(), func(lo, hi int) error {
		for i := lo * cols; i < hi*cols; i++ {
			y, x := gy.Data()[i], gx.Data()[i]
			slope.Data()[i] = math.Sqrt(x*x + y*y)
			aspect.Data()[i] = math.Atan2(y, x)
		}
		return nil
	})
	return slope, aspect
}

func (c *TopographicCalculator) anomaly(dem *raster.Raster) (*raster.Raster, error) {
	smooth, err := raster.GaussianFilter(c.backend, dem, anomalySigma, anomalyTruncate)
	if err != nil {
		return nil, err
	}
	out := raster.ZerosLike(dem)
	cols := dem.Cols()
	err = c.backend.Run(dem.Rows(), func(lo, hi int) error {
		for i := lo * cols; i < hi*cols; i++ {
			out.Data()[i] = dem.Data()[i] - smooth.Data()[i]
		}
		return nil
	})
	return out, err
}

func (c *TopographicCalculator) relief(dem *raster.Raster, radius int) (*raster.Raster, error) {
	mean, err := raster.NeighborhoodMean(c.backend, dem, radius)
	if err != nil {
		return nil, err
	}
	out := raster.ZerosLike(dem)
	cols := dem.Cols()
	err = c.backend.Run(dem.Rows(), func(lo, hi int) error {
		for i := lo * cols; i < hi*cols; i++ {
			out.Data()[i] = dem.Data()[i] - mean.Data()[i]
		}
		return nil
	})
	return out, err
}

func (c *TopographicCalculator) curvature(gy, gx *raster.Raster) (profile, plan *raster.Raster, err error) {
	gyy, _, err := raster.Gradient(c.backend, gy)
	if err != nil {
		return nil, nil, err
	}
	gxy, gxx, err := raster.Gradient(c.backend, gx)
	if err != nil {
		return nil, nil, err
	}

	profile = raster.ZerosLike(gy)
	plan = raster.ZerosLike(gy)
	cols := gy.Cols()
	err = c.backend.Run(gy.Rows(), func(lo, hi int) error {
		for i := lo * cols; i < hi*cols; i++ {
			x, y := gx.Data()[i], gy.Data()[i]
			xx, xy, yy := gxx.Data()[i], gxy.Data()[i], gyy.Data()[i]
			mag := x*x + y*y + curvatureEps
			profile.Data()[i] = (xx*x*x + 2*xy*x*y + yy*y*y) / math.Pow(mag, 1.5)
			plan.Data()[i] = (xx*y*y - 2*xy*x*y + yy*x*x) / mag
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return profile, plan, nil
}

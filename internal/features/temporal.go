package features

import (
	"math"
	"sort"

	"github.com/earthwork-discovery/internal/raster"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Temporal feature names.
const (
	FeatureTemporalMean = "temporal_mean"
	FeatureTemporalStd  = "temporal_std"
	FeatureTemporalMin  = "temporal_min"
	FeatureTemporalMax  = "temporal_max"
	FeatureStability    = "stability_index"
	FeatureTrendSlope   = "trend_slope"
)

const stabilityOffset = 0.001

// TemporalResult holds per-pixel statistics over the period stack.
// Sufficient is false when fewer than two usable periods were supplied; the
// rasters then hold the neutral defaults (zeros, stability one).
type TemporalResult struct {
	Features   *Set
	Periods    []string
	Sufficient bool
}

// TemporalCalculator summarises a time series of aligned index rasters.
type TemporalCalculator struct {
	defaultRows int
	defaultCols int
	logger      *zap.Logger
}

// NewTemporalCalculator uses rows x cols only when no raster at all is
// supplied; otherwise outputs take the shape of the input.
func NewTemporalCalculator(rows, cols int, logger *zap.Logger) *TemporalCalculator {
	return &TemporalCalculator{defaultRows: rows, defaultCols: cols, logger: logger}
}

// Compute orders periods by label; the time index of a period is its
// position in that order. Periods shaped differently from the first are
// dropped.
func (c *TemporalCalculator) Compute(series map[string]*raster.Raster) *TemporalResult {
	return c.ComputeOnGrid(series, c.defaultRows, c.defaultCols)
}

// ComputeOnGrid is Compute with rows x cols as the shape of the neutral
// rasters returned when series holds no usable period.
func (c *TemporalCalculator) ComputeOnGrid(series map[string]*raster.Raster, rows, cols int) *TemporalResult {
	labels := make([]string, 0, len(series))
	for label, r := range series {
		if r != nil {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	var stack []*raster.Raster
	var periods []string
	for _, label := range labels {
		r := series[label]
		if len(stack) > 0 && !r.SameShape(stack[0]) {
			c.logger.Warn("Dropping temporal period with mismatched shape",
				zap.String("period", label),
				zap.Stringer("shape", r),
				zap.Stringer("expected", stack[0]),
			)
			continue
		}
		stack = append(stack, r)
		periods = append(periods, label)
	}

	if len(stack) < 2 {
		if len(stack) == 1 {
			rows, cols = stack[0].Shape()
		}
		c.logger.Warn("Insufficient temporal data, using default statistics",
			zap.Int("periods", len(stack)),
			zap.Int("rows", rows),
			zap.Int("cols", cols),
		)
		return &TemporalResult{
			Features: degenerateTemporal(rows, cols),
			Periods:  periods,
		}
	}

	return &TemporalResult{
		Features:   temporalStatistics(stack),
		Periods:    periods,
		Sufficient: true,
	}
}

func degenerateTemporal(rows, cols int) *Set {
	set := NewSet()
	_ = set.Add(FeatureTemporalMean, raster.New(rows, cols))
	_ = set.Add(FeatureTemporalStd, raster.New(rows, cols))
	_ = set.Add(FeatureTemporalMin, raster.New(rows, cols))
	_ = set.Add(FeatureTemporalMax, raster.New(rows, cols))
	_ = set.Add(FeatureStability, raster.Filled(rows, cols, 1))
	_ = set.Add(FeatureTrendSlope, raster.New(rows, cols))
	return set
}

func temporalStatistics(stack []*raster.Raster) *Set {
	rows, cols := stack[0].Shape()
	mean := raster.New(rows, cols)
	std := raster.New(rows, cols)
	lo := raster.New(rows, cols)
	hi := raster.New(rows, cols)
	stability := raster.New(rows, cols)
	slope := raster.New(rows, cols)

	values := make([]float64, 0, len(stack))
	times := make([]float64, 0, len(stack))
	for i := range mean.Data() {
		values = values[:0]
		times = times[:0]
		for t, r := range stack {
			v := r.Data()[i]
			if math.IsNaN(v) {
				continue
			}
			values = append(values, v)
			times = append(times, float64(t))
		}

		if len(values) == 0 {
			nan := math.NaN()
			mean.Data()[i], std.Data()[i] = nan, nan
			lo.Data()[i], hi.Data()[i] = nan, nan
			stability.Data()[i] = nan
			continue
		}

		m := stat.Mean(values, nil)
		s := popStdDev(values, m)
		mean.Data()[i] = m
		std.Data()[i] = s
		lo.Data()[i] = floats.Min(values)
		hi.Data()[i] = floats.Max(values)
		stability.Data()[i] = 1 / (s + stabilityOffset)
		if len(values) > 1 {
			_, beta := stat.LinearRegression(times, values, nil, false)
			slope.Data()[i] = beta
		}
	}

	set := NewSet()
	_ = set.Add(FeatureTemporalMean, mean)
	_ = set.Add(FeatureTemporalStd, std)
	_ = set.Add(FeatureTemporalMin, lo)
	_ = set.Add(FeatureTemporalMax, hi)
	_ = set.Add(FeatureStability, stability)
	_ = set.Add(FeatureTrendSlope, slope)
	return set
}

// popStdDev is the population standard deviation around mean; a single
// sample has zero spread.
func popStdDev(values []float64, mean float64) float64 {
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

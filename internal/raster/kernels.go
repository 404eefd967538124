package raster

import (
	"fmt"
	"math"
)

// Gradient returns the derivatives of r along rows (gy) and columns (gx)
// with unit spacing: central differences inside, one-sided first
// differences on the edges. Both axes need at least two samples.
func Gradient(b Backend, r *Raster) (gy, gx *Raster, err error) {
	rows, cols := r.Shape()
	if rows < 2 || cols < 2 {
		return nil, nil, fmt.Errorf("%w: %dx%d", ErrTooSmall, rows, cols)
	}
	gy = New(rows, cols)
	gx = New(rows, cols)

	err = b.Run(rows, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			for j := 0; j < cols; j++ {
				switch i {
				case 0:
					gy.Set(i, j, r.At(1, j)-r.At(0, j))
				case rows - 1:
					gy.Set(i, j, r.At(rows-1, j)-r.At(rows-2, j))
				default:
					gy.Set(i, j, (r.At(i+1, j)-r.At(i-1, j))/2)
				}
			}
			src := r.Row(i)
			dst := gx.Row(i)
			dst[0] = src[1] - src[0]
			dst[cols-1] = src[cols-1] - src[cols-2]
			for j := 1; j < cols-1; j++ {
				dst[j] = (src[j+1] - src[j-1]) / 2
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return gy, gx, nil
}

// GaussianKernel returns the normalized 1-D weights for sigma with a
// radius of int(truncate*sigma + 0.5).
func GaussianKernel(sigma, truncate float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	weights := make([]float64, 2*radius+1)
	if sigma <= 0 {
		weights[radius] = 1
		return weights
	}
	var sum float64
	for k := -radius; k <= radius; k++ {
		w := math.Exp(-0.5 * float64(k*k) / (sigma * sigma))
		weights[k+radius] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// GaussianFilter smooths r with a separable Gaussian, rows first, using
// half-sample symmetric reflection at the borders.
func GaussianFilter(b Backend, r *Raster, sigma, truncate float64) (*Raster, error) {
	rows, cols := r.Shape()
	if rows == 0 || cols == 0 {
		return nil, ErrEmpty
	}
	weights := GaussianKernel(sigma, truncate)
	radius := len(weights) / 2

	tmpBuf := b.Scratch(rows * cols)
	defer b.Recycle(tmpBuf)
	tmp, err := FromSlice(rows, cols, tmpBuf)
	if err != nil {
		return nil, err
	}

	err = b.Run(rows, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			dst := tmp.Row(i)
			for k := -radius; k <= radius; k++ {
				w := weights[k+radius]
				src := r.Row(reflectIndex(i+k, rows))
				for j := 0; j < cols; j++ {
					dst[j] += w * src[j]
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := New(rows, cols)
	err = b.Run(rows, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			src := tmp.Row(i)
			dst := out.Row(i)
			for j := 0; j < cols; j++ {
				var acc float64
				for k := -radius; k <= radius; k++ {
					acc += weights[k+radius] * src[reflectIndex(j+k, cols)]
				}
				dst[j] = acc
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NeighborhoodMean returns, for every pixel, the mean of the
// (2*radius+1)^2 window around it excluding the pixel itself. Borders are
// reflected. The window must fit inside the raster.
func NeighborhoodMean(b Backend, r *Raster, radius int) (*Raster, error) {
	rows, cols := r.Shape()
	if radius < 1 {
		return nil, fmt.Errorf("raster: neighborhood radius %d must be positive", radius)
	}
	size := 2*radius + 1
	if size > rows || size > cols {
		return nil, fmt.Errorf("%w: window %d on %dx%d", ErrWindowTooLarge, size, rows, cols)
	}

	// Summed-area table over the reflect-padded raster, with a leading
	// zero row and column.
	pr, pc := rows+2*radius, cols+2*radius
	stride := pc + 1
	sat := b.Scratch((pr + 1) * stride)
	defer b.Recycle(sat)
	for i := 0; i < pr; i++ {
		src := r.Row(reflectIndex(i-radius, rows))
		var rowSum float64
		for j := 0; j < pc; j++ {
			rowSum += src[reflectIndex(j-radius, cols)]
			sat[(i+1)*stride+j+1] = sat[i*stride+j+1] + rowSum
		}
	}

	count := float64(size*size - 1)
	out := New(rows, cols)
	err := b.Run(rows, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			top, bottom := i, i+size
			dst := out.Row(i)
			src := r.Row(i)
			for j := 0; j < cols; j++ {
				left, right := j, j+size
				sum := sat[bottom*stride+right] - sat[top*stride+right] -
					sat[bottom*stride+left] + sat[top*stride+left]
				dst[j] = (sum - src[j]) / count
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Package raster holds the dense 2-D grids every feature is computed on,
// the affine pixel geotransform, and the compute backends the kernels run
// on.
package raster

import (
	"errors"
	"fmt"
)

var (
	ErrShapeMismatch  = errors.New("raster: shape mismatch")
	ErrEmpty          = errors.New("raster: empty raster")
	ErrTooSmall       = errors.New("raster: dimension shorter than two samples")
	ErrWindowTooLarge = errors.New("raster: window larger than raster")
)

// Raster is a row-major grid of float64 samples.
type Raster struct {
	rows int
	cols int
	data []float64
}

func New(rows, cols int) *Raster {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("raster: negative shape %dx%d", rows, cols))
	}
	return &Raster{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Filled returns a rows x cols raster where every sample is v.
func Filled(rows, cols int, v float64) *Raster {
	r := New(rows, cols)
	for i := range r.data {
		r.data[i] = v
	}
	return r
}

// FromSlice wraps data without copying.
func FromSlice(rows, cols int, data []float64) (*Raster, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrShapeMismatch, len(data), rows, cols)
	}
	return &Raster{rows: rows, cols: cols, data: data}, nil
}

// FromRows copies a jagged-free [][]float64.
func FromRows(values [][]float64) (*Raster, error) {
	rows := len(values)
	if rows == 0 {
		return New(0, 0), nil
	}
	cols := len(values[0])
	r := New(rows, cols)
	for i, row := range values {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), cols)
		}
		copy(r.data[i*cols:(i+1)*cols], row)
	}
	return r, nil
}

func ZerosLike(r *Raster) *Raster {
	return New(r.rows, r.cols)
}

func (r *Raster) Rows() int { return r.rows }
func (r *Raster) Cols() int { return r.cols }

func (r *Raster) Shape() (int, int) { return r.rows, r.cols }

func (r *Raster) Len() int { return len(r.data) }

func (r *Raster) At(i, j int) float64 { return r.data[i*r.cols+j] }

func (r *Raster) Set(i, j int, v float64) { r.data[i*r.cols+j] = v }

// Data exposes the backing slice.
func (r *Raster) Data() []float64 { return r.data }

// Row returns row i as a subslice of the backing storage.
func (r *Raster) Row(i int) []float64 { return r.data[i*r.cols : (i+1)*r.cols] }

func (r *Raster) InBounds(i, j int) bool {
	return i >= 0 && i < r.rows && j >= 0 && j < r.cols
}

func (r *Raster) SameShape(o *Raster) bool {
	return o != nil && r.rows == o.rows && r.cols == o.cols
}

func (r *Raster) Clone() *Raster {
	c := New(r.rows, r.cols)
	copy(c.data, r.data)
	return c
}

func (r *Raster) String() string {
	return fmt.Sprintf("Raster(%dx%d)", r.rows, r.cols)
}

// reflectIndex maps i onto [0, n) with half-sample symmetric reflection
// (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	m := i % period
	if m < 0 {
		m += period
	}
	if m >= n {
		m = period - 1 - m
	}
	return m
}

package raster

import (
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	BackendReference = "reference"
	BackendParallel  = "parallel"
)

// Backend executes row-banded work for the kernels in this package. Every
// kernel computes each output pixel from read-only inputs, so the band
// split never changes results.
type Backend interface {
	Name() string
	// Run calls fn over disjoint half-open row ranges covering [0, rows).
	Run(rows int, fn func(lo, hi int) error) error
	// Scratch returns a zeroed buffer of length n. Return it with Recycle.
	Scratch(n int) []float64
	Recycle(buf []float64)
	// Release drops pooled scratch memory.
	Release()
}

// SelectBackend probes the host once. The parallel backend is used when
// accelerate is set and more than one CPU is usable; otherwise the
// reference backend is returned and the fallback is logged.
func SelectBackend(accelerate bool, workers int, logger *zap.Logger) Backend {
	procs := runtime.GOMAXPROCS(0)
	if !accelerate {
		logger.Info("Accelerated backend disabled, using reference backend")
		return NewReference()
	}
	if procs < 2 {
		logger.Info("Accelerated backend unavailable, using reference backend",
			zap.Int("usable_cpus", procs),
		)
		return NewReference()
	}
	if workers <= 0 || workers > procs {
		workers = procs
	}
	logger.Info("Using parallel backend", zap.Int("workers", workers))
	return NewParallel(workers)
}

type reference struct{}

func NewReference() Backend {
	return reference{}
}

func (reference) Name() string { return BackendReference }

func (reference) Run(rows int, fn func(lo, hi int) error) error {
	if rows <= 0 {
		return nil
	}
	return fn(0, rows)
}

func (reference) Scratch(n int) []float64 { return make([]float64, n) }

func (reference) Recycle([]float64) {}

func (reference) Release() {}

// Parallel splits rows into one band per worker and runs them on an
// errgroup. Scratch buffers are pooled between kernel calls.
type Parallel struct {
	workers int

	mu   sync.Mutex
	free [][]float64
}

func NewParallel(workers int) *Parallel {
	if workers < 1 {
		workers = 1
	}
	return &Parallel{workers: workers}
}

func (p *Parallel) Name() string { return BackendParallel }

func (p *Parallel) Workers() int { return p.workers }

func (p *Parallel) Run(rows int, fn func(lo, hi int) error) error {
	if rows <= 0 {
		return nil
	}
	band := (rows + p.workers - 1) / p.workers

	var g errgroup.Group
	g.SetLimit(p.workers)
	for lo := 0; lo < rows; lo += band {
		lo, hi := lo, min(lo+band, rows)
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	return g.Wait()
}

func (p *Parallel) Scratch(n int) []float64 {
	p.mu.Lock()
	for i, buf := range p.free {
		if cap(buf) >= n {
			p.free = append(p.free[:i], p.free[i+1:]...)
			p.mu.Unlock()
			buf = buf[:n]
			clear(buf)
			return buf
		}
	}
	p.mu.Unlock()
	return make([]float64, n)
}

func (p *Parallel) Recycle(buf []float64) {
	if buf == nil {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, buf)
	p.mu.Unlock()
}

// Pooled reports how many scratch buffers are held.
func (p *Parallel) Pooled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

func (p *Parallel) Release() {
	p.mu.Lock()
	p.free = nil
	p.mu.Unlock()
}

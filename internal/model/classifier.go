package model

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

const formatVersion = 1

// Classifier is a binary gradient-boosted tree ensemble with a logistic
// objective.
type Classifier struct {
	params     Params
	features   []string
	trees      []*tree
	importance []float64
	logger     *zap.Logger
}

func NewClassifier(params Params, logger *zap.Logger) *Classifier {
	return &Classifier{params: params, logger: logger}
}

func (c *Classifier) Params() Params { return c.params }

func (c *Classifier) Fitted() bool { return len(c.trees) > 0 }

// Features returns the column names the classifier was fitted on.
func (c *Classifier) Features() []string { return c.features }

// Fit trains on x with labels 0 or 1. features names the columns of x and
// may be nil. Refitting discards the previous ensemble.
func (c *Classifier) Fit(x [][]float64, y []int, features []string) error {
	if err := c.params.validate(); err != nil {
		return err
	}
	if len(x) == 0 {
		return ErrEmpty
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrDimension, len(x), len(y))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimension, i, len(row), width)
		}
	}
	if features != nil && len(features) != width {
		return fmt.Errorf("%w: %d names for %d columns", ErrDimension, len(features), width)
	}
	if !bothClasses(y) {
		return ErrSingleClass
	}

	started := time.Now()
	rng := rand.New(rand.NewPCG(c.params.Seed, c.params.Seed^0x5851f42d4c957f2d))
	margin := make([]float64, len(x))
	grad := make([]float64, len(x))
	hess := make([]float64, len(x))
	gain := make([]float64, width)
	trees := make([]*tree, 0, c.params.NEstimators)

	for round := 0; round < c.params.NEstimators; round++ {
		for i := range x {
			p := sigmoid(margin[i])
			grad[i] = p - float64(y[i])
			hess[i] = math.Max(p*(1-p), 1e-16)
		}

		g := &grower{
			x:        x,
			grad:     grad,
			hess:     hess,
			features: sampleIndexes(rng, width, c.params.ColsampleByTree),
			params:   c.params,
			gain:     gain,
		}
		t := g.grow(sampleIndexes(rng, len(x), c.params.Subsample))
		for i := range t.Nodes {
			t.Nodes[i].Value *= c.params.LearningRate
		}
		for i, row := range x {
			margin[i] += t.leaf(row)
		}
		trees = append(trees, t)
	}

	c.trees = trees
	c.importance = normalize(gain)
	c.features = features
	if c.features == nil {
		c.features = make([]string, width)
		for i := range c.features {
			c.features[i] = fmt.Sprintf("f%d", i)
		}
	}

	c.logger.Info("Classifier trained",
		zap.Int("rows", len(x)),
		zap.Int("features", width),
		zap.Int("trees", len(trees)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// PredictProba returns the positive-class probability of every row.
func (c *Classifier) PredictProba(x [][]float64) ([]float64, error) {
	if !c.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(c.features) {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimension, i, len(row), len(c.features))
		}
		var m float64
		for _, t := range c.trees {
			m += t.leaf(row)
		}
		out[i] = sigmoid(m)
	}
	return out, nil
}

// Importance maps feature names to their share of the total split gain.
func (c *Classifier) Importance() map[string]float64 {
	out := make(map[string]float64, len(c.features))
	for i, name := range c.features {
		if i < len(c.importance) {
			out[name] = c.importance[i]
		}
	}
	return out
}

type persisted struct {
	Version    int       `json:"version"`
	Params     Params    `json:"params"`
	Features   []string  `json:"features"`
	Importance []float64 `json:"importance"`
	Trees      []*tree   `json:"trees"`
}

// Save writes the fitted ensemble as JSON.
func (c *Classifier) Save(w io.Writer) error {
	if !c.Fitted() {
		return ErrNotFitted
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(persisted{
		Version:    formatVersion,
		Params:     c.params,
		Features:   c.features,
		Importance: c.importance,
		Trees:      c.trees,
	})
}

// Load reads a classifier previously written by Save.
func Load(r io.Reader, logger *zap.Logger) (*Classifier, error) {
	var p persisted
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode classifier: %w", err)
	}
	if p.Version != formatVersion {
		return nil, fmt.Errorf("unsupported classifier version %d", p.Version)
	}
	if len(p.Trees) == 0 {
		return nil, ErrNotFitted
	}
	return &Classifier{
		params:     p.Params,
		features:   p.Features,
		trees:      p.Trees,
		importance: p.Importance,
		logger:     logger,
	}, nil
}

func sigmoid(m float64) float64 {
	return 1 / (1 + math.Exp(-m))
}

func bothClasses(y []int) bool {
	var pos, neg bool
	for _, v := range y {
		if v == 1 {
			pos = true
		} else {
			neg = true
		}
	}
	return pos && neg
}

// sampleIndexes draws max(1, frac*n) distinct indexes in ascending order.
func sampleIndexes(rng *rand.Rand, n int, frac float64) []int {
	k := max(1, int(frac*float64(n)))
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := make([]bool, n)
	for _, i := range rng.Perm(n)[:k] {
		picked[i] = true
	}
	out := make([]int, 0, k)
	for i, ok := range picked {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	if sum := floats.Sum(out); sum > 0 {
		floats.Scale(1/sum, out)
	}
	return out
}

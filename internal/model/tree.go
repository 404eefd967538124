package model

import (
	"math"
	"slices"
)

// node is one entry of a flattened regression tree. Children are indexes
// into the owning tree; a leaf has Left == -1.
type node struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	DefaultLeft bool    `json:"default_left"`
	Value       float64 `json:"value"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) leaf(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.DefaultLeft {
				i = n.Left
			} else {
				i = n.Right
			}
		case v < n.Threshold:
			i = n.Left
		default:
			i = n.Right
		}
	}
}

// grower fits one tree to first and second order gradients with exact
// greedy split search.
type grower struct {
	x        [][]float64
	grad     []float64
	hess     []float64
	features []int
	params   Params
	gain     []float64
	tree     *tree
}

type split struct {
	feature     int
	threshold   float64
	gain        float64
	defaultLeft bool
	valid       bool
}

func (g *grower) grow(rows []int) *tree {
	g.tree = &tree{}
	g.build(rows, 0)
	return g.tree
}

func (g *grower) build(rows []int, depth int) int {
	var sumG, sumH float64
	for _, r := range rows {
		sumG += g.grad[r]
		sumH += g.hess[r]
	}
	idx := len(g.tree.Nodes)
	g.tree.Nodes = append(g.tree.Nodes, node{Left: -1, Right: -1, Value: g.weight(sumG, sumH)})

	if depth >= g.params.MaxDepth || len(rows) < 2 {
		return idx
	}
	best := g.bestSplit(rows, sumG, sumH)
	if !best.valid {
		return idx
	}

	var left, right []int
	for _, r := range rows {
		v := g.x[r][best.feature]
		if (math.IsNaN(v) && best.defaultLeft) || v < best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	g.gain[best.feature] += best.gain

	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	n := &g.tree.Nodes[idx]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.DefaultLeft = best.defaultLeft
	n.Left, n.Right = l, r
	return idx
}

func (g *grower) bestSplit(rows []int, sumG, sumH float64) split {
	parent := g.score(sumG, sumH)
	best := split{}
	order := make([]int, 0, len(rows))

	for _, f := range g.features {
		order = order[:0]
		var missG, missH float64
		for _, r := range rows {
			if math.IsNaN(g.x[r][f]) {
				missG += g.grad[r]
				missH += g.hess[r]
				continue
			}
			order = append(order, r)
		}
		if len(order) < 2 {
			continue
		}
		slices.SortFunc(order, func(a, b int) int {
			return compareFloat(g.x[a][f], g.x[b][f])
		})

		var lg, lh float64
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			lg += g.grad[r]
			lh += g.hess[r]
			cur, next := g.x[r][f], g.x[order[i+1]][f]
			if cur == next {
				continue
			}
			threshold := cur + (next-cur)/2
			rg := sumG - missG - lg
			rh := sumH - missH - lh

			// missing values on the right, then on the left
			if gain, ok := g.splitGain(lg, lh, rg+missG, rh+missH, parent); ok && gain > best.gain {
				best = split{feature: f, threshold: threshold, gain: gain, valid: true}
			}
			if missH > 0 {
				if gain, ok := g.splitGain(lg+missG, lh+missH, rg, rh, parent); ok && gain > best.gain {
					best = split{feature: f, threshold: threshold, gain: gain, defaultLeft: true, valid: true}
				}
			}
		}
	}
	return best
}

func (g *grower) splitGain(lg, lh, rg, rh, parent float64) (float64, bool) {
	if lh < g.params.MinChildWeight || rh < g.params.MinChildWeight {
		return 0, false
	}
	gain := 0.5 * (g.score(lg, lh) + g.score(rg, rh) - parent)
	return gain, gain > 0
}

func (g *grower) score(sumG, sumH float64) float64 {
	t := softThreshold(sumG, g.params.RegAlpha)
	return t * t / (sumH + g.params.RegLambda)
}

func (g *grower) weight(sumG, sumH float64) float64 {
	den := sumH + g.params.RegLambda
	if den == 0 {
		return 0
	}
	return -softThreshold(sumG, g.params.RegAlpha) / den
}

func softThreshold(v, alpha float64) float64 {
	switch {
	case v > alpha:
		return v - alpha
	case v < -alpha:
		return v + alpha
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

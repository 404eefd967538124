package usecase

import (
	"math"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/features"
)

// Dataset is the labelled training matrix pooled over tiles. Tiles may
// expose different feature columns; a value a tile could not provide is NaN.
type Dataset struct {
	Columns   []string
	X         [][]float64
	Y         []int
	Points    []domain.SamplePoint
	Defaulted int

	index map[string]int
}

func NewDataset() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

func (d *Dataset) Len() int { return len(d.Y) }

// Counts returns the number of positive and negative rows.
func (d *Dataset) Counts() (positives, negatives int) {
	for _, y := range d.Y {
		if y == domain.LabelPositive {
			positives++
		} else {
			negatives++
		}
	}
	return positives, negatives
}

// Append adds the rows of table with labels, widening the matrix when the
// table brings new columns.
func (d *Dataset) Append(table *features.Table, labels []int, tileName string) {
	for _, c := range table.Columns {
		if _, ok := d.index[c]; ok {
			continue
		}
		d.index[c] = len(d.Columns)
		d.Columns = append(d.Columns, c)
		for i := range d.X {
			d.X[i] = append(d.X[i], math.NaN())
		}
	}

	for i, r := range table.Rows {
		d.X = append(d.X, alignRow(r.Values, table.Columns, d.index, len(d.Columns)))
		d.Y = append(d.Y, labels[i])
		d.Points = append(d.Points, domain.SamplePoint{Point: r.Point, Label: labels[i], Tile: tileName})
		if r.Outcome.IsDefaulted() {
			d.Defaulted++
		}
	}
}

// Subset returns the rows at idx.
func (d *Dataset) Subset(idx []int) ([][]float64, []int) {
	x := make([][]float64, len(idx))
	y := make([]int, len(idx))
	for i, k := range idx {
		x[i] = d.X[k]
		y[i] = d.Y[k]
	}
	return x, y
}

// alignRow places values named by columns at the positions given by index.
// Positions no column maps to are NaN.
func alignRow(values []float64, columns []string, index map[string]int, width int) []float64 {
	row := make([]float64, width)
	for i := range row {
		row[i] = math.NaN()
	}
	for i, c := range columns {
		if k, ok := index[c]; ok && k < width {
			row[k] = values[i]
		}
	}
	return row
}

// columnIndex maps names to their position.
func columnIndex(names []string) map[string]int {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return index
}

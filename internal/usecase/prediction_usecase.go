package usecase

import (
	"context"
	"fmt"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/features"
	"github.com/earthwork-discovery/internal/metrics"
	"github.com/earthwork-discovery/internal/model"
	"go.uber.org/zap"
)

// Prediction is the classifier probability at one grid point.
type Prediction struct {
	domain.Point
	Probability float64 `json:"probability"`
	Tile        string  `json:"tile"`
}

// PredictionUseCase scores a regular grid of pixel centres.
type PredictionUseCase struct {
	step    int
	metrics *metrics.Pipeline
	logger  *zap.Logger
}

// NewPredictionUseCase samples every step-th row and column.
func NewPredictionUseCase(step int, m *metrics.Pipeline, logger *zap.Logger) *PredictionUseCase {
	if step < 1 {
		step = 1
	}
	return &PredictionUseCase{step: step, metrics: m, logger: logger}
}

// GridPoints returns the pixel centres of the prediction grid of tf.
func (uc *PredictionUseCase) GridPoints(tf *TileFeatures) []domain.Point {
	rows, cols := tf.Set.Shape()
	var points []domain.Point
	for i := 0; i < rows; i += uc.step {
		for j := 0; j < cols; j += uc.step {
			lon, lat := tf.Tile.Transform.Center(i, j)
			points = append(points, domain.Point{Lat: lat, Lon: lon})
		}
	}
	return points
}

// PredictTile scores the grid of tf with clf. Feature columns are matched
// to the classifier by name; columns the tile lacks are NaN.
func (uc *PredictionUseCase) PredictTile(ctx context.Context, clf *model.Classifier, tf *TileFeatures, extractor *features.Extractor) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	points := uc.GridPoints(tf)
	if len(points) == 0 {
		return nil, nil
	}

	table := extractor.Extract(points, tf.Set, tf.Tile.Transform)
	index := columnIndex(clf.Features())
	x := make([][]float64, len(table.Rows))
	for i, r := range table.Rows {
		x[i] = alignRow(r.Values, table.Columns, index, len(index))
	}

	probs, err := clf.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", tf.Tile.Name, err)
	}

	out := make([]Prediction, len(points))
	for i, p := range points {
		out[i] = Prediction{Point: p, Probability: probs[i], Tile: tf.Tile.Name}
	}
	uc.metrics.Predictions.Add(float64(len(out)))
	uc.logger.Info("Tile predicted",
		zap.String("tile", tf.Tile.Name),
		zap.Int("points", len(out)),
		zap.Int("step", uc.step),
	)
	return out, nil
}

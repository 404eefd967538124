package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFitted   = errors.New("model: classifier is not fitted")
	ErrSingleClass = errors.New("model: labels contain a single class")
	ErrEmpty       = errors.New("model: no training rows")
	ErrDimension   = errors.New("model: feature count mismatch")
)

// Params are the gradient boosting hyperparameters. Names follow the
// usual xgboost vocabulary.
type Params struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinChildWeight  float64 `json:"min_child_weight"`
	Subsample       float64 `json:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree"`
	RegAlpha        float64 `json:"reg_alpha"`
	RegLambda       float64 `json:"reg_lambda"`
	Seed            uint64  `json:"seed"`
}

func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		LearningRate:    0.01,
		MaxDepth:        3,
		MinChildWeight:  5,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		RegAlpha:        0.1,
		RegLambda:       1.0,
		Seed:            42,
	}
}

func (p Params) validate() error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("model: n_estimators must be positive, got %d", p.NEstimators)
	case p.LearningRate <= 0:
		return fmt.Errorf("model: learning_rate must be positive, got %g", p.LearningRate)
	case p.MaxDepth < 1:
		return fmt.Errorf("model: max_depth must be positive, got %d", p.MaxDepth)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("model: subsample must be in (0, 1], got %g", p.Subsample)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("model: colsample_bytree must be in (0, 1], got %g", p.ColsampleByTree)
	case p.RegAlpha < 0 || p.RegLambda < 0 || p.MinChildWeight < 0:
		return fmt.Errorf("model: regularization terms must be non-negative")
	}
	return nil
}

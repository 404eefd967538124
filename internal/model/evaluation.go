package model

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ROCAUC is the area under the ROC curve of scores against labels. Tied
// scores form a single diagonal step of the curve.
func ROCAUC(y []int, scores []float64) (float64, error) {
	if len(y) != len(scores) {
		return 0, fmt.Errorf("%w: %d labels, %d scores", ErrDimension, len(y), len(scores))
	}
	if !bothClasses(y) {
		return 0, ErrSingleClass
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return compareFloat(scores[a], scores[b])
	})

	sorted := make([]float64, len(order))
	positive := make([]bool, len(order))
	for i, k := range order {
		sorted[i] = scores[k]
		positive[i] = y[k] == 1
	}
	tpr, fpr, _ := stat.ROC(nil, sorted, positive, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// StratifiedSplit partitions row indexes into train and test sets keeping
// the class ratio. Each class contributes round(testFraction*count) rows to
// the test set, at least one when the class has two or more rows.
func StratifiedSplit(y []int, testFraction float64, seed uint64) (train, test []int) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	for _, class := range classIndexes(y) {
		if len(class) == 0 {
			continue
		}
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })
		k := int(testFraction*float64(len(class)) + 0.5)
		if k == 0 && len(class) > 1 {
			k = 1
		}
		if k >= len(class) {
			k = len(class) - 1
		}
		test = append(test, class[:k]...)
		train = append(train, class[k:]...)
	}
	slices.Sort(train)
	slices.Sort(test)
	return train, test
}

// StratifiedKFold deals the shuffled rows of each class round-robin into k
// folds and returns the test indexes of every fold.
func StratifiedKFold(y []int, k int, seed uint64) [][]int {
	rng := rand.New(rand.NewPCG(seed, seed+2))
	folds := make([][]int, k)
	for _, class := range classIndexes(y) {
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })
		for i, idx := range class {
			folds[i%k] = append(folds[i%k], idx)
		}
	}
	for _, f := range folds {
		slices.Sort(f)
	}
	return folds
}

// CVResult holds per-fold AUCs. Folds whose train or test part lacks a class
// are skipped.
type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64
}

// CrossValidate fits a fresh classifier per fold and scores it by ROC AUC.
func CrossValidate(params Params, x [][]float64, y []int, k int, logger *zap.Logger) (*CVResult, error) {
	if k < 2 {
		return nil, fmt.Errorf("model: need at least 2 folds, got %d", k)
	}
	res := &CVResult{}
	for i, testIdx := range StratifiedKFold(y, k, params.Seed) {
		inTest := make(map[int]bool, len(testIdx))
		for _, idx := range testIdx {
			inTest[idx] = true
		}
		var trainX, testX [][]float64
		var trainY, testY []int
		for idx := range x {
			if inTest[idx] {
				testX = append(testX, x[idx])
				testY = append(testY, y[idx])
			} else {
				trainX = append(trainX, x[idx])
				trainY = append(trainY, y[idx])
			}
		}

		clf := NewClassifier(params, zap.NewNop())
		if err := clf.Fit(trainX, trainY, nil); err != nil {
			if errors.Is(err, ErrSingleClass) || errors.Is(err, ErrEmpty) {
				logger.Warn("Skipping cross-validation fold", zap.Int("fold", i), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		proba, err := clf.PredictProba(testX)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		auc, err := ROCAUC(testY, proba)
		if err != nil {
			logger.Warn("Skipping cross-validation fold", zap.Int("fold", i), zap.Error(err))
			continue
		}
		res.Scores = append(res.Scores, auc)
	}
	if len(res.Scores) == 0 {
		return nil, ErrSingleClass
	}
	res.Mean, res.Std = stat.PopMeanStdDev(res.Scores, nil)
	if len(res.Scores) == 1 {
		res.Std = 0
	}
	return res, nil
}

func classIndexes(y []int) [][]int {
	var neg, pos []int
	for i, v := range y {
		if v == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	return [][]int{neg, pos}
}

package usecase

import (
	"fmt"

	"github.com/earthwork-discovery/internal/config"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/metrics"
	"github.com/earthwork-discovery/internal/model"
	apperrors "github.com/earthwork-discovery/internal/pkg/errors"
	"go.uber.org/zap"
)

// TrainingResult is a fitted classifier with its evaluation.
type TrainingResult struct {
	Classifier *model.Classifier
	Metrics    domain.ModelMetrics
	TrainRows  int
	TestRows   int
}

// TrainingUseCase fits and evaluates the classifier.
type TrainingUseCase struct {
	cfg     config.ModelConfig
	seed    uint64
	metrics *metrics.Pipeline
	logger  *zap.Logger
}

func NewTrainingUseCase(cfg config.ModelConfig, seed uint64, m *metrics.Pipeline, logger *zap.Logger) *TrainingUseCase {
	return &TrainingUseCase{cfg: cfg, seed: seed, metrics: m, logger: logger}
}

// Params maps the configuration onto classifier hyperparameters.
func (uc *TrainingUseCase) Params() model.Params {
	return model.Params{
		NEstimators:     uc.cfg.NEstimators,
		LearningRate:    uc.cfg.LearningRate,
		MaxDepth:        uc.cfg.MaxDepth,
		MinChildWeight:  uc.cfg.MinChildWeight,
		Subsample:       uc.cfg.Subsample,
		ColsampleByTree: uc.cfg.ColsampleByTree,
		RegAlpha:        uc.cfg.RegAlpha,
		RegLambda:       uc.cfg.RegLambda,
		Seed:            uc.seed,
	}
}

// Train holds out a stratified test split, fits on the rest and reports
// train, test and cross-validated ROC AUC. A metric that cannot be
// computed is logged and left at zero.
func (uc *TrainingUseCase) Train(ds *Dataset) (*TrainingResult, error) {
	pos, neg := ds.Counts()
	if pos == 0 || neg == 0 {
		return nil, apperrors.ErrInsufficientTraining.WithDetails(map[string]interface{}{
			"positives": pos,
			"negatives": neg,
		})
	}

	trainIdx, testIdx := model.StratifiedSplit(ds.Y, uc.cfg.TestFraction, uc.seed)
	xTrain, yTrain := ds.Subset(trainIdx)
	xTest, yTest := ds.Subset(testIdx)

	clf := model.NewClassifier(uc.Params(), uc.logger)
	if err := clf.Fit(xTrain, yTrain, ds.Columns); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	res := &TrainingResult{Classifier: clf, TrainRows: len(trainIdx), TestRows: len(testIdx)}
	res.Metrics.TrainAUC = uc.auc(clf, xTrain, yTrain, "train")
	res.Metrics.TestAUC = uc.auc(clf, xTest, yTest, "test")

	cv, err := model.CrossValidate(uc.Params(), ds.X, ds.Y, uc.cfg.CVFolds, uc.logger)
	if err != nil {
		uc.logger.Warn("Cross-validation failed", zap.Error(err))
	} else {
		res.Metrics.CVAUC = cv.Scores
		res.Metrics.CVMean = cv.Mean
		res.Metrics.CVStd = cv.Std
		uc.metrics.ModelAUC.WithLabelValues("cv").Set(cv.Mean)
	}
	res.Metrics.Importance = clf.Importance()

	uc.logger.Info("Classifier trained",
		zap.Int("train_rows", res.TrainRows),
		zap.Int("test_rows", res.TestRows),
		zap.Float64("train_auc", res.Metrics.TrainAUC),
		zap.Float64("test_auc", res.Metrics.TestAUC),
		zap.Float64("cv_mean", res.Metrics.CVMean),
		zap.Float64("cv_std", res.Metrics.CVStd),
	)
	return res, nil
}

func (uc *TrainingUseCase) auc(clf *model.Classifier, x [][]float64, y []int, set string) float64 {
	if len(x) == 0 {
		uc.logger.Warn("Empty evaluation set", zap.String("set", set))
		return 0
	}
	scores, err := clf.PredictProba(x)
	if err != nil {
		uc.logger.Warn("Prediction failed", zap.String("set", set), zap.Error(err))
		return 0
	}
	auc, err := model.ROCAUC(y, scores)
	if err != nil {
		uc.logger.Warn("ROC AUC undefined", zap.String("set", set), zap.Error(err))
		return 0
	}
	uc.metrics.ModelAUC.WithLabelValues(set).Set(auc)
	return auc
}

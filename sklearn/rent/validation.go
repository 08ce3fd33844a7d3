package rent

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/rent/core/parallel"
	"github.com/YuminosukeSato/rent/metrics"
	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/pkg/log"
	"github.com/YuminosukeSato/rent/sklearn/model_selection"
)

// DefaultAlpha is the significance level of both validation tests.
const DefaultAlpha = 0.05

// ValidationOption configures a validation study.
type ValidationOption func(*validationConfig)

type validationConfig struct {
	alpha  float64
	metric string
}

// WithAlpha sets the significance level.
func WithAlpha(alpha float64) ValidationOption {
	return func(c *validationConfig) { c.alpha = alpha }
}

// WithValidationMetric overrides the metric (mcc, f1, accuracy, ... or r2).
func WithValidationMetric(name string) ValidationOption {
	return func(c *validationConfig) { c.metric = name }
}

// ValidationResult holds the score of the selected-feature model and its two
// null distributions.
type ValidationResult struct {
	Metric string
	Score  float64

	// VS1 scores models on random feature subsets of the same size.
	VS1       []float64
	MeanVS1   float64
	PValueVS1 float64
	RejectVS1 bool

	// VS2 scores the selected-feature model against permuted labels.
	VS2       []float64
	MeanVS2   float64
	PValueVS2 float64
	RejectVS2 bool

	Alpha float64
}

// ValidationStudy compares a feature selection against random subsets and
// permuted labels on held-out data.
type ValidationStudy struct {
	caps    capability
	train   *Dataset
	scale   bool
	workers int
	logger  log.Logger
}

// Run executes both studies. testX must already be in the training feature
// space.
func (v *ValidationStudy) Run(testX *mat.Dense, testY *mat.VecDense, selected []int,
	numDrawings, numPermutations int, opts ...ValidationOption) (*ValidationResult, error) {
	cfg := validationConfig{alpha: DefaultAlpha, metric: v.caps.validationMetric}
	for _, opt := range opts {
		opt(&cfg)
	}
	score, err := v.check(testX, testY, selected, numDrawings, numPermutations, cfg)
	if err != nil {
		return nil, err
	}

	logger := v.logger.With(log.ComponentKey, "sklearn.rent.validation", log.MetricKey, cfg.metric)
	start := time.Now()

	xTrain, xTest, err := standardize(v.train.X, testX, v.scale)
	if err != nil {
		return nil, err
	}

	res := &ValidationResult{Metric: cfg.metric, Alpha: cfg.alpha}
	model, err := v.caps.provider.FitUnpenalized(columns(xTrain, selected), v.train.Y)
	if err != nil {
		return nil, errors.Wrap(err, "validation fit on selected features")
	}
	pred, err := model.Predict(columns(xTest, selected))
	if err != nil {
		return nil, err
	}
	if res.Score, err = score(testY, pred); err != nil {
		return nil, err
	}
	logger.Debug("Selected-feature model evaluated", log.ScoreKey, res.Score, log.SelectedKey, len(selected))

	// VS1: random feature subsets, subset i seeded by i
	nFeatures := v.train.NFeatures()
	res.VS1 = make([]float64, numDrawings)
	err = parallel.Collect(numDrawings, v.workers,
		func(i int) (float64, error) {
			cols := model_selection.NewRand(int64(i), model_selection.VS1Stream).Perm(nFeatures)[:len(selected)]
			m, err := v.caps.provider.FitUnpenalized(columns(xTrain, cols), v.train.Y)
			if err != nil {
				return 0, errors.Wrapf(err, "validation VS1 drawing %d", i)
			}
			p, err := m.Predict(columns(xTest, cols))
			if err != nil {
				return 0, err
			}
			return score(testY, p)
		},
		func(i int, s float64) { res.VS1[i] = s },
	)
	if err != nil {
		return nil, err
	}

	// VS2: the same predictions against permuted labels, permutation i seeded by i
	res.VS2 = make([]float64, numPermutations)
	err = parallel.Collect(numPermutations, v.workers,
		func(i int) (float64, error) {
			perm := model_selection.NewRand(int64(i), model_selection.VS2Stream).Perm(testY.Len())
			permuted := mat.NewVecDense(testY.Len(), nil)
			for j, p := range perm {
				permuted.SetVec(j, testY.AtVec(p))
			}
			return score(permuted, pred)
		},
		func(i int, s float64) { res.VS2[i] = s },
	)
	if err != nil {
		return nil, err
	}

	res.MeanVS1, res.PValueVS1 = tTest(res.Score, res.VS1)
	res.MeanVS2, res.PValueVS2 = tTest(res.Score, res.VS2)
	res.RejectVS1 = res.PValueVS1 <= cfg.alpha
	res.RejectVS2 = res.PValueVS2 <= cfg.alpha

	logger.Info("Validation study completed",
		log.ScoreKey, res.Score,
		"vs1.p_value", res.PValueVS1,
		"vs2.p_value", res.PValueVS2,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// check validates the inputs and resolves the metric.
func (v *ValidationStudy) check(testX *mat.Dense, testY *mat.VecDense, selected []int,
	numDrawings, numPermutations int, cfg validationConfig) (metrics.ScoreFunc, error) {
	if len(selected) == 0 {
		return nil, errors.NewEmptySelectionError("ValidationStudy")
	}
	if numDrawings < 2 {
		return nil, errors.NewConfigurationError("num_drawings", "must be at least 2", numDrawings)
	}
	if numPermutations < 2 {
		return nil, errors.NewConfigurationError("num_permutations", "must be at least 2", numPermutations)
	}
	if !(cfg.alpha > 0 && cfg.alpha < 1) {
		return nil, errors.NewConfigurationError("alpha", "must be in (0, 1)", cfg.alpha)
	}
	if testX == nil || testY == nil {
		return nil, errors.NewValueError("ValidationStudy", "test data and labels are required")
	}
	rows, cols := testX.Dims()
	if cols != v.train.NFeatures() {
		return nil, errors.NewDimensionError("ValidationStudy", v.train.NFeatures(), cols, 1)
	}
	if rows != testY.Len() {
		return nil, errors.NewDimensionError("ValidationStudy", rows, testY.Len(), 0)
	}
	if err := checkFinite("ValidationStudy", testX, testY); err != nil {
		return nil, err
	}
	if v.caps.task == Classification {
		fn, ok := metrics.ClassificationScorer(cfg.metric)
		if !ok {
			return nil, errors.NewConfigurationError("metric", "must be mcc, f1, accuracy, precision or recall", cfg.metric)
		}
		if err := checkLabels("ValidationStudy", testY); err != nil {
			return nil, err
		}
		return fn, nil
	}
	fn, ok := metrics.RegressionScorer(cfg.metric)
	if !ok {
		return nil, errors.NewConfigurationError("metric", "must be r2", cfg.metric)
	}
	return fn, nil
}

// checkLabels accepts 0/1 labels; unlike training data a held-out set may
// contain a single class.
func checkLabels(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if l := y.AtVec(i); l != 0 && l != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}

// tTest compares score against the null distribution: T is
// (mean(null) - score) / (sd(null) / sqrt(n)) with the sample standard
// deviation and p is the Student-t CDF of T with n-1 degrees of freedom.
func tTest(score float64, null []float64) (mean, p float64) {
	n := len(null)
	mean, sd := stat.MeanStdDev(null, nil)
	if sd == 0 {
		// a point-mass null: the test degenerates to a comparison
		switch {
		case mean < score:
			return mean, 0
		case mean > score:
			return mean, 1
		default:
			return mean, math.NaN()
		}
	}
	t := (mean - score) / (sd / math.Sqrt(float64(n)))
	return mean, studentsTCDF(t, n-1)
}

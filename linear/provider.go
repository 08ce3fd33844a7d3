// Package linear exposes the regularized linear models used by the
// feature-selection ensemble behind a small provider contract.
//
// A Provider fits one model per call and keeps no state between calls,
// so a single Provider is shared by every worker of the ensemble.
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/sklearn/linear_model"
)

// Model is a fitted linear model.
type Model interface {
	// Coef returns one coefficient per input column.
	Coef() []float64
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// ProbabilisticModel is a fitted binary classifier.
type ProbabilisticModel interface {
	Model
	// PredictProba returns the probability of class 1 for each row.
	PredictProba(X mat.Matrix) (*mat.VecDense, error)
}

// Provider fits regularized and unpenalized linear models.
type Provider interface {
	// Fit fits an elastic-net model with inverse strength C and mixing
	// ratio l1Ratio.
	Fit(X mat.Matrix, y *mat.VecDense, C, l1Ratio float64) (Model, error)
	// FitUnpenalized fits the same model family without a penalty.
	FitUnpenalized(X mat.Matrix, y *mat.VecDense) (Model, error)
}

// ClassificationProvider fits elastic-net logistic regression on 0/1 labels.
type ClassificationProvider struct {
	cfg config
}

var _ Provider = (*ClassificationProvider)(nil)

// NewClassificationProvider creates a logistic-regression provider.
// Defaults: 5000 iterations for penalized fits, 8000 for unpenalized refits.
func NewClassificationProvider(opts ...Option) *ClassificationProvider {
	cfg := defaultConfig(5000, 8000)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ClassificationProvider{cfg: cfg}
}

// Fit implements Provider.
func (p *ClassificationProvider) Fit(X mat.Matrix, y *mat.VecDense, C, l1Ratio float64) (Model, error) {
	if err := checkParams(C, l1Ratio); err != nil {
		return nil, err
	}
	lr := linear_model.NewLogisticRegression(
		linear_model.WithLRPenalty("elasticnet"),
		linear_model.WithLRC(C),
		linear_model.WithLRL1Ratio(l1Ratio),
		linear_model.WithLRMaxIter(p.cfg.maxIter),
		linear_model.WithLRTol(p.cfg.tol),
	)
	err := errors.SafeExecute("LogisticRegression.Fit", func() error {
		return lr.Fit(X, y)
	})
	if err != nil {
		return nil, err
	}
	return lr, nil
}

// FitUnpenalized implements Provider.
func (p *ClassificationProvider) FitUnpenalized(X mat.Matrix, y *mat.VecDense) (Model, error) {
	lr := linear_model.NewLogisticRegression(
		linear_model.WithLRPenalty("none"),
		linear_model.WithLRMaxIter(p.cfg.unpenalizedIter),
		linear_model.WithLRTol(p.cfg.tol),
	)
	err := errors.SafeExecute("LogisticRegression.Fit", func() error {
		return lr.Fit(X, y)
	})
	if err != nil {
		return nil, err
	}
	return lr, nil
}

// RegressionProvider fits ElasticNet with alpha = 1/C and refits with
// ordinary least squares.
type RegressionProvider struct {
	cfg config
}

var _ Provider = (*RegressionProvider)(nil)

// NewRegressionProvider creates an elastic-net regression provider.
func NewRegressionProvider(opts ...Option) *RegressionProvider {
	cfg := defaultConfig(1000, 0)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RegressionProvider{cfg: cfg}
}

// Fit implements Provider.
func (p *RegressionProvider) Fit(X mat.Matrix, y *mat.VecDense, C, l1Ratio float64) (Model, error) {
	if err := checkParams(C, l1Ratio); err != nil {
		return nil, err
	}
	en := linear_model.NewElasticNet(
		linear_model.WithENAlpha(1/C),
		linear_model.WithENL1Ratio(l1Ratio),
		linear_model.WithENMaxIter(p.cfg.maxIter),
		linear_model.WithENTol(p.cfg.tol),
	)
	err := errors.SafeExecute("ElasticNet.Fit", func() error {
		return en.Fit(X, y)
	})
	if err != nil {
		return nil, err
	}
	return en, nil
}

// FitUnpenalized implements Provider.
func (p *RegressionProvider) FitUnpenalized(X mat.Matrix, y *mat.VecDense) (Model, error) {
	lr := linear_model.NewLinearRegression()
	err := errors.SafeExecute("LinearRegression.Fit", func() error {
		return lr.Fit(X, y)
	})
	if err != nil {
		return nil, err
	}
	return lr, nil
}

func checkParams(C, l1Ratio float64) error {
	if !(C > 0) {
		return errors.NewValueError("Provider.Fit", fmt.Sprintf("C must be positive, got %g", C))
	}
	if l1Ratio < 0 || l1Ratio > 1 {
		return errors.NewValueError("Provider.Fit", fmt.Sprintf("l1_ratio must be in [0, 1], got %g", l1Ratio))
	}
	return nil
}

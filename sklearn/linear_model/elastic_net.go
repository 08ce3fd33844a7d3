package linear_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/core/model"
	"github.com/YuminosukeSato/rent/pkg/errors"
)

// ElasticNet is linear regression with combined L1 and L2 penalties:
//
//	1/(2n) * ||y - Xw - b||^2 + alpha*l1Ratio*|w|_1 + alpha*(1-l1Ratio)/2*|w|^2
//
// solved by cyclic coordinate descent. The intercept is obtained by
// centering X and y and is not penalized.
type ElasticNet struct {
	state *model.StateManager

	alpha        float64
	l1Ratio      float64
	fitIntercept bool
	maxIter      int
	tol          float64

	coef_      []float64
	intercept_ float64
	nIter_     int
}

var (
	_ model.Regressor       = (*ElasticNet)(nil)
	_ model.ParameterGetter = (*ElasticNet)(nil)
)

// ElasticNetOption は設定オプション
type ElasticNetOption func(*ElasticNet)

// NewElasticNet creates an ElasticNet with alpha=1, l1_ratio=0.5.
func NewElasticNet(opts ...ElasticNetOption) *ElasticNet {
	en := &ElasticNet{
		state:        model.NewStateManager(),
		alpha:        1.0,
		l1Ratio:      0.5,
		fitIntercept: true,
		maxIter:      1000,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(en)
	}
	return en
}

// WithENAlpha sets the overall penalty strength.
func WithENAlpha(alpha float64) ElasticNetOption {
	return func(en *ElasticNet) { en.alpha = alpha }
}

// WithENL1Ratio sets the elastic-net mixing ratio.
func WithENL1Ratio(ratio float64) ElasticNetOption {
	return func(en *ElasticNet) { en.l1Ratio = ratio }
}

// WithENFitIntercept は切片の学習有無を設定
func WithENFitIntercept(fit bool) ElasticNetOption {
	return func(en *ElasticNet) { en.fitIntercept = fit }
}

// WithENMaxIter sets the maximum number of coordinate sweeps.
func WithENMaxIter(maxIter int) ElasticNetOption {
	return func(en *ElasticNet) { en.maxIter = maxIter }
}

// WithENTol sets the relative tolerance on the largest coefficient update.
func WithENTol(tol float64) ElasticNetOption {
	return func(en *ElasticNet) { en.tol = tol }
}

// Fit はモデルを訓練データで学習
func (en *ElasticNet) Fit(X mat.Matrix, y *mat.VecDense) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("ElasticNet.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("ElasticNet.Fit", nSamples, y.Len(), 0)
	}
	if en.alpha < 0 {
		return errors.NewValueError("ElasticNet.Fit", fmt.Sprintf("alpha must be non-negative, got %g", en.alpha))
	}
	if en.l1Ratio < 0 || en.l1Ratio > 1 {
		return errors.NewValueError("ElasticNet.Fit", fmt.Sprintf("l1_ratio must be in [0, 1], got %g", en.l1Ratio))
	}

	xc, yc, xMean, yMean := center(X, y, en.fitIntercept)
	n := float64(nSamples)
	l1 := en.alpha * en.l1Ratio * n
	l2 := en.alpha * (1 - en.l1Ratio) * n
	norms := columnNormsSq(xc)

	w := make([]float64, nFeatures)
	// 残差 r = y - Xw (w = 0 から開始)
	residual := mat.Col(nil, 0, yc)
	col := make([]float64, nSamples)

	converged := false
	iter := 0
	for iter = 1; iter <= en.maxIter; iter++ {
		maxChange, maxWeight := 0.0, 0.0
		for j := 0; j < nFeatures; j++ {
			if norms[j] == 0 {
				continue
			}
			mat.Col(col, j, xc)
			old := w[j]
			rho := floats.Dot(col, residual) + norms[j]*old
			w[j] = softThreshold(rho, l1) / (norms[j] + l2)
			if delta := w[j] - old; delta != 0 {
				floats.AddScaled(residual, -delta, col)
				maxChange = math.Max(maxChange, math.Abs(delta))
			}
			maxWeight = math.Max(maxWeight, math.Abs(w[j]))
		}
		if err := errors.CheckNumericalStability("ElasticNet.Fit", w, iter); err != nil {
			return err
		}
		if maxWeight == 0 || maxChange/maxWeight < en.tol {
			converged = true
			break
		}
	}
	if !converged {
		iter = en.maxIter
		errors.Warn(errors.NewConvergenceWarning("ElasticNet", en.maxIter,
			fmt.Sprintf("alpha=%g, l1_ratio=%g", en.alpha, en.l1Ratio)))
	}

	en.coef_ = w
	en.intercept_ = yMean - floats.Dot(xMean, w)
	en.nIter_ = iter
	en.state.SetFitted(nFeatures, nSamples)
	return nil
}

// Predict は入力データに対する予測を行う
func (en *ElasticNet) Predict(X mat.Matrix) (*mat.VecDense, error) {
	return predictLinear(en.state, "ElasticNet", X, en.coef_, en.intercept_)
}

// Coef returns a copy of the fitted coefficients.
func (en *ElasticNet) Coef() []float64 {
	return append([]float64(nil), en.coef_...)
}

// Intercept returns the fitted intercept.
func (en *ElasticNet) Intercept() float64 {
	return en.intercept_
}

// NIter returns the number of sweeps run by the last Fit.
func (en *ElasticNet) NIter() int {
	return en.nIter_
}

// GetParams returns the hyperparameters
func (en *ElasticNet) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         en.alpha,
		"l1_ratio":      en.l1Ratio,
		"fit_intercept": en.fitIntercept,
		"max_iter":      en.maxIter,
		"tol":           en.tol,
	}
}

package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/rent/core/model"
	"github.com/YuminosukeSato/rent/pkg/errors"
)

// machine epsilon for float64
const epsilon = 2.220446049250313e-16

// LinearRegression is ordinary least squares. It solves the centered
// problem with an SVD and returns the minimum-norm solution, so
// rank-deficient designs (more columns than samples, duplicated columns)
// still fit.
type LinearRegression struct {
	state *model.StateManager // State management (composition instead of embedding)

	fitIntercept bool

	coef_      []float64
	intercept_ float64
	rank_      int
}

var _ model.Regressor = (*LinearRegression)(nil)

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// WithLRFitIntercept は切片の学習有無を設定（LinearRegression用）
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// center returns X and y with column means removed (when fitIntercept)
// together with those means.
func center(X mat.Matrix, y *mat.VecDense, fitIntercept bool) (*mat.Dense, *mat.VecDense, []float64, float64) {
	rows, cols := X.Dims()
	xc := mat.DenseCopyOf(X)
	yc := mat.VecDenseCopyOf(y)
	xMean := make([]float64, cols)
	var yMean float64
	if !fitIntercept {
		return xc, yc, xMean, 0
	}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, xc)
		xMean[j] = stat.Mean(col, nil)
	}
	yMean = stat.Mean(mat.Col(nil, 0, yc), nil)
	xc.Apply(func(i, j int, v float64) float64 { return v - xMean[j] }, xc)
	for i := 0; i < rows; i++ {
		yc.SetVec(i, yc.AtVec(i)-yMean)
	}
	return xc, yc, xMean, yMean
}

// Fit はモデルを訓練データで学習
func (lr *LinearRegression) Fit(X mat.Matrix, y *mat.VecDense) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != rows {
		return errors.NewDimensionError("LinearRegression.Fit", rows, y.Len(), 0)
	}

	xc, yc, xMean, yMean := center(X, y, lr.fitIntercept)

	coef := mat.NewVecDense(cols, nil)
	var svd mat.SVD
	if !svd.Factorize(xc, mat.SVDThin) {
		return errors.NewModelError("LinearRegression.Fit", "svd failed", errors.ErrSingularMatrix)
	}
	values := svd.Values(nil)
	lr.rank_ = 0
	if len(values) > 0 && values[0] > 0 {
		rcond := float64(max(rows, cols)) * epsilon
		lr.rank_ = svd.Rank(rcond)
	}
	if lr.rank_ > 0 {
		svd.SolveVecTo(coef, yc, lr.rank_)
	}

	lr.coef_ = mat.Col(nil, 0, coef)
	lr.intercept_ = yMean
	for j, m := range xMean {
		lr.intercept_ -= m * lr.coef_[j]
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", lr.coef_, 0); err != nil {
		return err
	}

	lr.state.SetFitted(cols, rows)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	return predictLinear(lr.state, "LinearRegression", X, lr.coef_, lr.intercept_)
}

func predictLinear(state *model.StateManager, name string, X mat.Matrix, coef []float64, intercept float64) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if err := state.RequireFeatures(name, "Predict", cols); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(rows, nil)
	out.MulVec(X, mat.NewVecDense(cols, coef))
	for i := 0; i < rows; i++ {
		out.SetVec(i, out.AtVec(i)+intercept)
	}
	return out, nil
}

// Coef は学習された重み係数を返す
func (lr *LinearRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept_
}

// Rank は中心化した計画行列の有効ランクを返す
func (lr *LinearRegression) Rank() int {
	return lr.rank_
}

// String はモデルの文字列表現を返す
func (lr *LinearRegression) String() string {
	if !lr.state.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.fitIntercept)
	}
	nFeatures, _ := lr.state.GetDimensions()
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, rank=%d)",
		lr.fitIntercept, nFeatures, lr.rank_)
}

package linear_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/core/model"
	"github.com/YuminosukeSato/rent/pkg/errors"
)

// LogisticRegression implements binary logistic regression with an
// elastic-net penalty. It minimizes the scikit-learn objective
//
//	C * sum_i logloss_i + l1Ratio*|w|_1 + (1-l1Ratio)/2*|w|^2
//
// with accelerated proximal gradient descent (FISTA with adaptive restart).
// The intercept is never penalized. Coefficients that the L1 proximal step
// sets to zero are exactly zero.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "elasticnet", "l1", "l2", "none"
	C            float64 // Inverse regularization strength (1/alpha)
	l1Ratio      float64 // L1 ratio for elastic net
	fitIntercept bool    // Whether to fit intercept
	maxIter      int     // Maximum iterations
	tol          float64 // Tolerance for stopping

	// Model parameters
	coef_      []float64
	intercept_ float64
	nIter_     int
	loss_      float64
}

var (
	_ model.Classifier      = (*LogisticRegression)(nil)
	_ model.ParameterGetter = (*LogisticRegression)(nil)
)

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		l1Ratio:      0.5,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLRL1Ratio sets the elastic-net mixing ratio
func WithLRL1Ratio(ratio float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.l1Ratio = ratio
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// penalties returns the L1 and L2 strengths of the objective divided by C*n.
func (lr *LogisticRegression) penalties(n int) (l1, l2 float64, err error) {
	scale := 1 / (lr.C * float64(n))
	switch lr.penalty {
	case "none":
		return 0, 0, nil
	case "l2":
		return 0, scale, nil
	case "l1":
		return scale, 0, nil
	case "elasticnet":
		if lr.l1Ratio < 0 || lr.l1Ratio > 1 {
			return 0, 0, errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("l1_ratio must be in [0, 1], got %g", lr.l1Ratio))
		}
		return lr.l1Ratio * scale, (1 - lr.l1Ratio) * scale, nil
	default:
		return 0, 0, errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("unknown penalty %q", lr.penalty))
	}
}

// Fit trains the model. y must hold 0/1 labels with both classes present.
func (lr *LogisticRegression) Fit(X mat.Matrix, y *mat.VecDense) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, y.Len(), 0)
	}
	if lr.penalty != "none" && lr.C <= 0 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("C must be positive, got %g", lr.C))
	}
	var positives int
	for i := 0; i < nSamples; i++ {
		switch y.AtVec(i) {
		case 1:
			positives++
		case 0:
		default:
			return errors.NewValueError("LogisticRegression.Fit", "labels must be 0 or 1")
		}
	}
	if positives == 0 || positives == nSamples {
		return errors.NewValueError("LogisticRegression.Fit", "training data contains a single class")
	}

	lambda1, lambda2, err := lr.penalties(nSamples)
	if err != nil {
		return err
	}

	// Design matrix with a trailing column of ones for the intercept.
	cols := nFeatures
	if lr.fitIntercept {
		cols++
	}
	design := mat.NewDense(nSamples, cols, nil)
	design.Slice(0, nSamples, 0, nFeatures).(*mat.Dense).Copy(X)
	if lr.fitIntercept {
		for i := 0; i < nSamples; i++ {
			design.Set(i, nFeatures, 1)
		}
	}

	lipschitz := 0.25*spectralNormSq(design)/float64(nSamples) + lambda2
	if lipschitz == 0 {
		lipschitz = 1
	}
	step := 1 / lipschitz

	target := mat.Col(nil, 0, y)

	w := make([]float64, cols)
	wPrev := make([]float64, cols)
	momentum := make([]float64, cols)
	grad := make([]float64, cols)
	z := mat.NewVecDense(nSamples, nil)
	resid := mat.NewVecDense(nSamples, nil)
	gradVec := mat.NewVecDense(cols, grad)
	momVec := mat.NewVecDense(cols, momentum)

	t := 1.0
	converged := false
	iter := 0
	for iter = 1; iter <= lr.maxIter; iter++ {
		// Gradient of the smooth part at the momentum point.
		z.MulVec(design, momVec)
		for i := 0; i < nSamples; i++ {
			resid.SetVec(i, (errors.Sigmoid(z.AtVec(i))-target[i])/float64(nSamples))
		}
		gradVec.MulVec(design.T(), resid)
		for j := 0; j < nFeatures; j++ {
			grad[j] += lambda2 * momentum[j]
		}

		copy(wPrev, w)
		for j := range w {
			w[j] = momentum[j] - step*grad[j]
		}
		for j := 0; j < nFeatures; j++ {
			w[j] = softThreshold(w[j], step*lambda1)
		}

		if err := errors.CheckNumericalStability("LogisticRegression.Fit", w, iter); err != nil {
			return err
		}

		// Adaptive restart when the momentum direction opposes the step.
		var restart float64
		for j := range w {
			restart += (momentum[j] - w[j]) * (w[j] - wPrev[j])
		}
		if restart > 0 {
			t = 1
		}
		tNext := (1 + math.Sqrt(1+4*t*t)) / 2
		beta := (t - 1) / tNext
		for j := range w {
			momentum[j] = w[j] + beta*(w[j]-wPrev[j])
		}
		t = tNext

		maxChange, maxWeight := 0.0, 0.0
		for j := range w {
			maxChange = math.Max(maxChange, math.Abs(w[j]-wPrev[j]))
			maxWeight = math.Max(maxWeight, math.Abs(w[j]))
		}
		if maxChange <= lr.tol*math.Max(maxWeight, 1) {
			converged = true
			break
		}
	}
	if !converged {
		iter = lr.maxIter
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter,
			fmt.Sprintf("penalty=%s, C=%g, l1_ratio=%g", lr.penalty, lr.C, lr.l1Ratio)))
	}

	// 最終的な目的関数値 (C*n で割ったスケール)
	z.MulVec(design, mat.NewVecDense(cols, w))
	var loss float64
	for i := 0; i < nSamples; i++ {
		loss += errors.Log1pExp(z.AtVec(i)) - target[i]*z.AtVec(i)
	}
	loss /= float64(nSamples)
	for j := 0; j < nFeatures; j++ {
		loss += lambda1*math.Abs(w[j]) + lambda2/2*w[j]*w[j]
	}
	if err := errors.CheckScalar("LogisticRegression.Fit loss", loss, iter); err != nil {
		return err
	}

	lr.coef_ = append([]float64(nil), w[:nFeatures]...)
	lr.intercept_ = 0
	if lr.fitIntercept {
		lr.intercept_ = w[nFeatures]
		if err := errors.CheckScalar("LogisticRegression.Fit intercept", lr.intercept_, iter); err != nil {
			return err
		}
	}
	lr.nIter_ = iter
	lr.loss_ = loss
	lr.state.SetFitted(nFeatures, nSamples)
	return nil
}

// DecisionFunction returns X·w + b.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	r, c := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression", "DecisionFunction", c); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(r, nil)
	out.MulVec(X, mat.NewVecDense(c, lr.coef_))
	for i := 0; i < r; i++ {
		out.SetVec(i, out.AtVec(i)+lr.intercept_)
	}
	return out, nil
}

// PredictProba returns the probability of class 1 for each row.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i := 0; i < scores.Len(); i++ {
		scores.SetVec(i, errors.Sigmoid(scores.AtVec(i)))
	}
	return scores, nil
}

// Predict returns 0/1 labels. A decision value of exactly 0 predicts class 0.
func (lr *LogisticRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i := 0; i < scores.Len(); i++ {
		label := 0.0
		if scores.AtVec(i) > 0 {
			label = 1
		}
		scores.SetVec(i, label)
	}
	return scores, nil
}

// Coef returns a copy of the fitted coefficients.
func (lr *LogisticRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the fitted intercept.
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept_
}

// NIter returns the number of iterations run by the last Fit.
func (lr *LogisticRegression) NIter() int {
	return lr.nIter_
}

// Loss returns the penalized objective at the fitted weights, divided by
// C times the number of samples.
func (lr *LogisticRegression) Loss() float64 {
	return lr.loss_
}

// GetParams returns the hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"l1_ratio":      lr.l1Ratio,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

// spectralNormSq returns the squared largest singular value of a,
// falling back to the squared Frobenius norm if the SVD fails.
func spectralNormSq(a mat.Matrix) float64 {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); ok {
		values := svd.Values(nil)
		if len(values) > 0 {
			return values[0] * values[0]
		}
	}
	f := mat.Norm(a, 2)
	return f * f
}

// columnNormsSq returns the squared L2 norm of every column of a.
func columnNormsSq(a mat.Matrix) []float64 {
	r, c := a.Dims()
	out := make([]float64, c)
	col := make([]float64, r)
	for j := range out {
		mat.Col(col, j, a)
		out[j] = floats.Dot(col, col)
	}
	return out
}

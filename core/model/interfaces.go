// Package model provides the estimator interfaces and fitted-state
// bookkeeping shared by the linear models and preprocessing transformers.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Regressor combines interfaces for regression models.
type Regressor interface {
	Fitter
	Predictor
	LinearModel
}

// Classifier combines interfaces for binary classification models.
type Classifier interface {
	Fitter
	Predictor
	LinearModel

	// PredictProba returns the probability of the positive class for each row.
	PredictProba(X mat.Matrix) (*mat.VecDense, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

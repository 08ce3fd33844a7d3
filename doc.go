// Package rent is a Go library for repeated elastic-net feature selection
// on tabular data.
//
// An ensemble of elastic-net regularized linear models is trained over
// randomized train/test splits and a grid of (C, l1_ratio) settings.
// Features are kept when their weights are frequently non-zero, agree in
// sign and are significantly different from zero across the ensemble.
//
// # Installation
//
//	go get github.com/YuminosukeSato/rent
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/rent/sklearn/rent"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    var X *mat.Dense    // I×N features
//	    var y *mat.VecDense // 0/1 labels
//
//	    r, err := rent.NewClassification(X, y, rent.WithK(100), rent.WithRandomState(0))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := r.Train(); err != nil {
//	        log.Fatal(err)
//	    }
//	    selected, err := r.SelectFeatures(0.9, 0.9, 0.975)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Selected:", selected)
//	}
//
// # Packages
//
//   - sklearn/rent: the RENT ensemble, selection criteria and validation study
//   - sklearn/linear_model: LogisticRegression (elastic net), ElasticNet, LinearRegression
//   - sklearn/model_selection: seeded random splits and k-fold cross-validation
//   - linear: the linear model provider consumed by the ensemble
//   - metrics: accuracy, precision, recall, F1, MCC, R², MSE, MAE
//   - preprocessing: StandardScaler, MinMaxScaler, PolynomialFeatures
//   - core/model: estimator interfaces, fitted state and gob persistence
//   - core/parallel: bounded worker pool
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Performance
//
// Ensemble fits run on a bounded pool, one worker per CPU by default
// (see rent.WithWorkers). Results are identical for any worker count.
//
// # License
//
// Released under the MIT License.
package rent

package rent

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/core/parallel"
	"github.com/YuminosukeSato/rent/linear"
	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/pkg/log"
	"github.com/YuminosukeSato/rent/sklearn/model_selection"
)

// ensembleResult is the owned output of one (C, l1_ratio, split) fit.
type ensembleResult struct {
	key         Key
	weights     []float64
	score       float64
	predictions PredictionRecord
}

// EnsembleTrainer fits one model per grid cell and split.
type EnsembleTrainer struct {
	caps    capability
	data    *Dataset
	scale   bool
	workers int
	logger  log.Logger
}

// Train runs every fit and returns the merged records. Splits must have
// been materialized by the caller so that every cell of split k sees the
// same partition. The first failing task (in task order) aborts the run.
func (t *EnsembleTrainer) Train(grid Grid, splits []model_selection.Split) (*Records, error) {
	nTasks := grid.Size() * len(splits)
	logger := t.logger.With(log.ComponentKey, "sklearn.rent.ensemble")
	logger.Info("Ensemble training started",
		log.GridSizeKey, grid.Size(),
		log.EnsembleSizeKey, len(splits),
		log.SamplesKey, t.data.NSamples(),
		log.FeaturesKey, t.data.NFeatures(),
		log.WorkersKey, parallel.Workers(t.workers),
	)
	start := time.Now()

	records := newRecords(nTasks)
	err := parallel.Collect(nTasks, t.workers,
		func(i int) (ensembleResult, error) {
			// task i -> split i % K, cell i / K
			cell, s := i/len(splits), i%len(splits)
			p := grid.Cell(cell/len(grid.C), cell%len(grid.C))
			key := Key{C: p.C, L1Ratio: p.L1Ratio, Split: s}
			res, err := t.fitOne(key, splits[s])
			if err != nil {
				logger.Error("Ensemble task failed", err,
					log.CKey, key.C, log.L1RatioKey, key.L1Ratio, log.SplitKey, key.Split)
			}
			return res, err
		},
		func(_ int, res ensembleResult) {
			records.weights[res.key] = res.weights
			records.scores[res.key] = res.score
			records.predictions[res.key] = res.predictions
		},
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Ensemble training completed",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		"models", records.Len(),
	)
	return records, nil
}

func (t *EnsembleTrainer) fitOne(key Key, split model_selection.Split) (ensembleResult, error) {
	xTrain, yTrain := subset(t.data.X, t.data.Y, split.Train)
	xTest, yTest := subset(t.data.X, t.data.Y, split.Test)
	xTrain, xTest, err := standardize(xTrain, xTest, t.scale)
	if err != nil {
		return ensembleResult{}, err
	}

	m, err := t.caps.provider.Fit(xTrain, yTrain, key.C, key.L1Ratio)
	if err != nil {
		return ensembleResult{}, errors.Wrapf(err, "fit C=%g l1_ratio=%g split=%d", key.C, key.L1Ratio, key.Split)
	}
	pred, err := m.Predict(xTest)
	if err != nil {
		return ensembleResult{}, err
	}
	score, err := t.caps.score(yTest, pred)
	if err != nil {
		return ensembleResult{}, err
	}

	var proba *mat.VecDense
	if t.caps.task == Classification {
		if pm, ok := m.(linear.ProbabilisticModel); ok {
			if proba, err = pm.PredictProba(xTest); err != nil {
				return ensembleResult{}, err
			}
		}
	}

	preds := make(PredictionRecord, len(split.Test))
	for i, row := range split.Test {
		p := Prediction{True: yTest.AtVec(i), Pred: pred.AtVec(i), Proba: math.NaN(), AbsError: math.NaN()}
		if t.caps.task == Regression {
			p.AbsError = math.Abs(p.True - p.Pred)
		} else if proba != nil {
			p.Proba = proba.AtVec(i)
		}
		preds[t.data.SampleIDs[row]] = p
	}

	return ensembleResult{key: key, weights: m.Coef(), score: score, predictions: preds}, nil
}

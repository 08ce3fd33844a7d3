package rent

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/core/parallel"
	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/pkg/log"
	"github.com/YuminosukeSato/rent/sklearn/model_selection"
)

// HyperparameterSelector picks one (C, l1_ratio) by cross-validation.
// A fold is scored by refitting an unpenalized model on the features the
// regularized model kept, so the tables rate the sparsity pattern rather
// than the regularized fit itself.
type HyperparameterSelector struct {
	caps    capability
	data    *Dataset
	scale   bool
	nSplits int
	seed    int64
	workers int
	logger  log.Logger
}

// parselRow is the result of one l1_ratio task: one entry per C.
type parselRow struct {
	scores []float64
	zeroes []float64
}

// Select runs the cross-validation and returns the chosen combination with
// the tables it was chosen from.
func (h *HyperparameterSelector) Select(grid Grid) (ParamKey, *TradeoffTables, error) {
	logger := h.logger.With(log.ComponentKey, "sklearn.rent.parsel")
	start := time.Now()

	var splitter model_selection.FoldSplitter = model_selection.NewKFold(h.nSplits, true, h.seed)
	if h.caps.stratify {
		splitter = model_selection.NewStratifiedKFold(h.nSplits, true, h.seed)
	}
	folds, err := splitter.Split(h.data.Y)
	if err != nil {
		return ParamKey{}, nil, err
	}
	logger.Info("Hyperparameter pre-selection started",
		log.GridSizeKey, grid.Size(), log.FoldsKey, len(folds))

	rows, cols := len(grid.L1Ratios), len(grid.C)
	scores := mat.NewDense(rows, cols, nil)
	zeroes := mat.NewDense(rows, cols, nil)
	err = parallel.Collect(rows, h.workers,
		func(i int) (parselRow, error) {
			return h.runRow(grid.L1Ratios[i], grid.C, folds)
		},
		func(i int, r parselRow) {
			scores.SetRow(i, r.scores)
			zeroes.SetRow(i, r.zeroes)
		},
	)
	if err != nil {
		return ParamKey{}, nil, err
	}

	tables := &TradeoffTables{
		L1Ratios: append([]float64(nil), grid.L1Ratios...),
		C:        append([]float64(nil), grid.C...),
		Scores:   scores,
		Zeroes:   zeroes,
	}
	if allFiniteEqual(scores) {
		// rank collapse: the score axis cannot discriminate, use sparsity alone
		logger.Debug("Scores are identical across the grid, maximizing zero fraction")
		tables.Combination, err = minMaxTable(zeroes)
	} else {
		tables.Combination, err = combine(scores, zeroes, true)
	}
	if err != nil {
		return ParamKey{}, nil, err
	}

	best, err := tables.Best()
	if err != nil {
		return ParamKey{}, nil, err
	}
	logger.Info("Hyperparameter pre-selection completed",
		log.CKey, best.C, log.L1RatioKey, best.L1Ratio,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return best, tables, nil
}

// runRow evaluates every C for one l1_ratio.
func (h *HyperparameterSelector) runRow(l1 float64, cs []float64, folds []model_selection.Split) (parselRow, error) {
	row := parselRow{scores: make([]float64, len(cs)), zeroes: make([]float64, len(cs))}
	foldScores := make([]float64, len(folds))
	foldZeroes := make([]float64, len(folds))
	for j, c := range cs {
		for f, fold := range folds {
			s, z, err := h.runFold(c, l1, fold)
			if err != nil {
				return parselRow{}, err
			}
			foldScores[f], foldZeroes[f] = s, z
		}
		row.scores[j] = nanMean(foldScores)
		row.zeroes[j] = nanMean(foldZeroes)
		if math.IsNaN(row.scores[j]) {
			errors.Warn(errors.NewDegenerateFitWarning("cross-validation", c, l1, -1))
		}
	}
	return row, nil
}

// runFold returns the refit score and zero fraction of one fold, or
// NaN/NaN when the regularized fit dropped every feature.
func (h *HyperparameterSelector) runFold(c, l1 float64, fold model_selection.Split) (float64, float64, error) {
	xTrain, yTrain := subset(h.data.X, h.data.Y, fold.Train)
	xTest, yTest := subset(h.data.X, h.data.Y, fold.Test)
	xTrain, xTest, err := standardize(xTrain, xTest, h.scale)
	if err != nil {
		return 0, 0, err
	}

	m, err := h.caps.provider.Fit(xTrain, yTrain, c, l1)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "cross-validation fit C=%g l1_ratio=%g fold=%d", c, l1, fold.Index)
	}
	kept := nonZero(m.Coef())
	if len(kept) == 0 {
		return math.NaN(), math.NaN(), nil
	}
	n := h.data.NFeatures()
	zero := float64(n-len(kept)) / float64(n)

	refit, err := h.caps.provider.FitUnpenalized(columns(xTrain, kept), yTrain)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "cross-validation refit fold=%d", fold.Index)
	}
	pred, err := refit.Predict(columns(xTest, kept))
	if err != nil {
		return 0, 0, err
	}
	score, err := h.caps.cvScore(yTest, pred)
	if err != nil {
		return 0, 0, err
	}
	return score, zero, nil
}

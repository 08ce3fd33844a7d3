package rent

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/pkg/errors"
)

// ObjectSummary describes how one sample fared in the splits where it was
// held out, under the chosen combination.
//
// Classification fills Class, Incorrect and PctIncorrect; regression fills
// MeanAbsError. Fields of the other task are NaN (or 0 for Incorrect).
// PctIncorrect and MeanAbsError are NaN when the sample was never tested.
type ObjectSummary struct {
	SampleID     string
	Tested       int
	Class        float64
	Incorrect    int
	PctIncorrect float64
	MeanAbsError float64
}

// SummaryObjects returns one row per sample in input order.
func (r *RENT) SummaryObjects() ([]ObjectSummary, error) {
	if err := r.requireTrained("SummaryObjects"); err != nil {
		return nil, err
	}
	index := make(map[string]int, len(r.data.SampleIDs))
	out := make([]ObjectSummary, len(r.data.SampleIDs))
	absSum := make([]float64, len(out))
	for i, id := range r.data.SampleIDs {
		index[id] = i
		out[i] = ObjectSummary{SampleID: id, Class: math.NaN(), PctIncorrect: math.NaN(), MeanAbsError: math.NaN()}
		if r.task == Classification {
			out[i].Class = r.data.Y.AtVec(i)
		}
	}

	for s := 0; s < r.cfg.K; s++ {
		for id, p := range r.records.predictions[Key{C: r.best.C, L1Ratio: r.best.L1Ratio, Split: s}] {
			i := index[id]
			out[i].Tested++
			if r.task == Classification {
				if p.True != p.Pred {
					out[i].Incorrect++
				}
			} else {
				absSum[i] += p.AbsError
			}
		}
	}

	for i := range out {
		if out[i].Tested == 0 {
			continue
		}
		n := float64(out[i].Tested)
		if r.task == Classification {
			out[i].PctIncorrect = float64(out[i].Incorrect) / n * 100
		} else {
			out[i].MeanAbsError = absSum[i] / n
		}
	}
	return out, nil
}

// ObjectProbabilities returns, per sample and split, the predicted class-1
// probability when the sample was held out (NaN otherwise).
func (r *RENT) ObjectProbabilities() (*ObjectMatrix, error) {
	if err := r.requireTrained("ObjectProbabilities"); err != nil {
		return nil, err
	}
	if r.task != Classification {
		return nil, errors.NewUnsupportedClassifierError(r.cfg.Classifier, "object probabilities")
	}
	return newObjectMatrix(r.data.SampleIDs, r.cfg.K, r.records, r.best,
		func(p Prediction) float64 { return p.Proba }), nil
}

// ObjectErrors returns, per sample and split, the absolute prediction error
// when the sample was held out (NaN otherwise).
func (r *RENT) ObjectErrors() (*ObjectMatrix, error) {
	if err := r.requireTrained("ObjectErrors"); err != nil {
		return nil, err
	}
	if r.task != Regression {
		return nil, errors.NewUnsupportedClassifierError(r.cfg.Classifier, "object errors")
	}
	return newObjectMatrix(r.data.SampleIDs, r.cfg.K, r.records, r.best,
		func(p Prediction) float64 { return p.AbsError }), nil
}

// WeightDistributions returns the K×N weight matrix of the chosen
// combination. With binary, non-zero weights become 1.
func (r *RENT) WeightDistributions(binary bool) (*mat.Dense, error) {
	if err := r.requireTrained("WeightDistributions"); err != nil {
		return nil, err
	}
	w := r.records.weightMatrix(r.best, r.cfg.K, r.data.NFeatures())
	if binary {
		w.Apply(func(_, _ int, v float64) float64 {
			if v != 0 {
				return 1
			}
			return 0
		}, w)
	}
	return w, nil
}

// ScoresList returns the K held-out scores of the chosen combination.
func (r *RENT) ScoresList() ([]float64, error) {
	if err := r.requireTrained("ScoresList"); err != nil {
		return nil, err
	}
	return r.records.scoreList(r.best, r.cfg.K), nil
}

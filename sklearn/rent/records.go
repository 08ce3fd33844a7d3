package rent

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Grid is the set of (C, l1_ratio) pairs swept by the ensemble. Tables
// built from a grid have one row per l1_ratio and one column per C.
type Grid struct {
	C        []float64
	L1Ratios []float64
}

// Size returns the number of cells.
func (g Grid) Size() int { return len(g.C) * len(g.L1Ratios) }

// Cell returns the hyperparameters of table cell (row, col).
func (g Grid) Cell(row, col int) ParamKey {
	return ParamKey{C: g.C[col], L1Ratio: g.L1Ratios[row]}
}

// Contains reports whether p is a cell of the grid.
func (g Grid) Contains(p ParamKey) bool {
	return indexOf(g.C, p.C) >= 0 && indexOf(g.L1Ratios, p.L1Ratio) >= 0
}

func indexOf(values []float64, v float64) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return -1
}

// ParamKey identifies one hyperparameter combination.
type ParamKey struct {
	C       float64
	L1Ratio float64
}

// Key identifies one ensemble model: a combination and a split index.
type Key struct {
	C       float64
	L1Ratio float64
	Split   int
}

// Params drops the split index.
func (k Key) Params() ParamKey { return ParamKey{C: k.C, L1Ratio: k.L1Ratio} }

// Prediction is the held-out outcome of one sample in one split.
// Proba is the class-1 probability (NaN for regression); AbsError is
// |true - pred| (NaN for classification).
type Prediction struct {
	True     float64
	Pred     float64
	Proba    float64
	AbsError float64
}

// PredictionRecord maps test sample ids to their predictions.
type PredictionRecord map[string]Prediction

// Records is the read-only result of ensemble training. It is written once
// by the collector and never mutated afterwards; accessors return copies.
type Records struct {
	weights     map[Key][]float64
	scores      map[Key]float64
	predictions map[Key]PredictionRecord
}

func newRecords(capacity int) *Records {
	return &Records{
		weights:     make(map[Key][]float64, capacity),
		scores:      make(map[Key]float64, capacity),
		predictions: make(map[Key]PredictionRecord, capacity),
	}
}

// Len returns the number of models recorded.
func (r *Records) Len() int { return len(r.weights) }

// Weights returns a copy of the coefficients of model k.
func (r *Records) Weights(k Key) ([]float64, bool) {
	w, ok := r.weights[k]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), w...), true
}

// Score returns the held-out score of model k.
func (r *Records) Score(k Key) (float64, bool) {
	s, ok := r.scores[k]
	return s, ok
}

// Predictions returns a copy of the prediction record of model k.
func (r *Records) Predictions(k Key) (PredictionRecord, bool) {
	p, ok := r.predictions[k]
	if !ok {
		return nil, false
	}
	out := make(PredictionRecord, len(p))
	for id, v := range p {
		out[id] = v
	}
	return out, true
}

// Keys returns all keys ordered by C, l1_ratio, then split.
func (r *Records) Keys() []Key {
	keys := make([]Key, 0, len(r.weights))
	for k := range r.weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.C != b.C {
			return a.C < b.C
		}
		if a.L1Ratio != b.L1Ratio {
			return a.L1Ratio < b.L1Ratio
		}
		return a.Split < b.Split
	})
	return keys
}

// weightMatrix stacks the K weight vectors of p into a K×N matrix.
func (r *Records) weightMatrix(p ParamKey, k, n int) *mat.Dense {
	m := mat.NewDense(k, n, nil)
	for s := 0; s < k; s++ {
		m.SetRow(s, r.weights[Key{C: p.C, L1Ratio: p.L1Ratio, Split: s}])
	}
	return m
}

// scoreList returns the K scores of p in split order.
func (r *Records) scoreList(p ParamKey, k int) []float64 {
	out := make([]float64, k)
	for s := range out {
		out[s] = r.scores[Key{C: p.C, L1Ratio: p.L1Ratio, Split: s}]
	}
	return out
}

// ObjectMatrix holds one value per sample and split: the class-1
// probability (classification) or absolute error (regression) of the
// sample when it was in the test set of that split, NaN otherwise.
type ObjectMatrix struct {
	SampleIDs []string
	Values    *mat.Dense
}

func newObjectMatrix(ids []string, k int, records *Records, p ParamKey, value func(Prediction) float64) *ObjectMatrix {
	row := make(map[string]int, len(ids))
	for i, id := range ids {
		row[id] = i
	}
	m := mat.NewDense(len(ids), k, nil)
	for i := 0; i < len(ids); i++ {
		for s := 0; s < k; s++ {
			m.Set(i, s, math.NaN())
		}
	}
	for s := 0; s < k; s++ {
		for id, pred := range records.predictions[Key{C: p.C, L1Ratio: p.L1Ratio, Split: s}] {
			m.Set(row[id], s, value(pred))
		}
	}
	return &ObjectMatrix{SampleIDs: append([]string(nil), ids...), Values: m}
}

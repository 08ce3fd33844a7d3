package rent

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/YuminosukeSato/rent/core/model"
	"github.com/YuminosukeSato/rent/pkg/errors"
)

// recordsSnapshot is the gob form of a trained ensemble. Splits are not
// stored; everything downstream of training reads only the records.
type recordsSnapshot struct {
	Task         Task
	FeatureNames []string
	SampleIDs    []string
	C            []float64
	L1Ratios     []float64
	K            int
	Best         ParamKey
	RuntimeNs    int64

	Weights     map[Key][]float64
	Scores      map[Key]float64
	Predictions map[Key]PredictionRecord
}

func (r *RENT) snapshot() *recordsSnapshot {
	return &recordsSnapshot{
		Task:         r.task,
		FeatureNames: r.data.FeatureNames,
		SampleIDs:    r.data.SampleIDs,
		C:            r.grid.C,
		L1Ratios:     r.grid.L1Ratios,
		K:            r.cfg.K,
		Best:         r.best,
		RuntimeNs:    r.runtime.Nanoseconds(),
		Weights:      r.records.weights,
		Scores:       r.records.scores,
		Predictions:  r.records.predictions,
	}
}

// SaveRecords writes the ensemble records to path.
func (r *RENT) SaveRecords(path string) error {
	if err := r.requireTrained("SaveRecords"); err != nil {
		return err
	}
	return model.SaveModel(r.snapshot(), path)
}

// WriteRecords writes the ensemble records to w.
func (r *RENT) WriteRecords(w io.Writer) error {
	if err := r.requireTrained("WriteRecords"); err != nil {
		return err
	}
	return model.SaveModelToWriter(r.snapshot(), w)
}

// LoadRecords restores records saved from a run on the same data, so that
// selections and summaries can be recomputed without training.
func (r *RENT) LoadRecords(path string) error {
	var snap recordsSnapshot
	if err := model.LoadModel(&snap, path); err != nil {
		return err
	}
	return r.restore(&snap)
}

// ReadRecords restores records from rd.
func (r *RENT) ReadRecords(rd io.Reader) error {
	var snap recordsSnapshot
	if err := model.LoadModelFromReader(&snap, rd); err != nil {
		return err
	}
	return r.restore(&snap)
}

func (r *RENT) restore(snap *recordsSnapshot) error {
	if snap.Task != r.task {
		return errors.NewConfigurationError("records", "saved for a different task", snap.Task.String())
	}
	if !slices.Equal(snap.FeatureNames, r.data.FeatureNames) {
		return errors.NewConfigurationError("records", "feature names do not match the data", len(snap.FeatureNames))
	}
	if !slices.Equal(snap.SampleIDs, r.data.SampleIDs) {
		return errors.NewConfigurationError("records", "sample ids do not match the data", len(snap.SampleIDs))
	}
	grid := Grid{C: snap.C, L1Ratios: snap.L1Ratios}
	if snap.K < 1 || grid.Size() == 0 || len(snap.Weights) != grid.Size()*snap.K || !grid.Contains(snap.Best) {
		return errors.NewConfigurationError("records", "incomplete ensemble", len(snap.Weights))
	}
	if err := checkSnapshot(snap, grid, r.data.SampleIDs); err != nil {
		return err
	}

	records := &Records{weights: snap.Weights, scores: snap.Scores, predictions: snap.Predictions}
	scorer := &SelectionScorer{grid: grid, k: snap.K, nFeatures: len(snap.FeatureNames)}
	tables, err := scorer.Score(records)
	if err != nil {
		return err
	}

	r.reset()
	r.cfg.K = snap.K
	r.grid = grid
	r.records = records
	r.tables = tables
	r.best = snap.Best
	r.runtime = time.Duration(snap.RuntimeNs)
	r.selector = newFeatureSelector(r.data.FeatureNames, records.weightMatrix(r.best, r.cfg.K, r.data.NFeatures()))
	r.state.SetFitted(r.data.NFeatures(), r.data.NSamples())
	return nil
}

// checkSnapshot verifies that every model of the grid is present with a
// weight vector of the data's width and predictions for known samples only.
func checkSnapshot(snap *recordsSnapshot, grid Grid, ids []string) error {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	n := len(snap.FeatureNames)
	for i := range grid.L1Ratios {
		for j := range grid.C {
			p := grid.Cell(i, j)
			for s := 0; s < snap.K; s++ {
				key := Key{C: p.C, L1Ratio: p.L1Ratio, Split: s}
				w, ok := snap.Weights[key]
				if !ok {
					return errors.NewConfigurationError("records", "missing weights", key)
				}
				if len(w) != n {
					return errors.NewConfigurationError("records",
						fmt.Sprintf("weights must have %d entries", n), len(w))
				}
				if _, ok := snap.Scores[key]; !ok {
					return errors.NewConfigurationError("records", "missing score", key)
				}
				preds, ok := snap.Predictions[key]
				if !ok {
					return errors.NewConfigurationError("records", "missing predictions", key)
				}
				for id := range preds {
					if !known[id] {
						return errors.NewConfigurationError("records", "prediction for an unknown sample", id)
					}
				}
			}
		}
	}
	return nil
}

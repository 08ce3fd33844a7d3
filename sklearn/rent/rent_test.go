package rent

import (
	"bytes"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/core/model"
	"github.com/YuminosukeSato/rent/linear"
	"github.com/YuminosukeSato/rent/metrics"
	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/pkg/log"
	"github.com/YuminosukeSato/rent/sklearn/model_selection"
)

// classificationData returns 20 samples with balanced 0/1 labels, three
// informative features (columns 0-2) whose class means sit at ±2, and two
// standard normal noise columns (3, 4) independent of the labels.
func classificationData(seed uint64) (*mat.Dense, *mat.VecDense) {
	const n = 20
	rng := rand.New(rand.NewPCG(seed, 2))
	labels := make([]float64, n)
	for i := n / 2; i < n; i++ {
		labels[i] = 1
	}
	rng.Shuffle(n, func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })

	shift := []float64{2, -2, 2, 0, 0}
	X := mat.NewDense(n, len(shift), nil)
	for i := 0; i < n; i++ {
		sign := 2*labels[i] - 1
		for j, m := range shift {
			X.Set(i, j, m*sign+rng.NormFloat64())
		}
	}
	return X, mat.NewVecDense(n, labels)
}

func quiet() Option { return WithLogger(log.Nop()) }

func trainedClassifier(t *testing.T, opts ...Option) *RENT {
	t.Helper()
	X, y := classificationData(11)
	base := []Option{WithC(1, 10), WithL1Ratios(0.5), WithK(20), WithRandomState(42), WithAutoEnetParSel(false), quiet()}
	r, err := NewClassification(X, y, append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, r.Train())
	return r
}

func TestScenario_InformativeFeaturesSelected(t *testing.T) {
	if testing.Short() {
		t.Skip("trains 20 ensembles")
	}
	const trials = 20
	passed := 0
	for trial := 0; trial < trials; trial++ {
		X, y := classificationData(uint64(100 + trial))
		r, err := NewClassification(X, y,
			WithC(1, 10), WithL1Ratios(0.5), WithK(50), WithScale(true),
			WithRandomState(42), WithAutoEnetParSel(false), quiet())
		require.NoError(t, err)
		require.NoError(t, r.Train())

		selected, err := r.SelectFeatures(DefaultTau1, DefaultTau2, DefaultTau3)
		require.NoError(t, err)
		set := map[int]bool{}
		for _, j := range selected {
			set[j] = true
		}
		if set[0] && set[1] && set[2] && !set[3] && !set[4] {
			passed++
		} else {
			summary, _ := r.SummaryCriteria()
			t.Logf("trial %d selected %v tau=%v", trial, selected, mat.Formatted(summary.Tau))
		}
	}
	// 95%以上
	assert.GreaterOrEqual(t, float64(passed)/trials, 0.95, "passed %d of %d", passed, trials)
}

func TestTrain_SeededRunsAreIdentical(t *testing.T) {
	a := trainedClassifier(t, WithWorkers(1))
	b := trainedClassifier(t, WithWorkers(4))

	assert.Equal(t, a.records.weights, b.records.weights)
	assert.Equal(t, a.records.scores, b.records.scores)
	require.Equal(t, len(a.records.predictions), len(b.records.predictions))
	for key, pa := range a.records.predictions {
		pb := b.records.predictions[key]
		require.Len(t, pb, len(pa))
		for id, want := range pa {
			got := pb[id]
			// AbsError is NaN for classification
			assert.Equal(t, [3]float64{want.True, want.Pred, want.Proba}, [3]float64{got.True, got.Pred, got.Proba})
		}
	}

	selA, err := a.SelectFeatures(0.9, 0.9, 0.975)
	require.NoError(t, err)
	selB, err := b.SelectFeatures(0.9, 0.9, 0.975)
	require.NoError(t, err)
	assert.Equal(t, selA, selB)

	c := trainedClassifier(t, WithRandomState(43))
	assert.NotEqual(t, a.records.scores, c.records.scores)
}

func TestTrain_RecordsCoverGrid(t *testing.T) {
	r := trainedClassifier(t)
	records, err := r.Records()
	require.NoError(t, err)
	assert.Equal(t, 2*20, records.Len())

	splits, err := r.Splits()
	require.NoError(t, err)
	for _, key := range records.Keys() {
		w, ok := records.Weights(key)
		require.True(t, ok)
		assert.Len(t, w, 5)
		preds, ok := records.Predictions(key)
		require.True(t, ok)
		assert.Len(t, preds, len(splits[key.Split].Test))
		for _, p := range preds {
			assert.True(t, p.Pred == 0 || p.Pred == 1)
			assert.True(t, p.Proba >= 0 && p.Proba <= 1)
			assert.True(t, math.IsNaN(p.AbsError))
		}
	}

	tables, err := r.EnetParamMatrices()
	require.NoError(t, err)
	rows, cols := tables.Combination.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 2, cols)
	_, ok := r.CVMatrices()
	assert.False(t, ok)
}

func TestSelectFeatures_Preconditions(t *testing.T) {
	X, y := classificationData(1)
	r, err := NewClassification(X, y, WithK(10), quiet())
	require.NoError(t, err)

	_, err = r.SelectFeatures(0.9, 0.9, 0.975)
	assert.True(t, errors.IsNotTrained(err))
	_, err = r.EnetParams()
	assert.True(t, errors.IsNotTrained(err))
	_, err = r.SummaryObjects()
	assert.True(t, errors.IsNotTrained(err))
	_, err = r.WeightDistributions(false)
	assert.True(t, errors.IsNotTrained(err))
	assert.True(t, errors.IsNotTrained(r.SaveRecords(filepath.Join(t.TempDir(), "r.gob"))))

	trained := trainedClassifier(t)
	_, err = trained.SummaryCriteria()
	var pe *errors.PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "SelectFeatures", pe.Required)

	_, err = trained.ValidationStudy(X, y, 10, 10)
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "SelectFeatures", pe.Required)
}

func TestSelectFeatures_SummaryConsistency(t *testing.T) {
	r := trainedClassifier(t)
	selected, err := r.SelectFeatures(0.5, 0.5, 0.5)
	require.NoError(t, err)

	summary, err := r.SummaryCriteria()
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3", "f4", "f5"}, summary.FeatureNames)
	assert.Equal(t, selected, summary.Select(0.5, 0.5, 0.5))

	binary, err := r.WeightDistributions(true)
	require.NoError(t, err)
	k, n := binary.Dims()
	assert.Equal(t, 20, k)
	for j := 0; j < n; j++ {
		col := mat.Col(nil, j, binary)
		for _, v := range col {
			assert.True(t, v == 0 || v == 1)
		}
		assert.InDelta(t, summary.Tau1()[j], floats.Sum(col)/float64(k), 1e-12)
	}

	scores, err := r.ScoresList()
	require.NoError(t, err)
	assert.Len(t, scores, 20)

	last, err := r.SelectedFeatures()
	require.NoError(t, err)
	assert.Equal(t, selected, last)
}

func TestSetEnetParams(t *testing.T) {
	r := trainedClassifier(t)
	_, err := r.SelectFeatures(0.9, 0.9, 0.975)
	require.NoError(t, err)

	require.NoError(t, r.SetEnetParams(10, 0.5))
	p, err := r.EnetParams()
	require.NoError(t, err)
	assert.Equal(t, ParamKey{C: 10, L1Ratio: 0.5}, p)

	// 選択はリセットされる
	_, err = r.SummaryCriteria()
	var pe *errors.PreconditionError
	assert.True(t, errors.As(err, &pe))

	w, err := r.WeightDistributions(false)
	require.NoError(t, err)
	expected := r.records.weightMatrix(ParamKey{C: 10, L1Ratio: 0.5}, 20, 5)
	assert.True(t, mat.Equal(expected, w))

	err = r.SetEnetParams(5, 0.5)
	var ce *errors.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestSummaryObjects_Classification(t *testing.T) {
	r := trainedClassifier(t)
	objects, err := r.SummaryObjects()
	require.NoError(t, err)
	require.Len(t, objects, 20)

	splits, err := r.Splits()
	require.NoError(t, err)
	tested := make(map[string]int)
	for _, s := range splits {
		for _, row := range s.Test {
			tested[r.data.SampleIDs[row]]++
		}
	}

	proba, err := r.ObjectProbabilities()
	require.NoError(t, err)
	for i, o := range objects {
		assert.Equal(t, r.data.SampleIDs[i], o.SampleID)
		assert.Equal(t, tested[o.SampleID], o.Tested)
		assert.Equal(t, r.data.Y.AtVec(i), o.Class)
		assert.True(t, math.IsNaN(o.MeanAbsError))
		if o.Tested == 0 {
			assert.True(t, math.IsNaN(o.PctIncorrect))
		} else {
			assert.InDelta(t, 100*float64(o.Incorrect)/float64(o.Tested), o.PctIncorrect, 1e-12)
		}

		var finite int
		for _, v := range mat.Row(nil, i, proba.Values) {
			if !math.IsNaN(v) {
				finite++
			}
		}
		assert.Equal(t, o.Tested, finite)
	}

	_, err = r.ObjectErrors()
	var ue *errors.UnsupportedClassifierError
	assert.True(t, errors.As(err, &ue))
}

func TestRegression_EndToEnd(t *testing.T) {
	X, y := linearData(5, 60, 6)
	testX, testY := linearData(6, 30, 6)
	r, err := NewRegression(X, y,
		WithC(1, 10), WithL1Ratios(0.5, 0.9), WithK(20),
		WithRandomState(7), WithCVSplits(3), quiet())
	require.NoError(t, err)
	require.NoError(t, r.Train())

	cv, ok := r.CVMatrices()
	require.True(t, ok)
	rows, cols := cv.Combination.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)

	best, err := r.EnetParams()
	require.NoError(t, err)
	tables, err := r.EnetParamMatrices()
	require.NoError(t, err)
	assert.Equal(t, []float64{best.C}, tables.C)
	assert.Equal(t, []float64{best.L1Ratio}, tables.L1Ratios)

	selected, err := r.SelectFeatures(DefaultTau1, DefaultTau2, DefaultTau3)
	require.NoError(t, err)
	assert.Contains(t, selected, 0)
	assert.Contains(t, selected, 1)

	errs, err := r.ObjectErrors()
	require.NoError(t, err)
	nRows, nCols := errs.Values.Dims()
	assert.Equal(t, 60, nRows)
	assert.Equal(t, 20, nCols)

	objects, err := r.SummaryObjects()
	require.NoError(t, err)
	for _, o := range objects {
		assert.True(t, math.IsNaN(o.Class))
		if o.Tested == 0 {
			assert.True(t, math.IsNaN(o.MeanAbsError))
		} else {
			assert.GreaterOrEqual(t, o.MeanAbsError, 0.0)
		}
	}

	res, err := r.ValidationStudy(testX, testY, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, "r2", res.Metric)
	assert.True(t, res.RejectVS2)

	runtime, err := r.Runtime()
	require.NoError(t, err)
	assert.Greater(t, runtime.Nanoseconds(), int64(0))
}

func TestRecords_SaveAndLoad(t *testing.T) {
	r := trainedClassifier(t)
	want, err := r.SelectFeatures(0.8, 0.8, 0.9)
	require.NoError(t, err)

	X, y := classificationData(11)
	fresh, err := NewClassification(X, y, WithC(1, 10), WithL1Ratios(0.5), WithK(20), quiet())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.WriteRecords(&buf))
	require.NoError(t, fresh.ReadRecords(&buf))
	got, err := fresh.SelectFeatures(0.8, 0.8, 0.9)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, r.records.weights, fresh.records.weights)

	path := filepath.Join(t.TempDir(), "records.gob")
	require.NoError(t, r.SaveRecords(path))
	require.NoError(t, fresh.LoadRecords(path))
	p, err := fresh.EnetParams()
	require.NoError(t, err)
	assert.Equal(t, r.best, p)

	// 別データには読み込めない
	other, err := NewClassification(X, y, WithFeatureNames([]string{"a", "b", "c", "d", "e"}), quiet())
	require.NoError(t, err)
	var ce *errors.ConfigurationError
	assert.True(t, errors.As(other.LoadRecords(path), &ce))
}

func TestNew_ConfigurationErrors(t *testing.T) {
	X, y := classificationData(1)
	tests := []struct {
		name string
		opts []Option
	}{
		{"no C", []Option{WithC()}},
		{"negative C", []Option{WithC(-1)}},
		{"infinite C", []Option{WithC(math.Inf(1))}},
		{"duplicate C", []Option{WithC(1, 1)}},
		{"l1 above one", []Option{WithL1Ratios(1.5)}},
		{"no l1", []Option{WithL1Ratios()}},
		{"zero K", []Option{WithK(0)}},
		{"poly", []Option{WithPoly("cubic")}},
		{"test size inverted", []Option{WithTestSizeRange(0.6, 0.2)}},
		{"test size one", []Option{WithTestSizeRange(0.2, 1)}},
		{"scoring", []Option{WithScoring("r2")}},
		{"classifier", []Option{WithClassifier("svm")}},
		{"cv splits", []Option{WithCVSplits(1)}},
		{"feature names", []Option{WithFeatureNames([]string{"a"})}},
		{"sample ids", []Option{WithSampleIDs([]string{"x"})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassification(X, y, append(tt.opts, quiet())...)
			var ce *errors.ConfigurationError
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}

	_, err := NewClassification(X, y, WithClassifier("linsvc"), quiet())
	var ue *errors.UnsupportedClassifierError
	assert.True(t, errors.As(err, &ue))
	_, err = NewRegression(X, y, WithClassifier("logreg"), quiet())
	assert.True(t, errors.As(err, &ue))

	_, err = NewRegression(X, y, WithScoring("accuracy"), quiet())
	var ce *errors.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestNew_DataErrors(t *testing.T) {
	X, _ := classificationData(1)
	var ve *errors.ValueError

	_, err := NewClassification(X, mat.NewVecDense(20, nil), quiet())
	assert.True(t, errors.As(err, &ve), "single class")

	labels := make([]float64, 20)
	labels[0], labels[1] = 1, 2
	_, err = NewClassification(X, mat.NewVecDense(20, labels), quiet())
	assert.True(t, errors.As(err, &ve), "non-binary labels")

	_, err = NewRegression(X, mat.NewVecDense(5, nil), quiet())
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = NewRegression(nil, nil, quiet())
	assert.True(t, errors.As(err, &ve))

	for name, v := range map[string]float64{"nan": math.NaN(), "+inf": math.Inf(1), "-inf": math.Inf(-1)} {
		bad := mat.DenseCopyOf(X)
		bad.Set(3, 2, v)
		_, err = NewRegression(bad, mat.NewVecDense(20, nil), quiet())
		assert.True(t, errors.As(err, &ve), "%s in data", name)

		target := mat.NewVecDense(20, nil)
		target.SetVec(7, v)
		_, err = NewRegression(X, target, quiet())
		assert.True(t, errors.As(err, &ve), "%s in target", name)
	}
}

func TestNew_SmallEnsembleWarning(t *testing.T) {
	warned := captureWarnings(t)
	X, y := classificationData(1)
	_, err := NewClassification(X, y, WithK(5), quiet())
	require.NoError(t, err)

	require.Len(t, *warned, 1)
	var sw *errors.SmallEnsembleWarning
	require.True(t, errors.As((*warned)[0], &sw))
	assert.Equal(t, 5, sw.K)
}

func TestNew_PolyExpansion(t *testing.T) {
	X, y := classificationData(1)
	r, err := NewClassification(X, y, WithPoly(PolyInteractionsOnly), quiet())
	require.NoError(t, err)
	names := r.FeatureNames()
	assert.Len(t, names, 5+10)
	assert.Equal(t, "f1*f2", names[5])

	r, err = NewClassification(X, y, WithPoly(PolyOn), quiet())
	require.NoError(t, err)
	assert.Len(t, r.FeatureNames(), 5+15)
	assert.Equal(t, "f1^2", r.FeatureNames()[5])
}

// stubProvider zeroes every coefficient below minC and predicts zeros.
type stubProvider struct{ minC float64 }

type stubModel struct{ coef []float64 }

func (m stubModel) Coef() []float64 { return append([]float64(nil), m.coef...) }

func (m stubModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, _ := X.Dims()
	return mat.NewVecDense(r, nil), nil
}

func (p stubProvider) Fit(X mat.Matrix, _ *mat.VecDense, c, _ float64) (linear.Model, error) {
	_, n := X.Dims()
	coef := make([]float64, n)
	if c >= p.minC {
		for j := range coef {
			coef[j] = 1
		}
	}
	return stubModel{coef: coef}, nil
}

func (p stubProvider) FitUnpenalized(X mat.Matrix, y *mat.VecDense) (linear.Model, error) {
	return p.Fit(X, y, math.Inf(1), 0)
}

func TestTrain_AllDegenerateFails(t *testing.T) {
	captureWarnings(t)
	X, y := linearData(1, 30, 3)
	r, err := NewRegression(X, y,
		WithC(1, 2), WithK(10), WithAutoEnetParSel(false),
		WithProvider(stubProvider{minC: 100}), WithRandomState(0), quiet())
	require.NoError(t, err)

	err = r.Train()
	assert.True(t, errors.Is(err, errors.ErrNoValidCombination))
	_, err = r.SelectFeatures(0.9, 0.9, 0.9)
	assert.True(t, errors.IsNotTrained(err))
}

func TestTrain_DegenerateCellSkipped(t *testing.T) {
	warned := captureWarnings(t)
	X, y := linearData(1, 30, 3)
	r, err := NewRegression(X, y,
		WithC(1, 200), WithK(10), WithAutoEnetParSel(false),
		WithProvider(stubProvider{minC: 100}), WithRandomState(0), quiet())
	require.NoError(t, err)
	require.NoError(t, r.Train())

	p, err := r.EnetParams()
	require.NoError(t, err)
	assert.Equal(t, 200.0, p.C)

	var dw *errors.DegenerateFitWarning
	require.NotEmpty(t, *warned)
	assert.True(t, errors.As((*warned)[0], &dw))
	assert.Equal(t, 1.0, dw.C)
}

// roundTrip decodes the records written by r so they can be altered
// without touching r.
func roundTrip(t *testing.T, r *RENT) *recordsSnapshot {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.WriteRecords(&buf))
	var snap recordsSnapshot
	require.NoError(t, model.LoadModelFromReader(&snap, &buf))
	return &snap
}

func TestRecords_LoadRejectsMalformed(t *testing.T) {
	source := trainedClassifier(t)
	anyKey := func(snap *recordsSnapshot) Key {
		return Key{C: snap.C[0], L1Ratio: snap.L1Ratios[0], Split: snap.K - 1}
	}

	tests := []struct {
		name   string
		mutate func(snap *recordsSnapshot)
	}{
		{"split indices shifted", func(snap *recordsSnapshot) {
			weights := make(map[Key][]float64, len(snap.Weights))
			for k, w := range snap.Weights {
				k.Split += 100
				weights[k] = w
			}
			snap.Weights = weights
		}},
		{"short weight vector", func(snap *recordsSnapshot) {
			k := anyKey(snap)
			snap.Weights[k] = snap.Weights[k][:2]
		}},
		{"nil weight vector", func(snap *recordsSnapshot) {
			snap.Weights[anyKey(snap)] = nil
		}},
		{"missing score", func(snap *recordsSnapshot) {
			delete(snap.Scores, anyKey(snap))
		}},
		{"missing predictions", func(snap *recordsSnapshot) {
			delete(snap.Predictions, anyKey(snap))
		}},
		{"unknown sample", func(snap *recordsSnapshot) {
			snap.Predictions[anyKey(snap)]["no-such-sample"] = Prediction{}
		}},
		{"empty grid", func(snap *recordsSnapshot) {
			snap.C = nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := roundTrip(t, source)
			tt.mutate(snap)
			var buf bytes.Buffer
			require.NoError(t, model.SaveModelToWriter(snap, &buf))

			// 学習済みの状態は失敗した読み込みで壊れない
			target := trainedClassifier(t, WithRandomState(7))
			before, err := target.EnetParams()
			require.NoError(t, err)

			var ce *errors.ConfigurationError
			require.NotPanics(t, func() { err = target.ReadRecords(&buf) })
			assert.True(t, errors.As(err, &ce), "got %v", err)

			after, err := target.EnetParams()
			require.NoError(t, err)
			assert.Equal(t, before, after)
			_, err = target.SelectFeatures(0.5, 0.5, 0.5)
			assert.NoError(t, err)
		})
	}
}

// sparsityProvider keeps the first keep[C] coefficients at 1 and predicts
// zeros. A C listed in dropRows fits all zeros when the training set has
// exactly that many rows.
type sparsityProvider struct {
	keep     map[float64]int
	dropRows map[float64]int
}

func (p sparsityProvider) Fit(X mat.Matrix, _ *mat.VecDense, c, _ float64) (linear.Model, error) {
	rows, n := X.Dims()
	coef := make([]float64, n)
	if drop, ok := p.dropRows[c]; ok && drop == rows {
		return stubModel{coef: coef}, nil
	}
	for j := 0; j < p.keep[c] && j < n; j++ {
		coef[j] = 1
	}
	return stubModel{coef: coef}, nil
}

func (p sparsityProvider) FitUnpenalized(X mat.Matrix, _ *mat.VecDense) (linear.Model, error) {
	_, n := X.Dims()
	coef := make([]float64, n)
	for j := range coef {
		coef[j] = 1
	}
	return stubModel{coef: coef}, nil
}

func newTestSelector(t *testing.T, X *mat.Dense, y *mat.VecDense, provider linear.Provider, nSplits int, seed int64) *HyperparameterSelector {
	t.Helper()
	cfg := defaultConfig(Regression)
	cfg.Provider = provider
	caps, err := newCapability(Regression, &cfg)
	require.NoError(t, err)
	data, _, err := newDataset(X, y, Regression, &cfg)
	require.NoError(t, err)
	return &HyperparameterSelector{caps: caps, data: data, scale: true, nSplits: nSplits, seed: seed, workers: 2, logger: log.Nop()}
}

func TestParsel_Tables(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name       string
		grid       Grid
		keep       map[float64]int
		zeroes     []float64 // per C, same for every l1 row
		combo      []float64
		best       ParamKey
		degenerate int
	}{
		{
			// どのモデルも同じ予測なのでスコア軸は潰れ、ゼロ割合だけで選ぶ
			name:       "rank collapse maximizes zero fraction",
			grid:       Grid{C: []float64{0.1, 1, 10}, L1Ratios: []float64{0.5, 0.8}},
			keep:       map[float64]int{0.1: 0, 1: 1, 10: 4},
			zeroes:     []float64{nan, 0.75, 0},
			combo:      []float64{nan, 1, 0},
			best:       ParamKey{C: 1, L1Ratio: 0.8},
			degenerate: 2,
		},
		{
			name:   "equal sparsity ties on the largest l1 and smallest C",
			grid:   Grid{C: []float64{2, 3}, L1Ratios: []float64{0.2, 0.4, 0.6}},
			keep:   map[float64]int{2: 2, 3: 2},
			zeroes: []float64{0.5, 0.5},
			combo:  []float64{1, 1},
			best:   ParamKey{C: 2, L1Ratio: 0.6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warned := captureWarnings(t)
			X, y := linearData(4, 30, 4)
			hs := newTestSelector(t, X, y, sparsityProvider{keep: tt.keep}, 3, 5)

			best, tables, err := hs.Select(tt.grid)
			require.NoError(t, err)
			assert.Equal(t, tt.best, best)
			for i := range tt.grid.L1Ratios {
				for j := range tt.grid.C {
					if math.IsNaN(tt.zeroes[j]) {
						assert.True(t, math.IsNaN(tables.Scores.At(i, j)))
						assert.True(t, math.IsNaN(tables.Zeroes.At(i, j)))
						assert.True(t, math.IsNaN(tables.Combination.At(i, j)))
						continue
					}
					assert.InDelta(t, tt.zeroes[j], tables.Zeroes.At(i, j), 1e-12)
					assert.InDelta(t, tt.combo[j], tables.Combination.At(i, j), 1e-12)
				}
			}

			var degenerate int
			for _, w := range *warned {
				var dw *errors.DegenerateFitWarning
				if errors.As(w, &dw) {
					degenerate++
					assert.Equal(t, "cross-validation", dw.Stage)
					assert.Equal(t, -1, dw.Split)
				}
			}
			assert.Equal(t, tt.degenerate, degenerate)
		})
	}
}

func TestParsel_DegenerateFoldsExcluded(t *testing.T) {
	warned := captureWarnings(t)
	// 31行を3分割: 最初の分割だけ学習行数が20
	X, y := linearData(6, 31, 4)
	provider := sparsityProvider{
		keep:     map[float64]int{5: 2, 50: 4},
		dropRows: map[float64]int{5: 20},
	}
	hs := newTestSelector(t, X, y, provider, 3, 9)

	best, tables, err := hs.Select(Grid{C: []float64{5, 50}, L1Ratios: []float64{0.5}})
	require.NoError(t, err)

	folds, err := model_selection.NewKFold(3, true, 9).Split(hs.data.Y)
	require.NoError(t, err)
	require.Len(t, folds[0].Train, 20)
	r2 := make([]float64, len(folds))
	for f, fold := range folds {
		_, yTest := subset(hs.data.X, hs.data.Y, fold.Test)
		r2[f], err = metrics.R2Score(yTest, mat.NewVecDense(yTest.Len(), nil))
		require.NoError(t, err)
	}

	assert.InDelta(t, 0.5, tables.Zeroes.At(0, 0), 1e-12)
	assert.InDelta(t, 0.0, tables.Zeroes.At(0, 1), 1e-12)
	assert.InDelta(t, (r2[1]+r2[2])/2, tables.Scores.At(0, 0), 1e-12)
	assert.InDelta(t, (r2[0]+r2[1]+r2[2])/3, tables.Scores.At(0, 1), 1e-12)

	want, err := combine(tables.Scores, tables.Zeroes, true)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, tables.Combination))
	// スパースな側は正規化後のゼロ割合が1、もう一方は0なのでC=5が選ばれる
	assert.Equal(t, ParamKey{C: 5, L1Ratio: 0.5}, best)
	assert.Empty(t, *warned)
}

func TestParsel_ClassificationTrain(t *testing.T) {
	X, y := classificationData(3)
	r, err := NewClassification(X, y,
		WithC(0.5, 5), WithL1Ratios(0.5, 0.9), WithK(10),
		WithCVSplits(4), WithRandomState(1), quiet())
	require.NoError(t, err)
	require.NoError(t, r.Train())

	cv, ok := r.CVMatrices()
	require.True(t, ok)
	rows, cols := cv.Combination.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if s := cv.Scores.At(i, j); !math.IsNaN(s) {
				// MCC
				assert.GreaterOrEqual(t, s, -1.0)
				assert.LessOrEqual(t, s, 1.0)
			}
			if z := cv.Zeroes.At(i, j); !math.IsNaN(z) {
				assert.GreaterOrEqual(t, z, 0.0)
				assert.LessOrEqual(t, z, 1.0)
			}
		}
	}

	want, err := cv.Best()
	require.NoError(t, err)
	got, err := r.EnetParams()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	tables, err := r.EnetParamMatrices()
	require.NoError(t, err)
	assert.Equal(t, []float64{want.C}, tables.C)
	assert.Equal(t, []float64{want.L1Ratio}, tables.L1Ratios)
	records, err := r.Records()
	require.NoError(t, err)
	assert.Equal(t, 10, records.Len())
}

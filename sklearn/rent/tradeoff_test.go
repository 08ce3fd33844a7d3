package rent

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/pkg/log"
)

// captureWarnings collects errors.Warn output for the duration of the test.
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var warned []error
	errors.SetZerologWarnFunc(func(w error) { warned = append(warned, w) })
	t.Cleanup(log.InstallWarningSink)
	return &warned
}

func TestInvert(t *testing.T) {
	assert.True(t, math.IsInf(invert(0), 1))
	assert.Equal(t, 0.0, invert(math.Inf(1)))
	assert.Equal(t, 0.5, invert(2))
	assert.Equal(t, 4.0, invert(0.25))
}

func TestHarmonicMean_CornerValues(t *testing.T) {
	assert.Equal(t, 1.0, harmonicMean(1, 1))
	for _, z := range []float64{0, 0.3, 1} {
		assert.Equal(t, 0.0, harmonicMean(0, z), "zero score must dominate, z=%g", z)
		assert.Equal(t, 0.0, harmonicMean(z, 0), "zero sparsity must dominate, s=%g", z)
	}
	assert.InDelta(t, 2*0.5*0.25/(0.5+0.25), harmonicMean(0.5, 0.25), 1e-12)
	assert.True(t, math.IsNaN(harmonicMean(math.NaN(), 0.5)))
}

func TestMinMaxTable(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{
		0.5, 0.7,
		math.NaN(), 0.9,
	})
	out, err := minMaxTable(m)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, out.At(0, 1), 1e-12)
	assert.True(t, math.IsNaN(out.At(1, 0)))
	assert.InDelta(t, 1.0, out.At(1, 1), 1e-12)

	// 全セル同値は1
	flat, err := minMaxTable(mat.NewDense(1, 3, []float64{0.4, 0.4, math.NaN()}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, flat.At(0, 0))
	assert.Equal(t, 1.0, flat.At(0, 1))
	assert.True(t, math.IsNaN(flat.At(0, 2)))
}

func TestBestCell_TieBreak(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		1, 0.2, 1,
		0.5, 1, 1,
		math.NaN(), 0.1, 0.3,
	})
	row, col, ok := bestCell(m)
	require.True(t, ok)
	assert.Equal(t, 1, row, "largest row among the maxima")
	assert.Equal(t, 1, col, "smallest column within that row")

	_, _, ok = bestCell(mat.NewDense(1, 2, []float64{math.NaN(), math.NaN()}))
	assert.False(t, ok)
}

func TestCombine_Normalized(t *testing.T) {
	scores := mat.NewDense(1, 3, []float64{0.6, 0.8, 1.0})
	zeroes := mat.NewDense(1, 3, []float64{0.9, 0.5, 0.1})
	out, err := combine(scores, zeroes, true)
	require.NoError(t, err)
	// 端のセルはどちらかの軸が0なので0
	assert.Equal(t, 0.0, out.At(0, 0))
	assert.Equal(t, 0.0, out.At(0, 2))
	assert.InDelta(t, 0.5, out.At(0, 1), 1e-12)
}

// recordsFrom builds records for a grid where weights(p, k) and score(p, k)
// describe every model.
func recordsFrom(grid Grid, k int, weights func(p ParamKey, split int) []float64, score func(p ParamKey, split int) float64) *Records {
	r := newRecords(grid.Size() * k)
	for i := range grid.L1Ratios {
		for j := range grid.C {
			p := grid.Cell(i, j)
			for s := 0; s < k; s++ {
				key := Key{C: p.C, L1Ratio: p.L1Ratio, Split: s}
				r.weights[key] = weights(p, s)
				r.scores[key] = score(p, s)
				r.predictions[key] = PredictionRecord{}
			}
		}
	}
	return r
}

func TestSelectionScorer_SingleCellSkipsNormalization(t *testing.T) {
	grid := Grid{C: []float64{5}, L1Ratios: []float64{1}}
	records := recordsFrom(grid, 4,
		func(_ ParamKey, s int) []float64 {
			// zero fraction alternates 0.5 / 0.25
			if s%2 == 0 {
				return []float64{1, 0, 2, 0}
			}
			return []float64{1, 3, 2, 0}
		},
		func(_ ParamKey, s int) float64 { return 0.6 + 0.1*float64(s%2) },
	)
	scorer := &SelectionScorer{grid: grid, k: 4, nFeatures: 4}
	tables, err := scorer.Score(records)
	require.NoError(t, err)

	s, z := 0.65, 0.375
	assert.InDelta(t, s, tables.Scores.At(0, 0), 1e-12)
	assert.InDelta(t, z, tables.Zeroes.At(0, 0), 1e-12)
	assert.InDelta(t, 2*s*z/(s+z), tables.Combination.At(0, 0), 1e-12)

	best, err := tables.Best()
	require.NoError(t, err)
	assert.Equal(t, ParamKey{C: 5, L1Ratio: 1}, best)
}

func TestSelectionScorer_DegenerateCellNeverBest(t *testing.T) {
	warned := captureWarnings(t)
	grid := Grid{C: []float64{0.01, 1, 10}, L1Ratios: []float64{0.5, 1}}
	records := recordsFrom(grid, 5,
		func(p ParamKey, s int) []float64 {
			switch {
			case p.C == 0.01:
				return []float64{0, 0, 0, 0}
			case p.C == 1:
				return []float64{0.5, 0, 0, float64(s)}
			default:
				return []float64{0.5, 0.1, 0.2, 0.3}
			}
		},
		func(p ParamKey, _ int) float64 {
			if p.C == 0.01 {
				// would win on score alone
				return 1
			}
			return 0.7 + 0.01*p.C*p.L1Ratio
		},
	)
	scorer := &SelectionScorer{grid: grid, k: 5, nFeatures: 4}
	tables, err := scorer.Score(records)
	require.NoError(t, err)

	for row := 0; row < 2; row++ {
		assert.True(t, math.IsNaN(tables.Scores.At(row, 0)))
		assert.True(t, math.IsNaN(tables.Zeroes.At(row, 0)))
		assert.True(t, math.IsNaN(tables.Combination.At(row, 0)))
	}
	best, err := tables.Best()
	require.NoError(t, err)
	assert.NotEqual(t, 0.01, best.C)

	var degenerate int
	for _, w := range *warned {
		var dw *errors.DegenerateFitWarning
		if errors.As(w, &dw) {
			degenerate++
			assert.Equal(t, -1, dw.Split)
			assert.Equal(t, "ensemble", dw.Stage)
		}
	}
	assert.Equal(t, 2, degenerate)
}

func TestSelectionScorer_PartiallyDegenerateSplitsExcluded(t *testing.T) {
	grid := Grid{C: []float64{1}, L1Ratios: []float64{0.5}}
	records := recordsFrom(grid, 3,
		func(_ ParamKey, s int) []float64 {
			if s == 0 {
				return []float64{0, 0}
			}
			return []float64{1, 0}
		},
		func(_ ParamKey, s int) float64 { return float64(s) * 0.4 },
	)
	tables, err := (&SelectionScorer{grid: grid, k: 3, nFeatures: 2}).Score(records)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, tables.Scores.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, tables.Zeroes.At(0, 0), 1e-12)
}

func TestSelectionScorer_AllDegenerate(t *testing.T) {
	captureWarnings(t)
	grid := Grid{C: []float64{1, 2}, L1Ratios: []float64{1}}
	records := recordsFrom(grid, 2,
		func(ParamKey, int) []float64 { return []float64{0, 0, 0} },
		func(ParamKey, int) float64 { return 0.5 },
	)
	tables, err := (&SelectionScorer{grid: grid, k: 2, nFeatures: 3}).Score(records)
	require.NoError(t, err)
	_, err = tables.Best()
	assert.True(t, errors.Is(err, errors.ErrNoValidCombination))
}

func TestNanMean(t *testing.T) {
	assert.InDelta(t, 2.0, nanMean([]float64{1, math.NaN(), 3}), 1e-12)
	assert.True(t, math.IsNaN(nanMean([]float64{math.NaN()})))
	assert.True(t, math.IsNaN(nanMean(nil)))
}

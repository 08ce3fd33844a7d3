package rent

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/preprocessing"
)

// TradeoffTables holds, per grid cell (rows l1_ratio, columns C), the mean
// held-out score, the mean fraction of zero coefficients and their
// harmonic-mean combination.
type TradeoffTables struct {
	L1Ratios    []float64
	C           []float64
	Scores      *mat.Dense
	Zeroes      *mat.Dense
	Combination *mat.Dense
}

// Best returns the cell with the largest finite combination value. Ties
// go to the largest l1_ratio row, then the smallest C column.
func (t *TradeoffTables) Best() (ParamKey, error) {
	row, col, ok := bestCell(t.Combination)
	if !ok {
		return ParamKey{}, errors.WithStack(errors.ErrNoValidCombination)
	}
	return ParamKey{C: t.C[col], L1Ratio: t.L1Ratios[row]}, nil
}

// invert maps 0 to +Inf and +Inf to 0, so the harmonic mean collapses to 0
// when one axis is 0.
func invert(x float64) float64 {
	switch {
	case x == 0:
		return math.Inf(1)
	case math.IsInf(x, 1):
		return 0
	default:
		return 1 / x
	}
}

// harmonicMean is 2 * invert(invert(s) + invert(z)).
func harmonicMean(s, z float64) float64 {
	return 2 * invert(invert(s)+invert(z))
}

// combine builds the combination table. With normalize, both tables are
// min-max scaled across the whole grid first.
func combine(scores, zeroes *mat.Dense, normalize bool) (*mat.Dense, error) {
	s, z := scores, zeroes
	if normalize {
		var err error
		if s, err = minMaxTable(scores); err != nil {
			return nil, err
		}
		if z, err = minMaxTable(zeroes); err != nil {
			return nil, err
		}
	}
	r, c := scores.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, _ float64) float64 {
		return harmonicMean(s.At(i, j), z.At(i, j))
	}, out)
	return out, nil
}

// minMaxTable scales all finite entries of m to [0, 1] using one min and
// max for the whole table. NaN stays NaN. A table whose finite entries are
// all equal carries no ranking information and maps to 1.
func minMaxTable(m *mat.Dense) (*mat.Dense, error) {
	r, c := m.Dims()
	flat := mat.NewDense(r*c, 1, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			flat.Set(i*c+j, 0, m.At(i, j))
		}
	}
	scaler := preprocessing.NewMinMaxScalerDefault()
	scaled, err := scaler.FitTransform(flat)
	if err != nil {
		return nil, err
	}
	constant := scaler.Constant(0)

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := scaled.At(i*c+j, 0)
			if constant && !math.IsNaN(v) {
				v = 1
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// bestCell returns the position of the largest finite value, preferring
// the largest row and then the smallest column among equal values.
func bestCell(m *mat.Dense) (row, col int, ok bool) {
	r, c := m.Dims()
	best := math.Inf(-1)
	row, col = -1, -1
	for i := r - 1; i >= 0; i-- {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if row < 0 || v > best {
				best, row, col = v, i, j
			}
		}
	}
	return row, col, row >= 0
}

// allFiniteEqual reports whether the finite entries of m share one value.
func allFiniteEqual(m *mat.Dense) bool {
	r, c := m.Dims()
	first, seen := 0.0, false
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if !seen {
				first, seen = v, true
				continue
			}
			if v != first {
				return false
			}
		}
	}
	return true
}

// nanMean averages the non-NaN values; NaN when there are none.
func nanMean(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// SelectionScorer aggregates ensemble records into tradeoff tables.
type SelectionScorer struct {
	grid      Grid
	k         int
	nFeatures int
}

// Score computes per-cell means over the K splits. A split whose
// coefficients are all zero is degenerate and left out of both means; a
// cell with only degenerate splits is NaN and emits a DegenerateFitWarning.
// Normalization is skipped for a single-cell grid.
func (s *SelectionScorer) Score(records *Records) (*TradeoffTables, error) {
	rows, cols := len(s.grid.L1Ratios), len(s.grid.C)
	scores := mat.NewDense(rows, cols, nil)
	zeroes := mat.NewDense(rows, cols, nil)

	splitScores := make([]float64, s.k)
	splitZeroes := make([]float64, s.k)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p := s.grid.Cell(i, j)
			for k := 0; k < s.k; k++ {
				key := Key{C: p.C, L1Ratio: p.L1Ratio, Split: k}
				w := records.weights[key]
				nz := len(nonZero(w))
				if nz == 0 {
					splitScores[k], splitZeroes[k] = math.NaN(), math.NaN()
					continue
				}
				splitScores[k] = records.scores[key]
				splitZeroes[k] = float64(len(w)-nz) / float64(s.nFeatures)
			}
			scores.Set(i, j, nanMean(splitScores))
			zeroes.Set(i, j, nanMean(splitZeroes))
			if math.IsNaN(scores.At(i, j)) {
				errors.Warn(errors.NewDegenerateFitWarning("ensemble", p.C, p.L1Ratio, -1))
			}
		}
	}

	combination, err := combine(scores, zeroes, s.grid.Size() > 1)
	if err != nil {
		return nil, err
	}
	return &TradeoffTables{
		L1Ratios:    append([]float64(nil), s.grid.L1Ratios...),
		C:           append([]float64(nil), s.grid.C...),
		Scores:      scores,
		Zeroes:      zeroes,
		Combination: combination,
	}, nil
}

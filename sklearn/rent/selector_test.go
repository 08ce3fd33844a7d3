package rent

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/rent/pkg/errors"
)

func TestSummarize_KnownValues(t *testing.T) {
	// K=4, columns: stable positive, mixed signs, never selected, constant
	weights := mat.NewDense(4, 4, []float64{
		1.0, 0.5, 0, 2,
		2.0, -0.5, 0, 2,
		3.0, 0.5, 0, 2,
		2.0, 0, 0, 2,
	})
	s := summarize([]string{"a", "b", "c", "d"}, weights)

	assert.Equal(t, []float64{1, 0.75, 0, 1}, s.Tau1())
	assert.Equal(t, []float64{1, 0.25, 0, 1}, s.Tau2())

	// 列0: mean=2, 母標準偏差=sqrt(0.5), t = 2/(sqrt(0.5)/2)
	tStat := 2 / (math.Sqrt(0.5) / 2)
	want := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 3}.CDF(tStat)
	tau3 := s.Tau3()
	assert.InDelta(t, want, tau3[0], 1e-12)
	assert.True(t, math.IsNaN(tau3[2]), "all-zero column has no t statistic")
	assert.Equal(t, 1.0, tau3[3], "zero spread around a non-zero mean")

	assert.Equal(t, []int{0, 3}, s.Select(0.9, 0.9, 0.975))
	assert.Equal(t, []string{"a", "b", "c", "d"}, s.FeatureNames)
}

func TestSummarize_SingleModel(t *testing.T) {
	s := summarize([]string{"a", "b"}, mat.NewDense(1, 2, []float64{0.3, 0}))
	assert.Equal(t, []float64{1, 0}, s.Tau1())
	assert.Equal(t, 1.0, s.Tau3()[0])
	assert.True(t, math.IsNaN(s.Tau3()[1]))
}

func randomWeights(seed uint64, k, n int) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, 0))
	w := mat.NewDense(k, n, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			// 列ごとに平均とスパース性を変える
			if rng.Float64() < float64(j)/float64(n) {
				continue
			}
			w.Set(i, j, float64(j%3-1)*0.5+rng.NormFloat64()*0.3)
		}
	}
	return w
}

func TestSummarize_Ranges(t *testing.T) {
	for seed := uint64(0); seed < 5; seed++ {
		s := summarize(make([]string, 12), randomWeights(seed, 30, 12))
		_, n := s.Tau.Dims()
		for j := 0; j < n; j++ {
			for row := 0; row < 3; row++ {
				v := s.Tau.At(row, j)
				if math.IsNaN(v) {
					continue
				}
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
			assert.LessOrEqual(t, s.Tau.At(1, j), s.Tau.At(0, j), "sign vote cannot exceed frequency")
		}
	}
}

func TestFeatureSelector_IdempotentAndMonotone(t *testing.T) {
	fs := newFeatureSelector(make([]string, 12), randomWeights(7, 40, 12))
	cutoffs := []float64{0, 0.25, 0.5, 0.75, 0.9, 1}

	for _, c := range cutoffs {
		first, err := fs.Select(c, c, c)
		require.NoError(t, err)
		second, err := fs.Select(c, c, c)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}

	size := func(t1, t2, t3 float64) int {
		sel, err := fs.Select(t1, t2, t3)
		require.NoError(t, err)
		return len(sel)
	}
	for i := 1; i < len(cutoffs); i++ {
		lo, hi := cutoffs[i-1], cutoffs[i]
		assert.LessOrEqual(t, size(hi, 0.5, 0.5), size(lo, 0.5, 0.5))
		assert.LessOrEqual(t, size(0.5, hi, 0.5), size(0.5, lo, 0.5))
		assert.LessOrEqual(t, size(0.5, 0.5, hi), size(0.5, 0.5, lo))
	}
}

func TestFeatureSelector_InvalidCutoffs(t *testing.T) {
	fs := newFeatureSelector([]string{"a"}, mat.NewDense(2, 1, []float64{1, 1}))
	for _, c := range [][3]float64{{-0.1, 0.5, 0.5}, {0.5, 1.1, 0.5}, {0.5, 0.5, math.NaN()}} {
		_, err := fs.Select(c[0], c[1], c[2])
		var ce *errors.ConfigurationError
		assert.True(t, errors.As(err, &ce), "cutoffs %v", c)
	}
}

func TestStudentsTCDF(t *testing.T) {
	assert.InDelta(t, 0.5, studentsTCDF(0, 5), 1e-12)
	assert.Equal(t, 1.0, studentsTCDF(math.Inf(1), 5))
	assert.Equal(t, 0.0, studentsTCDF(math.Inf(-1), 5))
	assert.True(t, math.IsNaN(studentsTCDF(1, 0)))
	assert.True(t, math.IsNaN(studentsTCDF(math.NaN(), 3)))
}

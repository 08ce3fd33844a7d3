package rent

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/rent/pkg/errors"
)

// Default cutoffs of SelectFeatures.
const (
	DefaultTau1 = 0.9
	DefaultTau2 = 0.9
	DefaultTau3 = 0.975
)

// SelectionSummary holds the three stability criteria per feature.
// Row 0 is tau_1 (selection frequency), row 1 tau_2 (sign vote) and row 2
// tau_3 (Student-t CDF of the mean weight).
type SelectionSummary struct {
	FeatureNames []string
	Tau          *mat.Dense
}

// Tau1 returns the selection frequencies.
func (s *SelectionSummary) Tau1() []float64 { return mat.Row(nil, 0, s.Tau) }

// Tau2 returns the sign votes.
func (s *SelectionSummary) Tau2() []float64 { return mat.Row(nil, 1, s.Tau) }

// Tau3 returns the t-test scores.
func (s *SelectionSummary) Tau3() []float64 { return mat.Row(nil, 2, s.Tau) }

// Select returns, in ascending order, the features meeting all three
// cutoffs. NaN criteria never pass.
func (s *SelectionSummary) Select(tau1, tau2, tau3 float64) []int {
	_, n := s.Tau.Dims()
	selected := []int{}
	for j := 0; j < n; j++ {
		if s.Tau.At(0, j) >= tau1 && s.Tau.At(1, j) >= tau2 && s.Tau.At(2, j) >= tau3 {
			selected = append(selected, j)
		}
	}
	return selected
}

// summarize computes the criteria from a K×N weight matrix.
func summarize(names []string, weights *mat.Dense) *SelectionSummary {
	k, n := weights.Dims()
	tau := mat.NewDense(3, n, nil)
	col := make([]float64, k)
	for j := 0; j < n; j++ {
		mat.Col(col, j, weights)

		var nonZero int
		var signs float64
		for _, w := range col {
			if w != 0 {
				nonZero++
			}
			signs += sign(w)
		}
		tau.Set(0, j, float64(nonZero)/float64(k))
		tau.Set(1, j, math.Abs(signs)/float64(k))

		mean, std := stat.PopMeanStdDev(col, nil)
		tau.Set(2, j, tTestScore(mean, std, k))
	}
	return &SelectionSummary{FeatureNames: append([]string(nil), names...), Tau: tau}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// tTestScore is the Student-t CDF (K-1 degrees of freedom) of
// |mean| / (std / sqrt(K)). A column of zeros has no statistic and yields
// NaN; zero spread around a non-zero mean yields 1.
func tTestScore(mean, std float64, k int) float64 {
	if std == 0 {
		if mean == 0 {
			return math.NaN()
		}
		return 1
	}
	t := math.Abs(mean) / (std / math.Sqrt(float64(k)))
	return studentsTCDF(t, k-1)
}

func studentsTCDF(t float64, df int) float64 {
	if math.IsNaN(t) || df < 1 {
		return math.NaN()
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}.CDF(t)
}

// FeatureSelector applies the tau cutoffs to the weights of one
// combination. The summary is computed once and reused.
type FeatureSelector struct {
	names   []string
	weights *mat.Dense
	summary *SelectionSummary
}

func newFeatureSelector(names []string, weights *mat.Dense) *FeatureSelector {
	return &FeatureSelector{names: names, weights: weights}
}

// Summary returns the criteria table.
func (f *FeatureSelector) Summary() *SelectionSummary {
	if f.summary == nil {
		f.summary = summarize(f.names, f.weights)
	}
	return f.summary
}

// Select validates the cutoffs and returns the selected feature indices.
func (f *FeatureSelector) Select(tau1, tau2, tau3 float64) ([]int, error) {
	for _, c := range []struct {
		name  string
		value float64
	}{{"tau_1_cutoff", tau1}, {"tau_2_cutoff", tau2}, {"tau_3_cutoff", tau3}} {
		if !(c.value >= 0 && c.value <= 1) {
			return nil, errors.NewConfigurationError(c.name, "must be in [0, 1]", c.value)
		}
	}
	return f.Summary().Select(tau1, tau2, tau3), nil
}

package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/core/model"
	"github.com/YuminosukeSato/rent/pkg/errors"
)

// PolynomialFeatures expands X with all degree-2 terms. The output columns
// are the original features followed by the products x_i*x_j for i <= j
// (i < j when InteractionOnly), in lexicographic order. No bias column.
type PolynomialFeatures struct {
	state *model.StateManager

	// InteractionOnly drops the squared terms x_i^2.
	InteractionOnly bool
}

var _ model.Transformer = (*PolynomialFeatures)(nil)

// NewPolynomialFeatures creates a degree-2 expansion.
func NewPolynomialFeatures(interactionOnly bool) *PolynomialFeatures {
	return &PolynomialFeatures{
		state:           model.NewStateManager(),
		InteractionOnly: interactionOnly,
	}
}

// Fit records the number of input features.
func (p *PolynomialFeatures) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("PolynomialFeatures.Fit", "empty data", errors.ErrEmptyData)
	}
	p.state.SetFitted(c, r)
	return nil
}

// NOutputFeatures returns the number of columns Transform produces.
func (p *PolynomialFeatures) NOutputFeatures() int {
	n, _ := p.state.GetDimensions()
	return n + len(p.pairs(n))
}

func (p *PolynomialFeatures) pairs(n int) [][2]int {
	var out [][2]int
	for i := 0; i < n; i++ {
		start := i
		if p.InteractionOnly {
			start = i + 1
		}
		for j := start; j < n; j++ {
			out = append(out, [2]int{i, j})
		}
	}
	return out
}

// Transform appends the product columns to X.
func (p *PolynomialFeatures) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := p.state.RequireFeatures("PolynomialFeatures", "Transform", c); err != nil {
		return nil, err
	}
	pairs := p.pairs(c)
	out := mat.NewDense(r, c+len(pairs), nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(i, j))
		}
		for k, pr := range pairs {
			out.Set(i, c+k, X.At(i, pr[0])*X.At(i, pr[1]))
		}
	}
	return out, nil
}

// FitTransform fits and transforms X.
func (p *PolynomialFeatures) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// FeatureNames names the output columns. Squares are "a^2", products "a*b".
func (p *PolynomialFeatures) FeatureNames(input []string) ([]string, error) {
	n, _ := p.state.GetDimensions()
	if err := p.state.RequireFeatures("PolynomialFeatures", "FeatureNames", len(input)); err != nil {
		return nil, err
	}
	names := append([]string(nil), input...)
	for _, pr := range p.pairs(n) {
		if pr[0] == pr[1] {
			names = append(names, input[pr[0]]+"^2")
			continue
		}
		names = append(names, input[pr[0]]+"*"+input[pr[1]])
	}
	return names, nil
}

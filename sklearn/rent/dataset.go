package rent

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/preprocessing"
)

// Dataset is the training data after feature expansion. Rows of X and Y
// stay aligned; SampleIDs name the rows and key every prediction record.
type Dataset struct {
	X            *mat.Dense
	Y            *mat.VecDense
	SampleIDs    []string
	FeatureNames []string
}

// NSamples returns I.
func (d *Dataset) NSamples() int { return d.Y.Len() }

// NFeatures returns N.
func (d *Dataset) NFeatures() int {
	_, c := d.X.Dims()
	return c
}

// newDataset validates the raw input and applies the poly expansion.
// The returned transformer is nil when poly is off.
func newDataset(X mat.Matrix, y *mat.VecDense, task Task, cfg *Config) (*Dataset, *preprocessing.PolynomialFeatures, error) {
	if X == nil || y == nil {
		return nil, nil, errors.NewValueError("rent.New", "data and target are required")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil, errors.NewModelError("rent.New", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != rows {
		return nil, nil, errors.NewDimensionError("rent.New", rows, y.Len(), 0)
	}
	if err := checkFinite("rent.New", X, y); err != nil {
		return nil, nil, err
	}
	if task == Classification {
		if err := checkBinary("rent.New", y); err != nil {
			return nil, nil, err
		}
	}

	names := cfg.FeatureNames
	if len(names) == 0 {
		names = make([]string, cols)
		for j := range names {
			names[j] = "f" + strconv.Itoa(j+1)
		}
	} else if len(names) != cols {
		return nil, nil, errors.NewConfigurationError("feat_names",
			fmt.Sprintf("expected %d names", cols), len(names))
	}

	ids := cfg.SampleIDs
	if len(ids) == 0 {
		ids = make([]string, rows)
		for i := range ids {
			ids[i] = strconv.Itoa(i)
		}
	} else if len(ids) != rows {
		return nil, nil, errors.NewConfigurationError("sample_ids",
			fmt.Sprintf("expected %d ids", rows), len(ids))
	}
	seen := make(map[string]bool, rows)
	for _, id := range ids {
		if seen[id] {
			return nil, nil, errors.NewConfigurationError("sample_ids", "ids must be unique", id)
		}
		seen[id] = true
	}

	data := &Dataset{
		X:            mat.DenseCopyOf(X),
		Y:            mat.VecDenseCopyOf(y),
		SampleIDs:    append([]string(nil), ids...),
		FeatureNames: append([]string(nil), names...),
	}
	if cfg.Poly == PolyOff {
		return data, nil, nil
	}

	poly := preprocessing.NewPolynomialFeatures(cfg.Poly == PolyInteractionsOnly)
	expanded, err := poly.FitTransform(data.X)
	if err != nil {
		return nil, nil, err
	}
	expandedNames, err := poly.FeatureNames(data.FeatureNames)
	if err != nil {
		return nil, nil, err
	}
	data.X = expanded
	data.FeatureNames = expandedNames
	return data, poly, nil
}

func checkBinary(op string, y *mat.VecDense) error {
	var pos, neg int
	for i := 0; i < y.Len(); i++ {
		switch y.AtVec(i) {
		case 0:
			neg++
		case 1:
			pos++
		default:
			return errors.NewValueError(op, fmt.Sprintf("labels must be 0 or 1, got %g", y.AtVec(i)))
		}
	}
	if pos == 0 || neg == 0 {
		return errors.NewValueError(op, "both classes must be present")
	}
	return nil
}

// subset returns the given rows of X and y.
func subset(X *mat.Dense, y *mat.VecDense, rows []int) (*mat.Dense, *mat.VecDense) {
	_, c := X.Dims()
	xs := mat.NewDense(len(rows), c, nil)
	ys := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		xs.SetRow(i, X.RawRowView(r))
		ys.SetVec(i, y.AtVec(r))
	}
	return xs, ys
}

// columns returns the given columns of X.
func columns(X *mat.Dense, cols []int) *mat.Dense {
	r, _ := X.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for j, c := range cols {
		for i := 0; i < r; i++ {
			out.Set(i, j, X.At(i, c))
		}
	}
	return out
}

// standardize scales train and test with the statistics of train. With
// scale off both are returned unchanged.
func standardize(train, test *mat.Dense, scale bool) (*mat.Dense, *mat.Dense, error) {
	if !scale {
		return train, test, nil
	}
	sc := preprocessing.NewStandardScalerDefault()
	trainStd, err := sc.FitTransform(train)
	if err != nil {
		return nil, nil, err
	}
	testStd, err := sc.Transform(test)
	if err != nil {
		return nil, nil, err
	}
	return trainStd, testStd, nil
}

// nonZero returns the indices of the non-zero entries of w.
func nonZero(w []float64) []int {
	var idx []int
	for j, v := range w {
		if v != 0 {
			idx = append(idx, j)
		}
	}
	return idx
}

// checkFinite rejects NaN and ±Inf in X and y.
func checkFinite(op string, X mat.Matrix, y *mat.VecDense) error {
	rows, cols := X.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := X.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValueError(op, fmt.Sprintf("data must be finite, got %g at row %d column %d", v, i, j))
			}
		}
	}
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValueError(op, fmt.Sprintf("target must be finite, got %g at row %d", v, i))
		}
	}
	return nil
}

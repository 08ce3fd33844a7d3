package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/pkg/errors"
)

// FoldSplitter produces cross-validation folds over the rows of y.
type FoldSplitter interface {
	Split(y *mat.VecDense) ([]Split, error)
	GetNSplits() int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int64) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first n%k folds
// hold one extra row.
func (kf *KFold) Split(y *mat.VecDense) ([]Split, error) {
	n := y.Len()
	if err := checkFolds(kf.NSplits, n); err != nil {
		return nil, err
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		shuffle(NewRand(kf.RandomSeed, CVStream), indices)
	}

	folds := make([]Split, kf.NSplits)
	foldSize, remainder := n/kf.NSplits, n%kf.NSplits
	current := 0
	for i := range folds {
		size := foldSize
		if i < remainder {
			size++
		}
		test := append([]int(nil), indices[current:current+size]...)
		sort.Ints(test)
		folds[i] = Split{Index: i, TestSize: float64(size) / float64(n), Test: test, Train: complement(n, test)}
		current += size
	}
	return folds, nil
}

// StratifiedKFold implements stratified k-fold cross-validation
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int64) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified folds. Rows of each label are dealt
// round-robin over the folds, continuing where the previous label stopped,
// so fold sizes differ by at most one.
func (skf *StratifiedKFold) Split(y *mat.VecDense) ([]Split, error) {
	n := y.Len()
	if err := checkFolds(skf.NSplits, n); err != nil {
		return nil, err
	}

	labels, groups := groupByLabel(y)
	var rng *rand.Rand
	if skf.Shuffle {
		rng = NewRand(skf.RandomSeed, CVStream)
	}

	tests := make([][]int, skf.NSplits)
	next := 0
	for _, label := range labels {
		rows := groups[label]
		if rng != nil {
			shuffle(rng, rows)
		}
		for _, r := range rows {
			tests[next] = append(tests[next], r)
			next = (next + 1) % skf.NSplits
		}
	}

	folds := make([]Split, skf.NSplits)
	for i, test := range tests {
		sort.Ints(test)
		folds[i] = Split{Index: i, TestSize: float64(len(test)) / float64(n), Test: test, Train: complement(n, test)}
	}
	return folds, nil
}

func checkFolds(nSplits, n int) error {
	if nSplits < 2 {
		return errors.NewConfigurationError("n_splits", "must be at least 2", nSplits)
	}
	if nSplits > n {
		return errors.NewValueError("KFold.Split",
			fmt.Sprintf("cannot have n_splits=%d greater than the number of samples %d", nSplits, n))
	}
	return nil
}

func shuffle(rng *rand.Rand, rows []int) {
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
}

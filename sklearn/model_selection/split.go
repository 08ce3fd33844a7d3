package model_selection

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/core/parallel"
	"github.com/YuminosukeSato/rent/pkg/errors"
)

// Split is one train/test partition of the sample rows. Train and Test are
// disjoint, cover every row, and are sorted ascending.
type Split struct {
	Index    int
	TestSize float64
	Train    []int
	Test     []int
}

// TestCount returns the number of test rows for a fraction of n rows:
// ceil(testSize*n) clamped to [1, n-1].
func TestCount(testSize float64, n int) int {
	// 浮動小数点誤差で1つ多くならないようにする
	count := int(math.Ceil(testSize*float64(n) - 1e-9))
	return min(max(count, 1), n-1)
}

// ShuffleSplit partitions the rows of y at random. With stratify, y holds
// class labels and each label contributes to the test set in proportion to
// its frequency (largest remainder); every label keeps at least one row in
// the training set.
func ShuffleSplit(y *mat.VecDense, testSize float64, stratify bool, rng *rand.Rand) (Split, error) {
	n := y.Len()
	if n < 2 {
		return Split{}, errors.NewValueError("ShuffleSplit", "need at least 2 samples to split")
	}
	nTest := TestCount(testSize, n)

	var test []int
	if !stratify {
		test = rng.Perm(n)[:nTest]
	} else {
		labels, groups := groupByLabel(y)
		quotas := allocate(nTest, n, labels, groups)
		for _, label := range labels {
			rows := groups[label]
			rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
			test = append(test, rows[:quotas[label]]...)
		}
		if len(test) == 0 {
			return Split{}, errors.NewValueError("ShuffleSplit",
				"every label has a single sample; cannot build a stratified test set")
		}
	}

	split := Split{TestSize: testSize, Test: test}
	split.Train = complement(n, test)
	sort.Ints(split.Test)
	return split, nil
}

// Resample materializes one split per entry of testSizes. Split k draws
// from NewRand(seed, k) and the splits are built concurrently.
func Resample(y *mat.VecDense, testSizes []float64, stratify bool, seed int64) ([]Split, error) {
	splits := make([]Split, len(testSizes))
	err := parallel.Collect(len(testSizes), 0,
		func(k int) (Split, error) {
			s, err := ShuffleSplit(y, testSizes[k], stratify, NewRand(seed, uint64(k)))
			s.Index = k
			return s, err
		},
		func(k int, s Split) { splits[k] = s },
	)
	if err != nil {
		return nil, err
	}
	return splits, nil
}

// groupByLabel returns the sorted distinct labels and the rows of each.
func groupByLabel(y *mat.VecDense) ([]float64, map[float64][]int) {
	groups := make(map[float64][]int)
	for i := 0; i < y.Len(); i++ {
		groups[y.AtVec(i)] = append(groups[y.AtVec(i)], i)
	}
	labels := make([]float64, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Float64s(labels)
	return labels, groups
}

// allocate splits nTest test rows across labels by largest remainder, capped
// at size-1 per label. Rows a capped label cannot take go to labels with
// spare capacity, largest first.
func allocate(nTest, n int, labels []float64, groups map[float64][]int) map[float64]int {
	type share struct {
		label float64
		quota int
		frac  float64
		room  int
	}
	shares := make([]share, len(labels))
	assigned := 0
	for i, label := range labels {
		exact := float64(nTest) * float64(len(groups[label])) / float64(n)
		q := int(math.Floor(exact))
		shares[i] = share{label: label, quota: q, frac: exact - float64(q), room: len(groups[label]) - 1}
		assigned += q
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case shares[a].frac > shares[b].frac:
			return -1
		case shares[a].frac < shares[b].frac:
			return 1
		}
		return 0
	})
	for _, i := range order {
		if assigned >= nTest {
			break
		}
		shares[i].quota++
		assigned++
	}

	// 各ラベルは訓練データに最低1件残す
	overflow := 0
	for i := range shares {
		if shares[i].quota > shares[i].room {
			overflow += shares[i].quota - shares[i].room
			shares[i].quota = shares[i].room
		}
	}
	for overflow > 0 {
		best := -1
		for i := range shares {
			spare := shares[i].room - shares[i].quota
			if spare > 0 && (best < 0 || spare > shares[best].room-shares[best].quota) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		shares[best].quota++
		overflow--
	}

	quotas := make(map[float64]int, len(shares))
	for _, s := range shares {
		quotas[s.label] = s.quota
	}
	return quotas
}

func complement(n int, rows []int) []int {
	taken := make([]bool, n)
	for _, r := range rows {
		taken[r] = true
	}
	out := make([]int, 0, n-len(rows))
	for i := 0; i < n; i++ {
		if !taken[i] {
			out = append(out, i)
		}
	}
	return out
}

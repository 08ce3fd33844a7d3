// Package model_selection builds the randomized train/test partitions and
// cross-validation folds used by the feature-selection ensemble.
//
// All randomness goes through NewRand so that the stream of split k depends
// only on (seed, k) and never on scheduling order.
package model_selection

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/rent/pkg/errors"
)

// Reserved streams. Split indices use streams 0..K-1, so the named streams
// live at the top of the uint64 range.
const (
	TestSizeStream uint64 = 1<<63 + iota
	VS1Stream
	VS2Stream
	CVStream
)

// NewRand returns a PCG generator for (seed, stream). A negative seed means
// "unseeded": the generator is keyed from fresh entropy.
func NewRand(seed int64, stream uint64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()^stream))
	}
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

// RandomTestSizes draws k test fractions uniformly from [low, high].
// All k values are drawn up front from TestSizeStream.
func RandomTestSizes(k int, low, high float64, seed int64) ([]float64, error) {
	if k < 1 {
		return nil, errors.NewConfigurationError("K", "must be at least 1", k)
	}
	if !(low > 0 && high < 1 && low <= high) {
		return nil, errors.NewConfigurationError("testsize_range",
			"must satisfy 0 < low <= high < 1", [2]float64{low, high})
	}
	rng := NewRand(seed, TestSizeStream)
	sizes := make([]float64, k)
	for i := range sizes {
		sizes[i] = low + rng.Float64()*(high-low)
	}
	return sizes, nil
}

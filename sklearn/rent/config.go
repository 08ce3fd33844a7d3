package rent

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/rent/linear"
	"github.com/YuminosukeSato/rent/metrics"
	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/pkg/log"
)

// PolyMode controls degree-2 feature expansion before training.
type PolyMode string

const (
	PolyOff              PolyMode = "off"
	PolyOn               PolyMode = "on"
	PolyInteractionsOnly PolyMode = "on_only_interactions"
)

// smallEnsemble is the K below which a SmallEnsembleWarning is emitted.
const smallEnsemble = 10

// Config holds every setting of a RENT run. Build it with Options; the
// constructors validate it before any data is touched.
type Config struct {
	C              []float64
	L1Ratios       []float64
	AutoEnetParSel bool
	Poly           PolyMode
	TestSizeRange  [2]float64
	Scoring        string
	Classifier     string
	K              int
	Scale          bool
	// RandomState < 0 means unseeded.
	RandomState int64
	CVSplits    int

	FeatureNames []string
	SampleIDs    []string

	// Workers bounds the task pool; < 1 means one per CPU.
	Workers  int
	Logger   log.Logger
	Provider linear.Provider
}

// Option は設定オプション
type Option func(*Config)

func defaultConfig(task Task) Config {
	cfg := Config{
		C:              []float64{1, 10},
		L1Ratios:       []float64{0.6},
		AutoEnetParSel: true,
		Poly:           PolyOff,
		TestSizeRange:  [2]float64{0.2, 0.6},
		K:              100,
		Scale:          true,
		RandomState:    -1,
		CVSplits:       5,
	}
	if task == Classification {
		cfg.Scoring = "accuracy"
		cfg.Classifier = "logreg"
	} else {
		cfg.Scoring = "r2"
		cfg.Classifier = "enet"
	}
	return cfg
}

// WithC sets the inverse regularization strengths of the grid.
func WithC(c ...float64) Option {
	return func(cfg *Config) { cfg.C = append([]float64(nil), c...) }
}

// WithL1Ratios sets the elastic-net mixing ratios of the grid.
func WithL1Ratios(ratios ...float64) Option {
	return func(cfg *Config) { cfg.L1Ratios = append([]float64(nil), ratios...) }
}

// WithAutoEnetParSel enables cross-validated pre-selection of (C, l1_ratio).
func WithAutoEnetParSel(enabled bool) Option {
	return func(cfg *Config) { cfg.AutoEnetParSel = enabled }
}

// WithPoly sets the feature expansion mode.
func WithPoly(mode PolyMode) Option {
	return func(cfg *Config) { cfg.Poly = mode }
}

// WithTestSizeRange sets the range test fractions are drawn from.
// Use low == high for a fixed test size.
func WithTestSizeRange(low, high float64) Option {
	return func(cfg *Config) { cfg.TestSizeRange = [2]float64{low, high} }
}

// WithScoring sets the held-out metric of the ensemble.
func WithScoring(name string) Option {
	return func(cfg *Config) { cfg.Scoring = name }
}

// WithClassifier sets the model family.
func WithClassifier(name string) Option {
	return func(cfg *Config) { cfg.Classifier = name }
}

// WithK sets the number of train/test splits.
func WithK(k int) Option {
	return func(cfg *Config) { cfg.K = k }
}

// WithScale toggles per-split standardization.
func WithScale(scale bool) Option {
	return func(cfg *Config) { cfg.Scale = scale }
}

// WithRandomState fixes the seed. Negative values leave the run unseeded.
func WithRandomState(seed int64) Option {
	return func(cfg *Config) { cfg.RandomState = seed }
}

// WithCVSplits sets the number of folds of the pre-selection.
func WithCVSplits(n int) Option {
	return func(cfg *Config) { cfg.CVSplits = n }
}

// WithFeatureNames names the input columns. Defaults to f1..fN.
func WithFeatureNames(names []string) Option {
	return func(cfg *Config) { cfg.FeatureNames = append([]string(nil), names...) }
}

// WithSampleIDs names the rows. Defaults to "0".."I-1".
func WithSampleIDs(ids []string) Option {
	return func(cfg *Config) { cfg.SampleIDs = append([]string(nil), ids...) }
}

// WithWorkers bounds the number of concurrent fits.
func WithWorkers(n int) Option {
	return func(cfg *Config) { cfg.Workers = n }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(cfg *Config) { cfg.Logger = logger }
}

// WithProvider replaces the built-in linear model provider.
func WithProvider(p linear.Provider) Option {
	return func(cfg *Config) { cfg.Provider = p }
}

// validate checks every setting and returns the first violation.
func (cfg *Config) validate(task Task) error {
	if len(cfg.C) == 0 {
		return errors.NewConfigurationError("C", "at least one value is required", cfg.C)
	}
	for _, c := range cfg.C {
		if !(c > 0) || math.IsInf(c, 1) {
			return errors.NewConfigurationError("C", "values must be positive and finite", c)
		}
	}
	if len(cfg.L1Ratios) == 0 {
		return errors.NewConfigurationError("l1_ratios", "at least one value is required", cfg.L1Ratios)
	}
	for _, l1 := range cfg.L1Ratios {
		if !(l1 >= 0 && l1 <= 1) {
			return errors.NewConfigurationError("l1_ratios", "values must be in [0, 1]", l1)
		}
	}
	if err := unique("C", cfg.C); err != nil {
		return err
	}
	if err := unique("l1_ratios", cfg.L1Ratios); err != nil {
		return err
	}
	switch cfg.Poly {
	case PolyOff, PolyOn, PolyInteractionsOnly:
	default:
		return errors.NewConfigurationError("poly", "must be off, on or on_only_interactions", cfg.Poly)
	}
	low, high := cfg.TestSizeRange[0], cfg.TestSizeRange[1]
	if !(low > 0 && high < 1 && low <= high) {
		return errors.NewConfigurationError("testsize_range", "must satisfy 0 < low <= high < 1", cfg.TestSizeRange)
	}
	if cfg.K < 1 {
		return errors.NewConfigurationError("K", "must be at least 1", cfg.K)
	}
	if cfg.AutoEnetParSel && cfg.CVSplits < 2 {
		return errors.NewConfigurationError("n_splits", "must be at least 2", cfg.CVSplits)
	}
	if _, err := scorerFor(task, cfg.Scoring); err != nil {
		return err
	}
	return checkClassifier(task, cfg.Classifier)
}

func unique(param string, values []float64) error {
	seen := make(map[float64]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return errors.NewConfigurationError(param, "values must be distinct", v)
		}
		seen[v] = true
	}
	return nil
}

func scorerFor(task Task, name string) (metrics.ScoreFunc, error) {
	if task == Classification {
		if fn, ok := metrics.ClassificationScorer(name); ok {
			return fn, nil
		}
		return nil, errors.NewConfigurationError("scoring",
			"must be accuracy, f1, precision, recall or mcc", name)
	}
	if fn, ok := metrics.RegressionScorer(name); ok {
		return fn, nil
	}
	return nil, errors.NewConfigurationError("scoring", "must be r2", name)
}

// Model families known to the library. A known family used with the wrong
// task, or one without a provider, is unsupported rather than invalid.
var knownClassifiers = map[string]bool{"logreg": true, "linsvc": true, "enet": true}

func checkClassifier(task Task, name string) error {
	if !knownClassifiers[name] {
		return errors.NewConfigurationError("classifier", "must be logreg, linsvc or enet", name)
	}
	supported := (task == Classification && name == "logreg") || (task == Regression && name == "enet")
	if !supported {
		return errors.NewUnsupportedClassifierError(name, task.String())
	}
	return nil
}

func (cfg *Config) String() string {
	return fmt.Sprintf("RENT(C=%v, l1_ratios=%v, K=%d, poly=%s, scale=%t, autoEnetParSel=%t)",
		cfg.C, cfg.L1Ratios, cfg.K, cfg.Poly, cfg.Scale, cfg.AutoEnetParSel)
}

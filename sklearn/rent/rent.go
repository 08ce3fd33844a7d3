package rent

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rent/core/model"
	"github.com/YuminosukeSato/rent/pkg/errors"
	"github.com/YuminosukeSato/rent/pkg/log"
	"github.com/YuminosukeSato/rent/preprocessing"
	"github.com/YuminosukeSato/rent/sklearn/model_selection"
)

// RENT is a repeated elastic-net feature selector for one dataset.
//
// Typical use:
//
//	r, err := rent.NewClassification(X, y, rent.WithC(0.1, 1, 10), rent.WithK(100))
//	if err != nil { ... }
//	if err := r.Train(); err != nil { ... }
//	selected, err := r.SelectFeatures(rent.DefaultTau1, rent.DefaultTau2, rent.DefaultTau3)
//
// A RENT is not safe for concurrent use; Train parallelizes internally.
type RENT struct {
	task   Task
	cfg    Config
	caps   capability
	data   *Dataset
	poly   *preprocessing.PolynomialFeatures
	logger log.Logger
	state  *model.StateManager

	grid     Grid
	splits   []model_selection.Split
	records  *Records
	tables   *TradeoffTables
	cvTables *TradeoffTables
	best     ParamKey
	runtime  time.Duration

	selector *FeatureSelector
	selected []int
}

// NewClassification validates the configuration and data of a binary
// classification run. y must hold 0/1 labels with both classes present.
func NewClassification(X mat.Matrix, y *mat.VecDense, opts ...Option) (*RENT, error) {
	return newRENT(Classification, X, y, opts)
}

// NewRegression validates the configuration and data of a regression run.
func NewRegression(X mat.Matrix, y *mat.VecDense, opts ...Option) (*RENT, error) {
	return newRENT(Regression, X, y, opts)
}

func newRENT(task Task, X mat.Matrix, y *mat.VecDense, opts []Option) (*RENT, error) {
	cfg := defaultConfig(task)
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(task); err != nil {
		return nil, err
	}
	caps, err := newCapability(task, &cfg)
	if err != nil {
		return nil, err
	}
	data, poly, err := newDataset(X, y, task, &cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("sklearn.rent")
	}
	logger = logger.With(log.TaskKey, task.String())

	if cfg.K < smallEnsemble {
		errors.Warn(errors.NewSmallEnsembleWarning(cfg.K, smallEnsemble))
	}

	return &RENT{
		task:   task,
		cfg:    cfg,
		caps:   caps,
		data:   data,
		poly:   poly,
		logger: logger,
		state:  model.NewStateManager(),
		grid:   Grid{C: cfg.C, L1Ratios: cfg.L1Ratios},
	}, nil
}

// Train runs the optional pre-selection, the ensemble and the scorer.
// Calling Train again retrains from scratch and clears any selection.
func (r *RENT) Train() error {
	start := time.Now()
	r.reset()
	r.logger.Info("RENT training started", "config", r.cfg.String(), log.RandomSeedKey, r.cfg.RandomState)

	grid := Grid{C: r.cfg.C, L1Ratios: r.cfg.L1Ratios}
	preselected := false
	if r.cfg.AutoEnetParSel && grid.Size() > 1 {
		hs := &HyperparameterSelector{
			caps:    r.caps,
			data:    r.data,
			scale:   r.cfg.Scale,
			nSplits: r.cfg.CVSplits,
			seed:    r.cfg.RandomState,
			workers: r.cfg.Workers,
			logger:  r.logger,
		}
		best, cvTables, err := hs.Select(grid)
		if err != nil {
			return errors.Wrap(err, "hyperparameter pre-selection")
		}
		r.cvTables = cvTables
		r.best = best
		grid = Grid{C: []float64{best.C}, L1Ratios: []float64{best.L1Ratio}}
		preselected = true
	}
	r.grid = grid

	sizes, err := model_selection.RandomTestSizes(r.cfg.K, r.cfg.TestSizeRange[0], r.cfg.TestSizeRange[1], r.cfg.RandomState)
	if err != nil {
		return err
	}
	splits, err := model_selection.Resample(r.data.Y, sizes, r.caps.stratify, r.cfg.RandomState)
	if err != nil {
		return err
	}

	trainer := &EnsembleTrainer{
		caps:    r.caps,
		data:    r.data,
		scale:   r.cfg.Scale,
		workers: r.cfg.Workers,
		logger:  r.logger,
	}
	records, err := trainer.Train(grid, splits)
	if err != nil {
		return err
	}

	scorer := &SelectionScorer{grid: grid, k: r.cfg.K, nFeatures: r.data.NFeatures()}
	tables, err := scorer.Score(records)
	if err != nil {
		return err
	}
	if !preselected {
		if r.best, err = tables.Best(); err != nil {
			return err
		}
	}

	r.splits = splits
	r.records = records
	r.tables = tables
	r.selector = newFeatureSelector(r.data.FeatureNames, records.weightMatrix(r.best, r.cfg.K, r.data.NFeatures()))
	r.runtime = time.Since(start)
	r.state.SetFitted(r.data.NFeatures(), r.data.NSamples())

	r.logger.Info("RENT training completed",
		log.CKey, r.best.C, log.L1RatioKey, r.best.L1Ratio,
		log.DurationMsKey, r.runtime.Milliseconds(),
	)
	return nil
}

func (r *RENT) reset() {
	r.state.Reset()
	r.records, r.tables, r.cvTables = nil, nil, nil
	r.splits = nil
	r.selector, r.selected = nil, nil
	r.best = ParamKey{}
}

func (r *RENT) requireTrained(op string) error {
	if !r.state.IsFitted() {
		return errors.NewNotTrainedError(op)
	}
	return nil
}

func (r *RENT) requireSelected(op string) error {
	if err := r.requireTrained(op); err != nil {
		return err
	}
	if r.selected == nil {
		return errors.NewNotSelectedError(op)
	}
	return nil
}

// Task returns the kind of run.
func (r *RENT) Task() Task { return r.task }

// Data returns the training data after feature expansion.
func (r *RENT) Data() *Dataset { return r.data }

// FeatureNames returns the names of the (expanded) features.
func (r *RENT) FeatureNames() []string { return append([]string(nil), r.data.FeatureNames...) }

// Records returns the ensemble records.
func (r *RENT) Records() (*Records, error) {
	if err := r.requireTrained("Records"); err != nil {
		return nil, err
	}
	return r.records, nil
}

// Splits returns the train/test partitions of the ensemble.
func (r *RENT) Splits() ([]model_selection.Split, error) {
	if err := r.requireTrained("Splits"); err != nil {
		return nil, err
	}
	return append([]model_selection.Split(nil), r.splits...), nil
}

// SelectFeatures applies the cutoffs to the weights of the chosen
// combination. The result is sorted and remembered for later calls to
// SummaryCriteria and ValidationStudy.
func (r *RENT) SelectFeatures(tau1, tau2, tau3 float64) ([]int, error) {
	if err := r.requireTrained("SelectFeatures"); err != nil {
		return nil, err
	}
	selected, err := r.selector.Select(tau1, tau2, tau3)
	if err != nil {
		return nil, err
	}
	r.selected = selected
	r.logger.Debug("Features selected", log.SelectedKey, len(selected),
		"tau_1", tau1, "tau_2", tau2, "tau_3", tau3)
	return append([]int(nil), selected...), nil
}

// SelectedFeatures returns the last selection.
func (r *RENT) SelectedFeatures() ([]int, error) {
	if err := r.requireSelected("SelectedFeatures"); err != nil {
		return nil, err
	}
	return append([]int(nil), r.selected...), nil
}

// SummaryCriteria returns tau_1, tau_2 and tau_3 of every feature.
func (r *RENT) SummaryCriteria() (*SelectionSummary, error) {
	if err := r.requireSelected("SummaryCriteria"); err != nil {
		return nil, err
	}
	return r.selector.Summary(), nil
}

// EnetParamMatrices returns the ensemble tradeoff tables. After
// pre-selection they cover only the chosen combination.
func (r *RENT) EnetParamMatrices() (*TradeoffTables, error) {
	if err := r.requireTrained("EnetParamMatrices"); err != nil {
		return nil, err
	}
	return r.tables, nil
}

// CVMatrices returns the cross-validated tables of the pre-selection, or
// false when no pre-selection ran.
func (r *RENT) CVMatrices() (*TradeoffTables, bool) {
	return r.cvTables, r.cvTables != nil
}

// EnetParams returns the combination used by the selection methods.
func (r *RENT) EnetParams() (ParamKey, error) {
	if err := r.requireTrained("EnetParams"); err != nil {
		return ParamKey{}, err
	}
	return r.best, nil
}

// SetEnetParams switches the selection methods to another trained
// combination. The cached summary and selection are dropped.
func (r *RENT) SetEnetParams(c, l1Ratio float64) error {
	if err := r.requireTrained("SetEnetParams"); err != nil {
		return err
	}
	p := ParamKey{C: c, L1Ratio: l1Ratio}
	if !r.grid.Contains(p) {
		return errors.NewConfigurationError("enet_params",
			"no ensemble was trained for this combination", p)
	}
	r.best = p
	r.selector = newFeatureSelector(r.data.FeatureNames, r.records.weightMatrix(p, r.cfg.K, r.data.NFeatures()))
	r.selected = nil
	return nil
}

// Runtime returns the wall time of the last Train.
func (r *RENT) Runtime() (time.Duration, error) {
	if err := r.requireTrained("Runtime"); err != nil {
		return 0, err
	}
	return r.runtime, nil
}

// ValidationStudy tests the current selection against random feature
// subsets (VS1) and permuted labels (VS2). testX is given in the raw input
// space; the poly expansion of training is applied to it.
func (r *RENT) ValidationStudy(testX mat.Matrix, testY *mat.VecDense, numDrawings, numPermutations int, opts ...ValidationOption) (*ValidationResult, error) {
	if err := r.requireSelected("ValidationStudy"); err != nil {
		return nil, err
	}
	if testX == nil {
		return nil, errors.NewValueError("ValidationStudy", "test data is required")
	}
	x := mat.DenseCopyOf(testX)
	if r.poly != nil {
		var err error
		if x, err = r.poly.Transform(x); err != nil {
			return nil, err
		}
	}
	study := &ValidationStudy{
		caps:    r.caps,
		train:   r.data,
		scale:   r.cfg.Scale,
		workers: r.cfg.Workers,
		logger:  r.logger,
	}
	return study.Run(x, testY, r.selected, numDrawings, numPermutations, opts...)
}

func (r *RENT) String() string {
	return r.task.String() + " " + r.cfg.String()
}

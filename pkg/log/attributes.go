package log

// Model and operation context.
const (
	// ComponentKey identifies the package or stage emitting the record.
	// Examples: "sklearn.rent.ensemble", "sklearn.rent.parsel"
	ComponentKey = "ml.component"

	// ModelNameKey identifies the type of model being fitted.
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// PhaseKey indicates the lifecycle phase.
	PhaseKey = "ml.phase"

	// TaskKey is "classification" or "regression".
	TaskKey = "ml.task"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	SelectedKey = "data.selected_features"
)

// Performance and metrics.
const (
	DurationMsKey = "perf.duration_ms"
	ScoreKey      = "metrics.score"
	MetricKey     = "metrics.name"
	PValueKey     = "metrics.p_value"
	IterationKey  = "training.iteration"
	LossKey       = "metrics.loss"
)

// Ensemble and hyperparameter context.
const (
	// CKey records the inverse regularization strength.
	CKey = "hyperparams.C"

	// L1RatioKey records the elastic-net mixing ratio.
	L1RatioKey = "hyperparams.l1_ratio"

	// GridSizeKey is the number of (C, l1_ratio) cells being swept.
	GridSizeKey = "hyperparams.grid_size"

	// EnsembleSizeKey is K, the number of train/test splits.
	EnsembleSizeKey = "ensemble.k"

	// SplitKey is the index of a single train/test split.
	SplitKey = "ensemble.split"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "cv.folds"

	// WorkersKey is the size of the task pool.
	WorkersKey = "infra.workers"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Error context.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationScore    = "score"
	OperationSelect   = "select_features"
	OperationValidate = "validate"

	PhaseTraining      = "training"
	PhaseSelection     = "selection"
	PhaseValidation    = "validation"
	PhasePreprocessing = "preprocessing"
)

package rent

import (
	"github.com/YuminosukeSato/rent/linear"
	"github.com/YuminosukeSato/rent/metrics"
)

// Task is the kind of target: binary labels or real values.
type Task int

const (
	Classification Task = iota
	Regression
)

func (t Task) String() string {
	if t == Classification {
		return "classification"
	}
	return "regression"
}

// capability carries everything that differs between the two tasks.
type capability struct {
	task     Task
	stratify bool
	provider linear.Provider
	// score rates ensemble models on their test split.
	score metrics.ScoreFunc
	// cvScore rates the unpenalized refits of the pre-selection.
	cvScore metrics.ScoreFunc
	// validationMetric is the default metric of the validation study.
	validationMetric string
}

func newCapability(task Task, cfg *Config) (capability, error) {
	score, err := scorerFor(task, cfg.Scoring)
	if err != nil {
		return capability{}, err
	}
	c := capability{task: task, score: score, provider: cfg.Provider}
	switch task {
	case Classification:
		c.stratify = true
		c.cvScore = metrics.MCC
		c.validationMetric = "mcc"
		if c.provider == nil {
			c.provider = linear.NewClassificationProvider()
		}
	default:
		c.cvScore = metrics.R2Score
		c.validationMetric = "r2"
		if c.provider == nil {
			c.provider = linear.NewRegressionProvider(linear.WithMaxIter(5000))
		}
	}
	return c, nil
}

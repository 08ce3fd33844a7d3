package linear

// Option configures a provider.
type Option func(*config)

type config struct {
	maxIter         int
	unpenalizedIter int
	tol             float64
}

func defaultConfig(maxIter, unpenalizedIter int) config {
	return config{
		maxIter:         maxIter,
		unpenalizedIter: unpenalizedIter,
		tol:             1e-4,
	}
}

// WithMaxIter sets the iteration cap of the regularized solver.
func WithMaxIter(n int) Option {
	return func(c *config) {
		c.maxIter = n
	}
}

// WithUnpenalizedMaxIter sets the iteration cap of the unpenalized refit
// (classification only; the regression refit is a direct solve).
func WithUnpenalizedMaxIter(n int) Option {
	return func(c *config) {
		c.unpenalizedIter = n
	}
}

// WithTol sets the tolerance for the optimization
func WithTol(tol float64) Option {
	return func(c *config) {
		c.tol = tol
	}
}

package linear

// Option configures a LinearRegression.
type Option func(*LinearRegression)

// WithFitIntercept controls whether an intercept column is added. Default true.
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// BayesOption configures a BayesianRegression.
type BayesOption func(*BayesianRegression)

// WithPriorScale sets the prior standard deviation of each slope, in units
// of the noise standard deviation.
func WithPriorScale(scale float64) BayesOption {
	return func(br *BayesianRegression) {
		br.PriorScale = scale
	}
}

// WithPriorShape sets the shape a0 of the inverse-gamma prior on the noise variance.
func WithPriorShape(shape float64) BayesOption {
	return func(br *BayesianRegression) {
		br.PriorShape = shape
	}
}

// WithPriorRate sets the rate b0 of the inverse-gamma prior on the noise variance.
func WithPriorRate(rate float64) BayesOption {
	return func(br *BayesianRegression) {
		br.PriorRate = rate
	}
}

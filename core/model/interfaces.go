// Package model defines the contracts shared by the fitting engines and the
// fitted-state bookkeeping they embed.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter learns from a design matrix X (n×p) and an n×1 outcome y.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor returns an n×1 matrix of point predictions.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is an engine that can be fitted and then queried.
type Estimator interface {
	Fitter
	Predictor
	IsFitted() bool
}

// IntervalPredictor is implemented by engines that can bound their predictions.
// level is the coverage probability, e.g. 0.95.
type IntervalPredictor interface {
	PredictInterval(X mat.Matrix, level float64) (lower, upper mat.Matrix, err error)
}

// Classifier engines encode class labels as 0..k-1 in y and in predictions.
type Classifier interface {
	Estimator
	NumClasses() int
}

// ParameterGetter exposes the hyperparameters an engine was built with.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

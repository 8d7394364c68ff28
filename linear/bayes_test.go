package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ehoutland/tidymodels-test/pkg/errors"
)

func TestBayesianRegressionApproachesOLS(t *testing.T) {
	X, y := simpleData()
	br := NewBayesianRegression(WithPriorScale(1e6))
	require.NoError(t, br.Fit(X, y))

	slope, intercept, _, _, _ := closedForm()
	post, err := br.Posterior([]string{"age"}, 0.9)
	require.NoError(t, err)
	require.Len(t, post, 2)
	assert.InDelta(t, intercept, post[0].Mean, 1e-6)
	assert.InDelta(t, slope, post[1].Mean, 1e-6)
	assert.Less(t, post[1].Lower, post[1].Mean)
	assert.Greater(t, post[1].Upper, post[1].Mean)
}

func TestBayesianRegressionShrinks(t *testing.T) {
	X, y := simpleData()
	wide := NewBayesianRegression(WithPriorScale(100))
	narrow := NewBayesianRegression(WithPriorScale(0.01))
	require.NoError(t, wide.Fit(X, y))
	require.NoError(t, narrow.Fit(X, y))

	pw, err := wide.Posterior(nil, 0.95)
	require.NoError(t, err)
	pn, err := narrow.Posterior(nil, 0.95)
	require.NoError(t, err)
	assert.Equal(t, "x1", pw[1].Term)
	assert.Less(t, pn[1].Mean, pw[1].Mean)
}

func TestBayesianRegressionPredictInterval(t *testing.T) {
	X, y := simpleData()
	br := NewBayesianRegression()
	require.NoError(t, br.Fit(X, y))

	x0 := mat.NewDense(2, 1, []float64{3.5, 10})
	pred, err := br.Predict(x0)
	require.NoError(t, err)
	lo90, hi90, err := br.PredictInterval(x0, 0.90)
	require.NoError(t, err)
	lo99, hi99, err := br.PredictInterval(x0, 0.99)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		assert.InDelta(t, pred.At(i, 0)-lo90.At(i, 0), hi90.At(i, 0)-pred.At(i, 0), 1e-9)
		assert.Less(t, lo99.At(i, 0), lo90.At(i, 0))
		assert.Greater(t, hi99.At(i, 0), hi90.At(i, 0))
	}
	// extrapolation widens the interval
	assert.Greater(t, hi90.At(1, 0)-lo90.At(1, 0), hi90.At(0, 0)-lo90.At(0, 0))
}

func TestBayesianRegressionValidation(t *testing.T) {
	X, y := simpleData()
	for _, opt := range []BayesOption{WithPriorScale(0), WithPriorShape(-1), WithPriorRate(0)} {
		err := NewBayesianRegression(opt).Fit(X, y)
		var verr *errors.ValidationError
		assert.True(t, errors.As(err, &verr))
	}
	_, err := NewBayesianRegression().Predict(X)
	assert.Error(t, err)
	assert.Equal(t, 0.01, NewBayesianRegression().GetParams()["prior_rate"])
}

func TestBayesianRegressionOverflowingPosterior(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{1e200, -1e200, 1e200, -1e200})

	br := NewBayesianRegression()
	err := br.Fit(X, y)
	var numErr *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, "BayesianRegression.Fit", numErr.Operation)
	assert.False(t, br.IsFitted())
}

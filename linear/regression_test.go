package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ehoutland/tidymodels-test/pkg/errors"
)

// simple one-predictor data with noise, so closed-form formulas apply
var (
	xs = []float64{1, 2, 3, 4, 5, 6}
	ys = []float64{2.1, 3.9, 6.2, 7.8, 10.1, 12.2}
)

func simpleData() (*mat.Dense, *mat.Dense) {
	return mat.NewDense(len(xs), 1, xs), mat.NewDense(len(ys), 1, ys)
}

func closedForm() (slope, intercept, s2, xbar, sxx float64) {
	n := float64(len(xs))
	var ybar float64
	for i := range xs {
		xbar += xs[i]
		ybar += ys[i]
	}
	xbar /= n
	ybar /= n
	var sxy float64
	for i := range xs {
		sxx += (xs[i] - xbar) * (xs[i] - xbar)
		sxy += (xs[i] - xbar) * (ys[i] - ybar)
	}
	slope = sxy / sxx
	intercept = ybar - slope*xbar
	var rss float64
	for i := range xs {
		e := ys[i] - intercept - slope*xs[i]
		rss += e * e
	}
	s2 = rss / (n - 2)
	return
}

func TestLinearRegressionMatchesClosedForm(t *testing.T) {
	X, y := simpleData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	slope, intercept, s2, xbar, sxx := closedForm()
	assert.InDelta(t, slope, lr.GetWeights()[0], 1e-9)
	assert.InDelta(t, intercept, lr.GetIntercept(), 1e-9)
	assert.InDelta(t, s2, lr.ResidualVariance(), 1e-9)

	x0 := mat.NewDense(2, 1, []float64{2.5, 7})
	lo, hi, err := lr.PredictInterval(x0, 0.95)
	require.NoError(t, err)
	tq := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 4}.Quantile(0.975)
	for i, v := range []float64{2.5, 7} {
		fit := intercept + slope*v
		half := tq * math.Sqrt(s2*(1.0/6+(v-xbar)*(v-xbar)/sxx))
		assert.InDelta(t, fit-half, lo.At(i, 0), 1e-9)
		assert.InDelta(t, fit+half, hi.At(i, 0), 1e-9)
	}

	plo, phi, err := lr.PredictionInterval(x0, 0.95)
	require.NoError(t, err)
	assert.Less(t, plo.At(0, 0), lo.At(0, 0))
	assert.Greater(t, phi.At(0, 0), hi.At(0, 0))
}

func TestLinearRegressionTidy(t *testing.T) {
	X, y := simpleData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	coefs, err := lr.Tidy([]string{"age"})
	require.NoError(t, err)
	require.Len(t, coefs, 2)
	assert.Equal(t, InterceptTerm, coefs[0].Term)
	assert.Equal(t, "age", coefs[1].Term)

	slope, _, s2, _, sxx := closedForm()
	se := math.Sqrt(s2 / sxx)
	assert.InDelta(t, se, coefs[1].StdError, 1e-9)
	assert.InDelta(t, slope/se, coefs[1].Statistic, 1e-9)
	assert.Less(t, coefs[1].PValue, 1e-4)

	_, err = lr.Tidy([]string{"a", "b"})
	assert.Error(t, err)
}

func TestLinearRegressionExactFit(t *testing.T) {
	// y = 1 + 2a - b
	X := mat.NewDense(5, 2, []float64{
		0, 1,
		1, 0,
		2, 3,
		3, 1,
		4, 4,
	})
	y := mat.NewDense(5, 1, []float64{0, 3, 2, 6, 5})
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.InDeltaSlice(t, []float64{2, -1}, lr.GetWeights(), 1e-9)
	assert.InDelta(t, 1, lr.GetIntercept(), 1e-9)

	pred, err := lr.Predict(mat.NewDense(1, 2, []float64{10, 5}))
	require.NoError(t, err)
	assert.InDelta(t, 16, pred.At(0, 0), 1e-9)
}

func TestLinearRegressionNoIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})
	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 2, lr.GetWeights()[0], 1e-12)
	assert.Equal(t, 0.0, lr.GetIntercept())
}

func TestLinearRegressionErrors(t *testing.T) {
	lr := NewLinearRegression()
	_, err := lr.Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	// duplicated column makes XᵀX singular
	X := mat.NewDense(3, 2, []float64{1, 1, 2, 2, 3, 3})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	err = lr.Fit(X, y)
	assert.True(t, errors.Is(err, errors.ErrSingularMatrix))

	err = lr.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(3, 1, []float64{1, 2, 3}))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	require.NoError(t, lr.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{1, 2})))
	_, _, err = lr.PredictInterval(mat.NewDense(1, 1, []float64{1}), 0.95)
	assert.Error(t, err, "two points leave no residual degrees of freedom")
	_, _, err = lr.PredictInterval(mat.NewDense(1, 1, []float64{1}), 1.5)
	assert.Error(t, err)
}

func TestLinearRegressionOverflowingResiduals(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{1e200, -1e200, 1e200, -1e200})

	err := NewLinearRegression().Fit(X, y)
	var numErr *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, "LinearRegression.Fit", numErr.Operation)
	assert.True(t, math.IsInf(numErr.Values[0], 1))
}

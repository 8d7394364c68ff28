// Package linear fits ordinary least squares and conjugate Bayesian linear
// regression on gonum matrices.
package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ehoutland/tidymodels-test/core/model"
	"github.com/ehoutland/tidymodels-test/core/parallel"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
)

// InterceptTerm names the intercept in coefficient tables.
const InterceptTerm = "(Intercept)"

const parallelThreshold = 1000

// LinearRegression is ordinary least squares solved through the normal
// equations (XᵀX)⁻¹Xᵀy.
type LinearRegression struct {
	state        *model.StateManager
	fitIntercept bool

	Weights   *mat.VecDense
	Intercept float64

	// xtxInv is (XᵀX)⁻¹ of the augmented design, kept for standard errors.
	xtxInv  *mat.Dense
	sigma2  float64
	dfResid int
}

func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{state: model.NewStateManager(), fitIntercept: true}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

func (lr *LinearRegression) IsFitted() bool { return lr.state.IsFitted() }

// augment prepends a column of ones when the model has an intercept.
func augment(X mat.Matrix, intercept bool) *mat.Dense {
	r, c := X.Dims()
	offset := 0
	if intercept {
		offset = 1
	}
	out := mat.NewDense(r, c+offset, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if intercept {
				out.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				out.Set(i, j+offset, X.At(i, j))
			}
		}
	})
	return out
}

func checkXY(op string, X, y mat.Matrix) (r, c int, err error) {
	r, c = X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return 0, 0, errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a column vector")
	}
	if err := errors.CheckMatrix(op, X, r, c); err != nil {
		return 0, 0, err
	}
	if err := errors.CheckMatrix(op, y, ry, 1); err != nil {
		return 0, 0, err
	}
	return r, c, nil
}

func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c, err := checkXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	A := augment(X, lr.fitIntercept)
	_, p := A.Dims()

	var XTX mat.Dense
	XTX.Mul(A.T(), A)

	var XTXInv mat.Dense
	if err := XTXInv.Inverse(&XTX); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	yVec := mat.NewVecDense(r, mat.Col(nil, 0, y))
	var XTy mat.VecDense
	XTy.MulVec(A.T(), yVec)

	beta := mat.NewVecDense(p, nil)
	beta.MulVec(&XTXInv, &XTy)
	if err := errors.CheckNumericalStability("LinearRegression.Fit", beta.RawVector().Data, 0); err != nil {
		return err
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(A, beta)
	resid.SubVec(yVec, &fitted)
	rss := mat.Dot(&resid, &resid)

	lr.Intercept = 0
	offset := 0
	if lr.fitIntercept {
		lr.Intercept = beta.AtVec(0)
		offset = 1
	}
	lr.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Weights.SetVec(j, beta.AtVec(j+offset))
	}
	lr.xtxInv = &XTXInv
	lr.dfResid = r - p
	lr.sigma2 = math.NaN()
	if lr.dfResid > 0 {
		lr.sigma2 = rss / float64(lr.dfResid)
		if err := errors.CheckScalar("LinearRegression.Fit", lr.sigma2, 0); err != nil {
			return err
		}
	}

	lr.state.SetDimensions(c, r)
	lr.state.SetFitted()
	return nil
}

func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := lr.state.RequireFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// PredictInterval returns the t-based confidence interval of the mean
// response at the given level.
func (lr *LinearRegression) PredictInterval(X mat.Matrix, level float64) (lower, upper mat.Matrix, err error) {
	return lr.interval(X, level, false)
}

// PredictionInterval returns the t-based interval for a new observation,
// which also accounts for the residual variance.
func (lr *LinearRegression) PredictionInterval(X mat.Matrix, level float64) (lower, upper mat.Matrix, err error) {
	return lr.interval(X, level, true)
}

func (lr *LinearRegression) interval(X mat.Matrix, level float64, newObs bool) (mat.Matrix, mat.Matrix, error) {
	if level <= 0 || level >= 1 {
		return nil, nil, errors.NewValidationError("level", "must be in (0, 1)", level)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	if lr.dfResid <= 0 {
		return nil, nil, errors.NewValueError("LinearRegression.PredictInterval", "no residual degrees of freedom")
	}
	tq := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(lr.dfResid)}.Quantile(1 - (1-level)/2)

	A := augment(X, lr.fitIntercept)
	r, _ := A.Dims()
	lo := mat.NewDense(r, 1, nil)
	hi := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		x0 := A.RowView(i)
		v := lr.sigma2 * mat.Inner(x0, lr.xtxInv, x0)
		if newObs {
			v += lr.sigma2
		}
		half := tq * math.Sqrt(v)
		lo.Set(i, 0, pred.At(i, 0)-half)
		hi.Set(i, 0, pred.At(i, 0)+half)
	}
	return lo, hi, nil
}

// Coefficient is one row of a coefficient table.
type Coefficient struct {
	Term      string
	Estimate  float64
	StdError  float64
	Statistic float64
	PValue    float64
}

// Tidy returns the coefficient table with two-sided t-test p-values. names
// label the predictor columns; nil gives "x1", "x2", ....
func (lr *LinearRegression) Tidy(names []string) ([]Coefficient, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Tidy"); err != nil {
		return nil, err
	}
	nFeatures, _ := lr.state.GetDimensions()
	if names != nil && len(names) != nFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Tidy", nFeatures, len(names), 1)
	}
	terms := make([]string, 0, nFeatures+1)
	estimates := make([]float64, 0, nFeatures+1)
	if lr.fitIntercept {
		terms = append(terms, InterceptTerm)
		estimates = append(estimates, lr.Intercept)
	}
	for j := 0; j < nFeatures; j++ {
		if names != nil {
			terms = append(terms, names[j])
		} else {
			terms = append(terms, fmt.Sprintf("x%d", j+1))
		}
		estimates = append(estimates, lr.Weights.AtVec(j))
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(lr.dfResid)}
	out := make([]Coefficient, len(terms))
	for k := range terms {
		se := math.Sqrt(lr.sigma2 * lr.xtxInv.At(k, k))
		stat := estimates[k] / se
		pv := math.NaN()
		if lr.dfResid > 0 && !math.IsNaN(stat) {
			pv = 2 * tdist.CDF(-math.Abs(stat))
		}
		out[k] = Coefficient{Term: terms[k], Estimate: estimates[k], StdError: se, Statistic: stat, PValue: pv}
	}
	return out, nil
}

// ResidualVariance is RSS/(n-p), NaN when there are no residual degrees of freedom.
func (lr *LinearRegression) ResidualVariance() float64 { return lr.sigma2 }

func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	return mat.Col(nil, 0, lr.Weights)
}

func (lr *LinearRegression) GetIntercept() float64 {
	return lr.Intercept
}

func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{"fit_intercept": lr.fitIntercept}
}

func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.fitIntercept)
	}
	nFeatures, _ := lr.state.GetDimensions()
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d)", lr.fitIntercept, nFeatures)
}

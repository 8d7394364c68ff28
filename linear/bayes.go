package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ehoutland/tidymodels-test/core/model"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
)

// Defaults for the conjugate prior.
const (
	DefaultPriorScale = 10.0
	DefaultPriorShape = 0.01
	DefaultPriorRate  = 0.01
)

// BayesianRegression is linear regression under a conjugate
// normal-inverse-gamma prior:
//
//	σ² ~ InvGamma(a0, b0)
//	β | σ² ~ N(0, σ² · PriorScale² · I)
//
// The intercept gets a flat prior. The posterior is available in closed
// form and the posterior predictive is a Student-t with 2·aN degrees of
// freedom.
type BayesianRegression struct {
	state *model.StateManager

	PriorScale float64
	PriorShape float64
	PriorRate  float64

	// posterior
	mean  *mat.VecDense
	cov   *mat.SymDense // Vn, the posterior covariance up to σ²
	shape float64       // aN
	rate  float64       // bN
}

func NewBayesianRegression(opts ...BayesOption) *BayesianRegression {
	br := &BayesianRegression{
		state:      model.NewStateManager(),
		PriorScale: DefaultPriorScale,
		PriorShape: DefaultPriorShape,
		PriorRate:  DefaultPriorRate,
	}
	for _, opt := range opts {
		opt(br)
	}
	return br
}

func (br *BayesianRegression) IsFitted() bool { return br.state.IsFitted() }

func (br *BayesianRegression) validate() error {
	if !(br.PriorScale > 0) {
		return errors.NewValidationError("prior_scale", "must be positive", br.PriorScale)
	}
	if !(br.PriorShape > 0) {
		return errors.NewValidationError("prior_shape", "must be positive", br.PriorShape)
	}
	if !(br.PriorRate > 0) {
		return errors.NewValidationError("prior_rate", "must be positive", br.PriorRate)
	}
	return nil
}

func (br *BayesianRegression) Fit(X, y mat.Matrix) error {
	if err := br.validate(); err != nil {
		return err
	}
	r, c, err := checkXY("BayesianRegression.Fit", X, y)
	if err != nil {
		return err
	}
	A := augment(X, true)
	p := c + 1

	// posterior precision Λn = Λ0 + AᵀA
	prec := mat.NewSymDense(p, nil)
	prec.SymOuterK(1, A.T())
	slopePrec := 1 / (br.PriorScale * br.PriorScale)
	for j := 1; j < p; j++ {
		prec.SetSym(j, j, prec.At(j, j)+slopePrec)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(prec); !ok {
		return errors.NewModelError("BayesianRegression.Fit", "posterior precision not positive definite", errors.ErrSingularMatrix)
	}
	cov := mat.NewSymDense(p, nil)
	if err := chol.InverseTo(cov); err != nil {
		return errors.NewModelError("BayesianRegression.Fit", "posterior covariance", errors.ErrSingularMatrix)
	}

	yVec := mat.NewVecDense(r, mat.Col(nil, 0, y))
	var Aty mat.VecDense
	Aty.MulVec(A.T(), yVec)
	mean := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(mean, &Aty); err != nil {
		return errors.NewModelError("BayesianRegression.Fit", "posterior mean", errors.ErrSingularMatrix)
	}

	if err := errors.CheckNumericalStability("BayesianRegression.Fit", mean.RawVector().Data, 0); err != nil {
		return err
	}

	// bN = b0 + ½(yᵀy − μnᵀΛnμn) with a zero prior mean
	quad := mat.Dot(yVec, yVec) - mat.Inner(mean, prec, mean)
	br.shape = br.PriorShape + float64(r)/2
	br.rate = br.PriorRate + math.Max(quad, 0)/2
	if err := errors.CheckScalar("BayesianRegression.Fit", br.rate, 0); err != nil {
		return err
	}
	br.mean = mean
	br.cov = cov

	br.state.SetDimensions(c, r)
	br.state.SetFitted()
	return nil
}

// Predict returns the posterior mean of the response.
func (br *BayesianRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := br.state.RequireFitted("BayesianRegression", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := br.state.RequireFeatures("BayesianRegression.Predict", c); err != nil {
		return nil, err
	}
	A := augment(X, true)
	var pred mat.VecDense
	pred.MulVec(A, br.mean)
	out := mat.NewDense(r, 1, nil)
	out.SetCol(0, pred.RawVector().Data)
	return out, nil
}

// PredictInterval returns the central posterior predictive interval.
func (br *BayesianRegression) PredictInterval(X mat.Matrix, level float64) (lower, upper mat.Matrix, err error) {
	if level <= 0 || level >= 1 {
		return nil, nil, errors.NewValidationError("level", "must be in (0, 1)", level)
	}
	pred, err := br.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	tq := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 2 * br.shape}.Quantile(1 - (1-level)/2)
	noise := br.rate / br.shape

	A := augment(X, true)
	r, _ := A.Dims()
	lo := mat.NewDense(r, 1, nil)
	hi := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		x0 := A.RowView(i)
		half := tq * math.Sqrt(noise*(1+mat.Inner(x0, br.cov, x0)))
		lo.Set(i, 0, pred.At(i, 0)-half)
		hi.Set(i, 0, pred.At(i, 0)+half)
	}
	return lo, hi, nil
}

// PosteriorTerm summarises the marginal posterior of one coefficient.
type PosteriorTerm struct {
	Term  string
	Mean  float64
	Scale float64
	Lower float64
	Upper float64
}

// Posterior returns the marginal Student-t posterior of every coefficient
// with a central credible interval at level.
func (br *BayesianRegression) Posterior(names []string, level float64) ([]PosteriorTerm, error) {
	if err := br.state.RequireFitted("BayesianRegression", "Posterior"); err != nil {
		return nil, err
	}
	nFeatures, _ := br.state.GetDimensions()
	if names != nil && len(names) != nFeatures {
		return nil, errors.NewDimensionError("BayesianRegression.Posterior", nFeatures, len(names), 1)
	}
	if level <= 0 || level >= 1 {
		return nil, errors.NewValidationError("level", "must be in (0, 1)", level)
	}
	tq := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 2 * br.shape}.Quantile(1 - (1-level)/2)
	noise := br.rate / br.shape

	out := make([]PosteriorTerm, nFeatures+1)
	for k := range out {
		term := InterceptTerm
		if k > 0 {
			if names != nil {
				term = names[k-1]
			} else {
				term = fmt.Sprintf("x%d", k)
			}
		}
		mean := br.mean.AtVec(k)
		scale := math.Sqrt(noise * br.cov.At(k, k))
		out[k] = PosteriorTerm{Term: term, Mean: mean, Scale: scale, Lower: mean - tq*scale, Upper: mean + tq*scale}
	}
	return out, nil
}

func (br *BayesianRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"prior_scale": br.PriorScale,
		"prior_shape": br.PriorShape,
		"prior_rate":  br.PriorRate,
	}
}

func (br *BayesianRegression) String() string {
	return fmt.Sprintf("BayesianRegression(prior_scale=%g, prior_shape=%g, prior_rate=%g)", br.PriorScale, br.PriorShape, br.PriorRate)
}

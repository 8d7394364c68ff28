package workflow

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ehoutland/tidymodels-test/core/model"
	"github.com/ehoutland/tidymodels-test/data"
	"github.com/ehoutland/tidymodels-test/ensemble"
	"github.com/ehoutland/tidymodels-test/linear"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
	"github.com/ehoutland/tidymodels-test/recipe"
)

// Fitted is a model specification bound to a prepped recipe and a trained
// engine. It is immutable and safe for concurrent Predict calls.
type Fitted struct {
	spec     ModelSpec
	prepped  *recipe.Prepped
	engine   model.Estimator
	encoding recipe.Encoding
	terms    []string
}

// encodingFor returns how categorical predictors reach the engine: linear
// models need indicators, trees split on level codes.
func encodingFor(f Family) recipe.Encoding {
	if f == RandForest {
		return recipe.LevelEncoding
	}
	return recipe.DummyEncoding
}

func (s ModelSpec) newEngine(classes int) model.Estimator {
	switch s.Family {
	case BayesLinearReg:
		return linear.NewBayesianRegression(
			linear.WithPriorScale(s.value("prior_scale", linear.DefaultPriorScale)),
			linear.WithPriorShape(s.value("prior_shape", linear.DefaultPriorShape)),
			linear.WithPriorRate(s.value("prior_rate", linear.DefaultPriorRate)),
		)
	case RandForest:
		opts := []ensemble.Option{
			ensemble.WithTrees(int(s.value("trees", ensemble.DefaultTrees))),
			ensemble.WithMtry(int(s.value("mtry", 0))),
			ensemble.WithMinN(int(s.value("min_n", 0))),
			ensemble.WithMaxDepth(int(s.value("max_depth", 0))),
			ensemble.WithSeed(int64(s.value("seed", 0))),
		}
		if s.Mode == Classification {
			opts = append(opts, ensemble.WithClassification(classes))
		}
		return ensemble.NewRandomForest(opts...)
	default:
		return linear.NewLinearRegression()
	}
}

// Fit validates spec, preps rec on train, builds the design matrix and fits
// the engine. Parameters still marked with Tune are an error.
func Fit(spec ModelSpec, rec *recipe.Recipe, train *data.Frame) (*Fitted, error) {
	const op = "workflow.Fit"
	start := time.Now()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if pending := spec.Tunable(); len(pending) > 0 {
		return nil, errors.NewUnresolvedParameterError(spec.Name(), pending)
	}

	prepped, err := rec.Prep(train)
	if err != nil {
		return nil, err
	}
	outcome := rec.Formula().Outcome
	switch {
	case spec.Mode == Classification && !prepped.IsClassification():
		return nil, errors.NewColumnError(op, outcome, "classification needs a categorical outcome")
	case spec.Mode == Regression && prepped.IsClassification():
		return nil, errors.NewColumnError(op, outcome, "regression needs a numeric outcome")
	}

	enc := encodingFor(spec.Family)
	X, terms, err := prepped.Matrix(prepped.Juice(), enc)
	if err != nil {
		return nil, err
	}
	if err := checkMissing(op, X, terms); err != nil {
		return nil, err
	}
	y, err := prepped.Outcome(prepped.Juice())
	if err != nil {
		return nil, err
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, errors.NewMissingValueError(op, outcome, i)
		}
	}

	engine := spec.newEngine(len(prepped.OutcomeLevels()))
	if err := engine.Fit(X, mat.NewDense(len(y), 1, y)); err != nil {
		return nil, errors.Wrapf(err, "fit %s", spec.Name())
	}

	rows, cols := X.Dims()
	log.GetLoggerWithName("workflow").Debug("model fitted",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, spec.Name(),
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.ModelParamsKey, engineParams(engine),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Fitted{spec: spec, prepped: prepped, engine: engine, encoding: enc, terms: terms}, nil
}

func engineParams(e model.Estimator) map[string]interface{} {
	if pg, ok := e.(model.ParameterGetter); ok {
		return pg.GetParams()
	}
	return nil
}

// checkMissing reports the first NaN cell of X by design column and row.
func checkMissing(op string, X *mat.Dense, terms []string) error {
	r, c := X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(X.At(i, j)) {
				return errors.NewMissingValueError(op, terms[j], i)
			}
		}
	}
	return nil
}

func (f *Fitted) Spec() ModelSpec { return f.spec }

// Prepped returns the recipe trained on the fitting rows.
func (f *Fitted) Prepped() *recipe.Prepped { return f.prepped }

// Engine returns the trained engine, e.g. *linear.LinearRegression for Tidy.
func (f *Fitted) Engine() model.Estimator { return f.engine }

// Terms returns the design-matrix column names the engine was fitted on.
func (f *Fitted) Terms() []string { return append([]string(nil), f.terms...) }

// EngineParams returns the hyperparameters the engine was trained with,
// defaults included.
func (f *Fitted) EngineParams() map[string]interface{} { return engineParams(f.engine) }

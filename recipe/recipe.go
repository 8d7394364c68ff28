// Package recipe turns a Formula and an ordered list of preprocessing steps
// into design matrices. A Recipe is prepped on training rows only; the
// resulting Prepped value bakes any frame with the same learned state.
package recipe

import (
	"math"

	"github.com/ehoutland/tidymodels-test/data"
	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
)

// Recipe is an untrained preprocessing plan. It is immutable and can be
// prepped any number of times, e.g. once per resampling fold.
type Recipe struct {
	formula Formula
	steps   []Step
}

// New builds a recipe. Steps may be listed in any order; they run by phase.
func New(formula Formula, steps ...Step) *Recipe {
	return &Recipe{formula: formula, steps: append([]Step(nil), steps...)}
}

// AddSteps returns a copy of the recipe with more steps.
func (r *Recipe) AddSteps(steps ...Step) *Recipe {
	return New(r.formula, append(append([]Step(nil), r.steps...), steps...)...)
}

func (r *Recipe) Formula() Formula { return r.formula }

// Steps returns the steps in execution order, including the interaction
// step generated from the formula.
func (r *Recipe) Steps() []Step {
	steps := append([]Step(nil), r.steps...)
	if len(r.formula.Interactions) > 0 {
		steps = append(steps, StepInteract(r.formula.Interactions...))
	}
	return orderSteps(steps)
}

// Prepped is a recipe trained on one frame.
type Prepped struct {
	formula    Formula
	predictors []string
	inputTypes map[string]data.ColumnType
	steps      []TrainedStep

	outcomeType   data.ColumnType
	outcomeLevels []string

	// columns of the baked training frame used to build design matrices
	design  []string
	factors map[string][]string

	training *data.Frame
}

// Prep learns every step from train and bakes it.
func (r *Recipe) Prep(train *data.Frame) (*Prepped, error) {
	if train.NumRows() == 0 {
		return nil, scierrors.Wrap(scierrors.ErrEmptyData, "prep")
	}
	if err := r.formula.validate(train); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("recipe")

	predictors := r.formula.resolvePredictors(train)
	keep := append(append(append([]string(nil), predictors...), r.formula.IDs...), r.formula.Outcome)
	frame, err := train.Select(keep...)
	if err != nil {
		return nil, err
	}

	p := &Prepped{
		formula:    r.formula,
		predictors: predictors,
		inputTypes: map[string]data.ColumnType{},
		factors:    map[string][]string{},
	}
	for _, name := range predictors {
		c, _ := frame.Col(name)
		p.inputTypes[name] = c.Type()
	}
	outcome, _ := frame.Col(r.formula.Outcome)
	p.outcomeType = outcome.Type()
	switch outcome.Type() {
	case data.Numeric:
	case data.Categorical:
		p.outcomeLevels = outcome.Levels()
	default:
		return nil, scierrors.NewColumnError("prep", r.formula.Outcome, "outcome must be numeric or categorical")
	}

	roles := &Roles{Outcome: r.formula.Outcome, IDs: r.formula.IDs, Derived: map[string][]string{}}
	for _, step := range r.Steps() {
		trained, err := step.Prep(frame, roles)
		if err != nil {
			return nil, scierrors.Wrapf(err, "prep step %s", step.Name())
		}
		if frame, err = trained.Bake(frame); err != nil {
			return nil, scierrors.Wrapf(err, "bake step %s", step.Name())
		}
		p.steps = append(p.steps, trained)
		logger.Debug("step prepped",
			log.OperationKey, log.OperationPrep,
			log.StepKey, trained.Name(),
			log.FeaturesKey, len(trained.Produces()),
		)
	}

	for _, name := range roles.Predictors(frame) {
		c, _ := frame.Col(name)
		switch c.Type() {
		case data.Numeric:
		case data.Categorical:
			p.factors[name] = c.Levels()
		default:
			return nil, scierrors.NewColumnError("prep", name,
				"predictor of type "+c.Type().String()+" cannot enter a design matrix; add StepDate or convert it to categorical")
		}
		p.design = append(p.design, name)
	}
	p.training = frame

	logger.Debug("recipe prepped",
		log.OperationKey, log.OperationPrep,
		log.SamplesKey, frame.NumRows(),
		log.FeaturesKey, len(p.design),
	)
	return p, nil
}

func (p *Prepped) Formula() Formula { return p.formula }

// Steps returns the trained steps in execution order.
func (p *Prepped) Steps() []TrainedStep { return append([]TrainedStep(nil), p.steps...) }

// Juice returns the baked training frame.
func (p *Prepped) Juice() *data.Frame { return p.training }

// Predictors returns the baked predictor columns in design order.
func (p *Prepped) Predictors() []string { return append([]string(nil), p.design...) }

// OutcomeLevels returns the class labels of a categorical outcome, or nil.
func (p *Prepped) OutcomeLevels() []string { return append([]string(nil), p.outcomeLevels...) }

// IsClassification reports whether the outcome is categorical.
func (p *Prepped) IsClassification() bool { return p.outcomeType == data.Categorical }

// Bake applies the trained steps to f. The outcome column is optional and
// passed through when present; every original predictor must be present.
// String columns are accepted where the training data had categoricals.
func (p *Prepped) Bake(f *data.Frame) (*data.Frame, error) {
	keep := append([]string(nil), p.predictors...)
	for _, id := range p.formula.IDs {
		if f.Has(id) {
			keep = append(keep, id)
		}
	}
	if f.Has(p.formula.Outcome) {
		keep = append(keep, p.formula.Outcome)
	}
	out, err := f.Select(keep...)
	if err != nil {
		return nil, err
	}
	for _, name := range p.predictors {
		c, _ := out.Col(name)
		want := p.inputTypes[name]
		if c.Type() == want {
			continue
		}
		if want == data.Categorical && c.Type() == data.String {
			if out, err = out.AddColumn(data.NewCategorical(name, c.Strings())); err != nil {
				return nil, err
			}
			continue
		}
		return nil, scierrors.NewColumnError("bake", name, "expected "+want.String()+", got "+c.Type().String())
	}
	for _, step := range p.steps {
		if out, err = step.Bake(out); err != nil {
			return nil, scierrors.Wrapf(err, "bake step %s", step.Name())
		}
	}
	return out, nil
}

// Outcome returns the outcome of f as float64: values for a numeric
// outcome, training level codes for a categorical one. Unknown labels and
// missing cells are NaN.
func (p *Prepped) Outcome(f *data.Frame) ([]float64, error) {
	c, err := f.Col(p.formula.Outcome)
	if err != nil {
		return nil, err
	}
	if !p.IsClassification() {
		if c.Type() != data.Numeric {
			return nil, scierrors.NewColumnError("outcome", c.Name(), "expected numeric outcome")
		}
		return c.Floats(), nil
	}
	pos := make(map[string]int, len(p.outcomeLevels))
	for i, l := range p.outcomeLevels {
		pos[l] = i
	}
	y := make([]float64, c.Len())
	for i := range y {
		if k, ok := pos[c.Str(i)]; ok && !c.IsMissing(i) {
			y[i] = float64(k)
		} else {
			y[i] = math.NaN()
		}
	}
	return y, nil
}

package recipe

import (
	"sort"

	"github.com/ehoutland/tidymodels-test/data"
)

// Phase fixes where a step runs. Steps are applied in ascending phase and
// in declaration order within a phase, whatever order they were declared in.
type Phase int

const (
	PhaseDerive Phase = iota
	PhaseImpute
	PhaseRecode
	PhaseEncode
	PhaseInteract
	PhaseFilter
	PhaseNormalize
)

func (p Phase) String() string {
	switch p {
	case PhaseDerive:
		return "derive"
	case PhaseImpute:
		return "impute"
	case PhaseRecode:
		return "recode"
	case PhaseEncode:
		return "encode"
	case PhaseInteract:
		return "interact"
	case PhaseFilter:
		return "filter"
	case PhaseNormalize:
		return "normalize"
	default:
		return "unknown"
	}
}

// Step is an untrained recipe step. Prep resolves the step's columns
// against the current training frame and learns whatever state it needs.
type Step interface {
	Name() string
	Phase() Phase
	Prep(f *data.Frame, roles *Roles) (TrainedStep, error)
}

// TrainedStep applies learned state to any frame with the required columns.
type TrainedStep interface {
	Name() string
	Requires() []string
	Produces() []string
	Bake(f *data.Frame) (*data.Frame, error)
}

// Roles tracks column roles while a recipe is prepped.
type Roles struct {
	Outcome string
	IDs     []string
	// Derived maps an encoded source column to the columns that replaced it.
	Derived map[string][]string
}

func (r *Roles) isPredictor(name string) bool {
	if name == r.Outcome {
		return false
	}
	for _, id := range r.IDs {
		if id == name {
			return false
		}
	}
	return true
}

// Predictors lists the predictor columns of f in frame order.
func (r *Roles) Predictors(f *data.Frame) []string {
	var out []string
	for _, name := range f.Names() {
		if r.isPredictor(name) {
			out = append(out, name)
		}
	}
	return out
}

// Selector picks the columns a step applies to.
type Selector func(f *data.Frame, roles *Roles) []string

// Columns selects the named columns.
func Columns(names ...string) Selector {
	return func(*data.Frame, *Roles) []string { return append([]string(nil), names...) }
}

// AllPredictors selects every predictor.
func AllPredictors() Selector {
	return func(f *data.Frame, roles *Roles) []string { return roles.Predictors(f) }
}

// AllNumericPredictors selects the numeric predictors.
func AllNumericPredictors() Selector {
	return predictorsOfType(data.Numeric)
}

// AllNominalPredictors selects the categorical and string predictors.
func AllNominalPredictors() Selector {
	return predictorsOfType(data.Categorical, data.String)
}

func predictorsOfType(types ...data.ColumnType) Selector {
	return func(f *data.Frame, roles *Roles) []string {
		var out []string
		for _, name := range roles.Predictors(f) {
			c, _ := f.Col(name)
			for _, t := range types {
				if c.Type() == t {
					out = append(out, name)
					break
				}
			}
		}
		return out
	}
}

// orderSteps sorts by phase and keeps declaration order within a phase.
func orderSteps(steps []Step) []Step {
	out := append([]Step(nil), steps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Phase() < out[j].Phase() })
	return out
}

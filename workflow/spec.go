// Package workflow binds a model specification to a recipe, fits the chosen
// engine on a training frame and predicts on new frames.
package workflow

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ehoutland/tidymodels-test/pkg/errors"
)

// Family selects the model type.
type Family int

const (
	LinearReg Family = iota
	BayesLinearReg
	RandForest
)

func (f Family) String() string {
	switch f {
	case LinearReg:
		return "linear_reg"
	case BayesLinearReg:
		return "bayes_linear_reg"
	case RandForest:
		return "rand_forest"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Mode is regression or classification.
type Mode int

const (
	Regression Mode = iota
	Classification
)

func (m Mode) String() string {
	if m == Classification {
		return "classification"
	}
	return "regression"
}

type familyInfo struct {
	engine  string
	modes   []Mode
	params  []string
	integer map[string]bool
}

var families = map[Family]familyInfo{
	LinearReg: {
		engine: "lm",
		modes:  []Mode{Regression},
	},
	BayesLinearReg: {
		engine: "bayes",
		modes:  []Mode{Regression},
		params: []string{"prior_rate", "prior_scale", "prior_shape"},
	},
	RandForest: {
		engine:  "forest",
		modes:   []Mode{Regression, Classification},
		params:  []string{"max_depth", "min_n", "mtry", "seed", "trees"},
		integer: map[string]bool{"max_depth": true, "min_n": true, "mtry": true, "seed": true, "trees": true},
	},
}

// Param is a hyperparameter value or a marker that it will be tuned.
type Param struct {
	value float64
	tune  bool
}

// Fixed is a hyperparameter with a known value.
func Fixed(v float64) Param { return Param{value: v} }

// Tune marks a hyperparameter to be chosen by tuning.
func Tune() Param { return Param{tune: true} }

func (p Param) IsTune() bool   { return p.tune }
func (p Param) Value() float64 { return p.value }
func (p Param) String() string {
	if p.tune {
		return "tune()"
	}
	return fmt.Sprintf("%g", p.value)
}

// ModelSpec describes a model before it is fitted. An empty Engine selects
// the family default.
type ModelSpec struct {
	Family Family
	Mode   Mode
	Engine string
	Params map[string]Param
}

// LinearRegSpec is ordinary least squares.
func LinearRegSpec() ModelSpec {
	return ModelSpec{Family: LinearReg, Mode: Regression, Engine: "lm"}
}

// BayesLinearRegSpec is conjugate Bayesian linear regression.
func BayesLinearRegSpec(params map[string]Param) ModelSpec {
	return ModelSpec{Family: BayesLinearReg, Mode: Regression, Engine: "bayes", Params: params}
}

// RandForestSpec is a random forest in the given mode.
func RandForestSpec(mode Mode, params map[string]Param) ModelSpec {
	return ModelSpec{Family: RandForest, Mode: mode, Engine: "forest", Params: params}
}

func (s ModelSpec) engine() string {
	if s.Engine == "" {
		return families[s.Family].engine
	}
	return s.Engine
}

// Name is "family/engine", used in logs and errors.
func (s ModelSpec) Name() string { return s.Family.String() + "/" + s.engine() }

// Validate checks the family, engine, mode and parameter names and values.
// Tune markers are allowed.
func (s ModelSpec) Validate() error {
	info, ok := families[s.Family]
	if !ok {
		return errors.NewValidationError("family", "unknown model family", s.Family.String())
	}
	if s.engine() != info.engine {
		return errors.NewValidationError("engine", fmt.Sprintf("%s supports engine %q", s.Family, info.engine), s.Engine)
	}
	modeOK := false
	for _, m := range info.modes {
		modeOK = modeOK || m == s.Mode
	}
	if !modeOK {
		return errors.NewValidationError("mode", fmt.Sprintf("%s does not support %s", s.Family, s.Mode), s.Mode.String())
	}
	for name, p := range s.Params {
		if !contains(info.params, name) {
			return errors.NewValidationError(name, fmt.Sprintf("not a parameter of %s, known: %s", s.Name(), strings.Join(info.params, ", ")), p.String())
		}
		if p.tune {
			continue
		}
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return errors.NewValidationError(name, "must be finite", p.value)
		}
		if info.integer[name] && p.value != math.Trunc(p.value) {
			return errors.NewValidationError(name, "must be a whole number", p.value)
		}
	}
	return nil
}

// Tunable returns the sorted names of parameters marked with Tune.
func (s ModelSpec) Tunable() []string {
	var names []string
	for name, p := range s.Params {
		if p.tune {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// TunableParams lists every parameter name the family accepts.
func (s ModelSpec) TunableParams() []string {
	return append([]string(nil), families[s.Family].params...)
}

// WithParams returns a copy of the spec with the given values fixed. Every
// name must be a parameter of the family.
func (s ModelSpec) WithParams(values map[string]float64) (ModelSpec, error) {
	info := families[s.Family]
	out := s
	out.Params = make(map[string]Param, len(s.Params)+len(values))
	for name, p := range s.Params {
		out.Params[name] = p
	}
	for name, v := range values {
		if !contains(info.params, name) {
			return ModelSpec{}, errors.NewValidationError(name, "not a parameter of "+s.Name(), v)
		}
		out.Params[name] = Fixed(v)
	}
	return out, out.Validate()
}

func (s ModelSpec) value(name string, def float64) float64 {
	if p, ok := s.Params[name]; ok && !p.tune {
		return p.value
	}
	return def
}

func (s ModelSpec) String() string {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + s.Params[name].String()
	}
	return fmt.Sprintf("%s(%s)[%s]", s.Name(), s.Mode, strings.Join(parts, ", "))
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

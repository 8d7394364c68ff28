// Package metrics scores predictions against observed outcomes and keeps the
// registry of named metrics used by tuning.
package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ehoutland/tidymodels-test/data"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
)

// Direction says whether smaller or larger values of a metric are better.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Kind separates metrics on numeric estimates from metrics on class labels.
type Kind int

const (
	NumericKind Kind = iota
	ClassKind
)

// Metric is a named scoring function with an optimisation direction.
type Metric struct {
	Name      string
	Direction Direction
	Kind      Kind
	fn        func(yTrue, yPred *mat.VecDense) (float64, error)
}

// Compute applies the metric to aligned slices.
func (m Metric) Compute(truth, estimate []float64) (float64, error) {
	if len(truth) == 0 {
		return 0, errors.NewValueError(m.Name, "empty vector")
	}
	if len(estimate) != len(truth) {
		return 0, errors.NewDimensionError(m.Name, len(truth), len(estimate), 0)
	}
	return m.fn(mat.NewVecDense(len(truth), truth), mat.NewVecDense(len(estimate), estimate))
}

// Better reports whether a is strictly better than b.
func (m Metric) Better(a, b float64) bool {
	if m.Direction == Maximize {
		return a > b
	}
	return a < b
}

var (
	RMSEMetric     = Metric{Name: "rmse", Direction: Minimize, Kind: NumericKind, fn: RMSE}
	MAEMetric      = Metric{Name: "mae", Direction: Minimize, Kind: NumericKind, fn: MAE}
	RSQMetric      = Metric{Name: "rsq", Direction: Maximize, Kind: NumericKind, fn: RSQ}
	RSQTradMetric  = Metric{Name: "rsq_trad", Direction: Maximize, Kind: NumericKind, fn: R2Score}
	MAPEMetric     = Metric{Name: "mape", Direction: Minimize, Kind: NumericKind, fn: MAPE}
	AccuracyMetric = Metric{Name: "accuracy", Direction: Maximize, Kind: ClassKind, fn: Accuracy}
)

var registry = map[string]Metric{}

func init() {
	for _, m := range []Metric{RMSEMetric, MAEMetric, RSQMetric, RSQTradMetric, MAPEMetric, AccuracyMetric} {
		registry[m.Name] = m
	}
}

// Lookup returns the registered metric called name.
func Lookup(name string) (Metric, error) {
	m, ok := registry[name]
	if !ok {
		return Metric{}, errors.NewValidationError("metric", fmt.Sprintf("unknown metric, known: %v", Names()), name)
	}
	return m, nil
}

// Names lists registered metric names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set is an ordered collection of metrics computed together.
type Set []Metric

// NewSet looks up every name. Duplicates are rejected.
func NewSet(names ...string) (Set, error) {
	if len(names) == 0 {
		return nil, errors.NewValidationError("metrics", "at least one metric is required", names)
	}
	seen := make(map[string]bool, len(names))
	set := make(Set, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, errors.NewValidationError("metrics", "duplicate metric", name)
		}
		seen[name] = true
		m, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		set = append(set, m)
	}
	return set, nil
}

// Names returns the metric names in set order.
func (s Set) Names() []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.Name
	}
	return out
}

// Score computes metric over the truth and estimate columns of f. A missing
// value in either column is an error, never silently dropped.
func Score(f *data.Frame, truth, estimate string, metric Metric) (float64, error) {
	const op = "metrics.Score"
	tc, err := f.Col(truth)
	if err != nil {
		return 0, err
	}
	ec, err := f.Col(estimate)
	if err != nil {
		return 0, err
	}
	n := f.NumRows()
	if n == 0 {
		return 0, errors.NewModelError(op, "no rows", errors.ErrEmptyData)
	}
	for i := 0; i < n; i++ {
		if tc.IsMissing(i) {
			return 0, errors.NewMissingValueError(op, truth, i)
		}
		if ec.IsMissing(i) {
			return 0, errors.NewMissingValueError(op, estimate, i)
		}
	}

	if metric.Kind == ClassKind {
		t, e := labelCodes(tc, ec)
		return metric.Compute(t, e)
	}
	for _, c := range []*data.Column{tc, ec} {
		if c.Type() != data.Numeric {
			return 0, errors.NewColumnError(op, c.Name(), fmt.Sprintf("%s needs a numeric column, got %s", metric.Name, c.Type()))
		}
	}
	return metric.Compute(tc.Floats(), ec.Floats())
}

// labelCodes maps the labels of both columns onto one shared code space so
// class comparisons work even when the columns carry different level sets.
func labelCodes(tc, ec *data.Column) ([]float64, []float64) {
	codes := map[string]float64{}
	code := func(label string) float64 {
		c, ok := codes[label]
		if !ok {
			c = float64(len(codes))
			codes[label] = c
		}
		return c
	}
	n := tc.Len()
	t := make([]float64, n)
	e := make([]float64, n)
	for i := 0; i < n; i++ {
		t[i] = code(tc.Str(i))
		e[i] = code(ec.Str(i))
	}
	return t, e
}

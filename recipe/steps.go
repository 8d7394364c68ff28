package recipe

import (
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/ehoutland/tidymodels-test/data"
	"github.com/ehoutland/tidymodels-test/preprocessing"
	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
)

// baseStep carries the bookkeeping shared by trained steps.
type baseStep struct {
	name     string
	requires []string
	produces []string
}

func (b baseStep) Name() string       { return b.name }
func (b baseStep) Requires() []string { return append([]string(nil), b.requires...) }
func (b baseStep) Produces() []string { return append([]string(nil), b.produces...) }

func (b baseStep) check(f *data.Frame) error {
	for _, name := range b.requires {
		if !f.Has(name) {
			return scierrors.NewColumnError(b.name, name, "required column missing at bake")
		}
	}
	return nil
}

func columnsOf(f *data.Frame, op string, names []string, types ...data.ColumnType) ([]*data.Column, error) {
	out := make([]*data.Column, len(names))
	for i, name := range names {
		c, err := f.Col(name)
		if err != nil {
			return nil, err
		}
		ok := len(types) == 0
		for _, t := range types {
			ok = ok || c.Type() == t
		}
		if !ok {
			return nil, scierrors.NewColumnError(op, name, fmt.Sprintf("unsupported column type %s", c.Type()))
		}
		out[i] = c
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// date

type stepDate struct {
	col   string
	parts []data.DatePart
}

// StepDate replaces a date column by the requested parts. Month and day of
// week come out as categoricals and are picked up by later encoding steps.
func StepDate(col string, parts ...data.DatePart) Step {
	if len(parts) == 0 {
		parts = []data.DatePart{data.DayOfWeek, data.Month, data.Year}
	}
	return &stepDate{col: col, parts: parts}
}

func (s *stepDate) Name() string { return "date" }
func (s *stepDate) Phase() Phase { return PhaseDerive }

func (s *stepDate) Prep(f *data.Frame, _ *Roles) (TrainedStep, error) {
	if _, err := columnsOf(f, "step_date", []string{s.col}, data.Date); err != nil {
		return nil, err
	}
	produces := make([]string, len(s.parts))
	for i, p := range s.parts {
		produces[i] = s.col + "_" + string(p)
	}
	return &trainedDate{baseStep: baseStep{name: "date", requires: []string{s.col}, produces: produces}, parts: s.parts}, nil
}

type trainedDate struct {
	baseStep
	parts []data.DatePart
}

func (t *trainedDate) Bake(f *data.Frame) (*data.Frame, error) {
	if err := t.check(f); err != nil {
		return nil, err
	}
	col := t.requires[0]
	out, err := data.DateParts(col, t.parts...).Apply(f)
	if err != nil {
		return nil, err
	}
	return out.Drop(col)
}

// ---------------------------------------------------------------------------
// impute

// ImputeMethod selects the statistic used to fill missing cells.
type ImputeMethod int

const (
	ImputeMean ImputeMethod = iota
	ImputeMedian
	ImputeMode
)

func (m ImputeMethod) String() string {
	switch m {
	case ImputeMean:
		return "impute_mean"
	case ImputeMedian:
		return "impute_median"
	default:
		return "impute_mode"
	}
}

type stepImpute struct {
	method ImputeMethod
	sel    Selector
}

// StepImputeMean fills missing numeric cells with the training mean.
func StepImputeMean(sel Selector) Step { return &stepImpute{method: ImputeMean, sel: sel} }

// StepImputeMedian fills missing numeric cells with the training median.
func StepImputeMedian(sel Selector) Step { return &stepImpute{method: ImputeMedian, sel: sel} }

// StepImputeMode fills missing cells with the most frequent training value.
// For categoricals ties go to the earlier level.
func StepImputeMode(sel Selector) Step { return &stepImpute{method: ImputeMode, sel: sel} }

func (s *stepImpute) Name() string { return s.method.String() }
func (s *stepImpute) Phase() Phase { return PhaseImpute }

func (s *stepImpute) Prep(f *data.Frame, roles *Roles) (TrainedStep, error) {
	names := s.sel(f, roles)
	types := []data.ColumnType{data.Numeric}
	if s.method == ImputeMode {
		types = append(types, data.Categorical)
	}
	cols, err := columnsOf(f, s.Name(), names, types...)
	if err != nil {
		return nil, err
	}
	t := &trainedImpute{
		baseStep: baseStep{name: s.Name(), requires: names, produces: names},
		numeric:  map[string]float64{},
		label:    map[string]string{},
	}
	for _, c := range cols {
		if c.Type() == data.Categorical {
			t.label[c.Name()] = modeLevel(c)
			continue
		}
		v, err := numericFill(c, s.method)
		if err != nil {
			return nil, scierrors.Wrapf(err, "%s %s", s.Name(), c.Name())
		}
		t.numeric[c.Name()] = v
	}
	return t, nil
}

func numericFill(c *data.Column, method ImputeMethod) (float64, error) {
	present := make(stats.Float64Data, 0, c.Len())
	for _, v := range c.Floats() {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0, scierrors.NewValueError("impute", "column "+c.Name()+" has no observed values")
	}
	switch method {
	case ImputeMean:
		return stats.Mean(present)
	case ImputeMedian:
		return stats.Median(present)
	default:
		return numericMode(present), nil
	}
}

// numericMode returns the most frequent value, the smallest on ties.
func numericMode(present []float64) float64 {
	counts := make(map[float64]int, len(present))
	for _, v := range present {
		counts[v]++
	}
	best, bestN := math.Inf(1), 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

func modeLevel(c *data.Column) string {
	counts := make([]int, c.NumLevels())
	for _, code := range c.Codes() {
		if code >= 0 {
			counts[code]++
		}
	}
	best := -1
	for i, n := range counts {
		if n > 0 && (best < 0 || n > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return c.Levels()[best]
}

type trainedImpute struct {
	baseStep
	numeric map[string]float64
	label   map[string]string
}

func (t *trainedImpute) Bake(f *data.Frame) (*data.Frame, error) {
	if err := t.check(f); err != nil {
		return nil, err
	}
	out := f
	for _, name := range t.requires {
		c, _ := out.Col(name)
		var filled *data.Column
		if v, ok := t.numeric[name]; ok {
			vals := c.Floats()
			for i := range vals {
				if math.IsNaN(vals[i]) {
					vals[i] = v
				}
			}
			filled = data.NewNumeric(name, vals)
		} else {
			label := t.label[name]
			if label == "" {
				continue
			}
			labels := c.Strings()
			for i := range labels {
				if labels[i] == "" {
					labels[i] = label
				}
			}
			filled = data.NewCategoricalWithLevels(name, labels, withLevel(c.Levels(), label))
		}
		var err error
		if out, err = out.AddColumn(filled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func withLevel(levels []string, level string) []string {
	for _, l := range levels {
		if l == level {
			return levels
		}
	}
	return append(levels, level)
}

// ---------------------------------------------------------------------------
// other

type stepOther struct {
	sel       Selector
	threshold float64
	other     string
}

// StepOther pools categorical levels whose training share is below
// threshold into a single "other" level. Labels unseen during training are
// pooled too, so every selected column carries the "other" level even when
// no training level was rare.
func StepOther(sel Selector, threshold float64) Step {
	return &stepOther{sel: sel, threshold: threshold, other: "other"}
}

func (s *stepOther) Name() string { return "other" }
func (s *stepOther) Phase() Phase { return PhaseRecode }

func (s *stepOther) Prep(f *data.Frame, roles *Roles) (TrainedStep, error) {
	if s.threshold <= 0 || s.threshold >= 1 {
		return nil, scierrors.NewValidationError("threshold", "must be in (0, 1)", s.threshold)
	}
	names := s.sel(f, roles)
	cols, err := columnsOf(f, "step_other", names, data.Categorical)
	if err != nil {
		return nil, err
	}
	t := &trainedOther{
		baseStep: baseStep{name: "other", requires: names, produces: names},
		keep:     map[string][]string{},
		other:    s.other,
	}
	for _, c := range cols {
		counts := make([]int, c.NumLevels())
		total := 0
		for _, code := range c.Codes() {
			if code >= 0 {
				counts[code]++
				total++
			}
		}
		var keep, rare []string
		for i, level := range c.Levels() {
			if total > 0 && float64(counts[i])/float64(total) < s.threshold {
				rare = append(rare, level)
			} else {
				keep = append(keep, level)
			}
		}
		if len(rare) > 0 {
			scierrors.Warn(scierrors.NewRareLevelWarning(c.Name(), rare, s.other))
		}
		t.keep[c.Name()] = keep
	}
	return t, nil
}

type trainedOther struct {
	baseStep
	keep  map[string][]string
	other string
}

func (t *trainedOther) Bake(f *data.Frame) (*data.Frame, error) {
	if err := t.check(f); err != nil {
		return nil, err
	}
	out := f
	for _, name := range t.requires {
		keep := t.keep[name]
		kept := make(map[string]bool, len(keep))
		for _, l := range keep {
			kept[l] = true
		}
		c, _ := out.Col(name)
		labels := c.Strings()
		for i, l := range labels {
			if l != "" && !kept[l] {
				labels[i] = t.other
			}
		}
		levels := withLevel(append([]string(nil), keep...), t.other)
		var err error
		if out, err = out.AddColumn(data.NewCategoricalWithLevels(name, labels, levels)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// dummy

type stepDummy struct {
	sel Selector
}

// StepDummy replaces each categorical column by one indicator column per
// level except the first, which is the reference. Indicator columns are
// named "<column>_<level>". Missing or unseen labels give NaN indicators.
func StepDummy(sel Selector) Step { return &stepDummy{sel: sel} }

func (s *stepDummy) Name() string { return "dummy" }
func (s *stepDummy) Phase() Phase { return PhaseEncode }

func (s *stepDummy) Prep(f *data.Frame, roles *Roles) (TrainedStep, error) {
	names := s.sel(f, roles)
	cols, err := columnsOf(f, "step_dummy", names, data.Categorical, data.String)
	if err != nil {
		return nil, err
	}
	t := &trainedDummy{
		baseStep: baseStep{name: "dummy", requires: names},
		levels:   map[string][]string{},
	}
	for _, c := range cols {
		levels := c.Levels()
		if c.Type() == data.String {
			levels = data.NewCategorical(c.Name(), c.Strings()).Levels()
		}
		t.levels[c.Name()] = levels
		derived := dummyNames(c.Name(), levels)
		roles.Derived[c.Name()] = derived
		t.produces = append(t.produces, derived...)
	}
	return t, nil
}

func dummyNames(col string, levels []string) []string {
	if len(levels) < 2 {
		return nil
	}
	out := make([]string, len(levels)-1)
	for i, l := range levels[1:] {
		out[i] = col + "_" + strings.ReplaceAll(l, " ", "_")
	}
	return out
}

type trainedDummy struct {
	baseStep
	levels map[string][]string
}

func (t *trainedDummy) Bake(f *data.Frame) (*data.Frame, error) {
	if err := t.check(f); err != nil {
		return nil, err
	}
	out := f
	for _, name := range t.requires {
		c, _ := out.Col(name)
		levels := t.levels[name]
		indicators := dummyColumns(c, name, levels)
		var err error
		if out, err = out.Drop(name); err != nil {
			return nil, err
		}
		for _, ind := range indicators {
			if out, err = out.AddColumn(ind); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func dummyColumns(c *data.Column, name string, levels []string) []*data.Column {
	names := dummyNames(name, levels)
	pos := make(map[string]int, len(levels))
	for i, l := range levels {
		pos[l] = i
	}
	vals := make([][]float64, len(names))
	for k := range vals {
		vals[k] = make([]float64, c.Len())
	}
	for i := 0; i < c.Len(); i++ {
		code, ok := pos[c.Str(i)]
		for k := range vals {
			switch {
			case c.IsMissing(i) || !ok:
				vals[k][i] = math.NaN()
			case code == k+1:
				vals[k][i] = 1
			}
		}
	}
	cols := make([]*data.Column, len(names))
	for k, n := range names {
		cols[k] = data.NewNumeric(n, vals[k])
	}
	return cols
}

// ---------------------------------------------------------------------------
// interact

type stepInteract struct {
	terms [][]string
}

// StepInteract adds the product of the columns in each term. A term element
// naming a dummy-encoded column expands to its indicator columns, so a
// numeric×categorical term yields "a:b_level" for every indicator of b.
func StepInteract(terms ...[]string) Step { return &stepInteract{terms: terms} }

func (s *stepInteract) Name() string { return "interact" }
func (s *stepInteract) Phase() Phase { return PhaseInteract }

func (s *stepInteract) Prep(f *data.Frame, roles *Roles) (TrainedStep, error) {
	t := &trainedInteract{baseStep: baseStep{name: "interact"}}
	for _, term := range s.terms {
		if len(term) < 2 {
			return nil, scierrors.NewValidationError("interaction", "a term needs at least two columns", term)
		}
		combos := [][]string{nil}
		for _, elem := range term {
			expanded, err := expandTerm(f, roles, elem)
			if err != nil {
				return nil, err
			}
			next := make([][]string, 0, len(combos)*len(expanded))
			for _, prefix := range combos {
				for _, e := range expanded {
					next = append(next, append(append([]string(nil), prefix...), e))
				}
			}
			combos = next
			t.requires = append(t.requires, expanded...)
		}
		for _, combo := range combos {
			t.products = append(t.products, combo)
			t.produces = append(t.produces, strings.Join(combo, ":"))
		}
	}
	return t, nil
}

func expandTerm(f *data.Frame, roles *Roles, elem string) ([]string, error) {
	if derived, ok := roles.Derived[elem]; ok {
		return derived, nil
	}
	c, err := f.Col(elem)
	if err != nil {
		return nil, scierrors.NewColumnError("step_interact", elem, "interaction column not found")
	}
	if c.Type() != data.Numeric {
		return nil, scierrors.NewColumnError("step_interact", elem, "interaction needs a numeric or dummy-encoded column")
	}
	return []string{elem}, nil
}

type trainedInteract struct {
	baseStep
	products [][]string
}

func (t *trainedInteract) Bake(f *data.Frame) (*data.Frame, error) {
	if err := t.check(f); err != nil {
		return nil, err
	}
	out := f
	for k, combo := range t.products {
		vals := make([]float64, f.NumRows())
		for i := range vals {
			vals[i] = 1
		}
		for _, name := range combo {
			c, _ := f.Col(name)
			for i := range vals {
				vals[i] *= c.Float(i)
			}
		}
		var err error
		if out, err = out.AddColumn(data.NewNumeric(t.produces[k], vals)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// zero variance

type stepZeroVariance struct {
	sel Selector
}

// StepZeroVariance drops columns holding a single distinct value in training.
func StepZeroVariance(sel Selector) Step { return &stepZeroVariance{sel: sel} }

func (s *stepZeroVariance) Name() string { return "zv" }
func (s *stepZeroVariance) Phase() Phase { return PhaseFilter }

func (s *stepZeroVariance) Prep(f *data.Frame, roles *Roles) (TrainedStep, error) {
	names := s.sel(f, roles)
	cols, err := columnsOf(f, "step_zv", names)
	if err != nil {
		return nil, err
	}
	t := &trainedZeroVariance{baseStep: baseStep{name: "zv"}}
	for _, c := range cols {
		distinct := map[string]struct{}{}
		for i := 0; i < c.Len(); i++ {
			if !c.IsMissing(i) {
				distinct[c.Str(i)] = struct{}{}
			}
		}
		if len(distinct) <= 1 {
			t.requires = append(t.requires, c.Name())
		}
	}
	return t, nil
}

type trainedZeroVariance struct {
	baseStep
}

func (t *trainedZeroVariance) Bake(f *data.Frame) (*data.Frame, error) {
	if len(t.requires) == 0 {
		return f, nil
	}
	if err := t.check(f); err != nil {
		return nil, err
	}
	return f.Drop(t.requires...)
}

// ---------------------------------------------------------------------------
// normalize

type stepNormalize struct {
	sel Selector
}

// StepNormalize centers and scales numeric columns with the training mean
// and standard deviation.
func StepNormalize(sel Selector) Step { return &stepNormalize{sel: sel} }

func (s *stepNormalize) Name() string { return "normalize" }
func (s *stepNormalize) Phase() Phase { return PhaseNormalize }

func (s *stepNormalize) Prep(f *data.Frame, roles *Roles) (TrainedStep, error) {
	names := s.sel(f, roles)
	t := &trainedNormalize{
		baseStep: baseStep{name: "normalize", requires: names, produces: names},
		scaler:   preprocessing.NewStandardScalerDefault(),
	}
	if len(names) == 0 {
		return t, nil
	}
	X, err := numericMatrix(f, "step_normalize", names)
	if err != nil {
		return nil, err
	}
	if err := t.scaler.Fit(X); err != nil {
		return nil, err
	}
	return t, nil
}

type trainedNormalize struct {
	baseStep
	scaler *preprocessing.StandardScaler
}

func (t *trainedNormalize) Bake(f *data.Frame) (*data.Frame, error) {
	if len(t.requires) == 0 || f.NumRows() == 0 {
		return f, nil
	}
	if err := t.check(f); err != nil {
		return nil, err
	}
	X, err := numericMatrix(f, "step_normalize", t.requires)
	if err != nil {
		return nil, err
	}
	scaled, err := t.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	out := f
	for j, name := range t.requires {
		if out, err = out.AddColumn(data.NewNumeric(name, mat.Col(nil, j, scaled))); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func numericMatrix(f *data.Frame, op string, names []string) (*mat.Dense, error) {
	cols, err := columnsOf(f, op, names, data.Numeric)
	if err != nil {
		return nil, err
	}
	X := mat.NewDense(f.NumRows(), len(cols), nil)
	for j, c := range cols {
		X.SetCol(j, c.Floats())
	}
	return X, nil
}

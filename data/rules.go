package data

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
)

var nan = math.NaN()

// Rule is one column transformation. Rules never modify their input frame.
type Rule interface {
	Name() string
	Apply(f *Frame) (*Frame, error)
}

type ruleFunc struct {
	name string
	fn   func(*Frame) (*Frame, error)
}

func (r ruleFunc) Name() string                   { return r.name }
func (r ruleFunc) Apply(f *Frame) (*Frame, error) { return r.fn(f) }

// NewRule adapts a function into a Rule.
func NewRule(name string, fn func(*Frame) (*Frame, error)) Rule {
	return ruleFunc{name: name, fn: fn}
}

// Transform applies rules in declared order. A rule that references a column
// which does not exist yet fails with a ColumnError, so derivations must be
// listed before the filters that depend on them.
func Transform(f *Frame, rules ...Rule) (*Frame, error) {
	logger := log.GetLoggerWithName("data")
	out := f
	for i, r := range rules {
		next, err := r.Apply(out)
		if err != nil {
			return nil, scierrors.Wrapf(err, "rule %d (%s)", i, r.Name())
		}
		logger.Debug("rule applied",
			log.OperationKey, log.OperationTransform,
			log.StepKey, r.Name(),
			log.SamplesKey, next.NumRows(),
			log.FeaturesKey, next.NumCols(),
		)
		out = next
	}
	return out, nil
}

// Clean is Transform followed by a single DropMissing over every retained
// column, so rows are only excluded once all derivations have run.
func Clean(f *Frame, rules ...Rule) (*Frame, error) {
	return Transform(f, append(append([]Rule(nil), rules...), DropMissing())...)
}

func requireColumns(f *Frame, op string, names ...string) error {
	for _, n := range names {
		if !f.Has(n) {
			return scierrors.NewColumnError(op, n, "no such column")
		}
	}
	return nil
}

// Rename renames a column, keeping its position.
func Rename(from, to string) Rule {
	return NewRule("rename", func(f *Frame) (*Frame, error) {
		c, err := f.Col(from)
		if err != nil {
			return nil, err
		}
		if from != to && f.Has(to) {
			return nil, scierrors.NewColumnError("rename", to, "column already exists")
		}
		cols := f.Columns()
		cols[f.index[from]] = c.Rename(to)
		return NewFrame(cols...)
	})
}

// Cast converts a column to another type. Cells that cannot be converted
// become missing and are reported through a DataConversionWarning.
func Cast(col string, to ColumnType) Rule {
	return NewRule("cast", func(f *Frame) (*Frame, error) {
		c, err := f.Col(col)
		if err != nil {
			return nil, err
		}
		cast, err := castColumn(c, to)
		if err != nil {
			return nil, err
		}
		return f.AddColumn(cast)
	})
}

// ParseDate converts a text column to Date using layout.
func ParseDate(col, layout string) Rule {
	return NewRule("parse_date", func(f *Frame) (*Frame, error) {
		c, err := f.Col(col)
		if err != nil {
			return nil, err
		}
		missing := make([]bool, c.Len())
		for i := range missing {
			missing[i] = c.IsMissing(i)
		}
		return f.AddColumn(parseDates(col, c.Strings(), missing, layout))
	})
}

func castColumn(c *Column, to ColumnType) (*Column, error) {
	if c.Type() == to {
		return c, nil
	}
	n := c.Len()
	switch to {
	case Numeric:
		vals := make([]float64, n)
		bad := 0
		for i := range vals {
			if c.IsMissing(i) {
				vals[i] = nan
				continue
			}
			if c.Type() == Date {
				vals[i] = c.Float(i)
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(c.Str(i)), 64)
			if err != nil {
				bad++
				v = nan
			}
			vals[i] = v
		}
		if bad > 0 {
			scierrors.Warn(scierrors.NewDataConversionWarning(c.Type().String(), "numeric", "unparseable value in "+c.Name(), bad))
		}
		return NewNumeric(c.Name(), vals), nil
	case String:
		valid := make([]bool, n)
		for i := range valid {
			valid[i] = !c.IsMissing(i)
		}
		return NewString(c.Name(), c.Strings(), valid), nil
	case Categorical:
		if c.Type() == Numeric {
			return numericToCategorical(c), nil
		}
		return NewCategorical(c.Name(), c.Strings()), nil
	case Date:
		missing := make([]bool, n)
		for i := range missing {
			missing[i] = c.IsMissing(i)
		}
		return parseDates(c.Name(), c.Strings(), missing, time.DateOnly), nil
	default:
		return nil, scierrors.NewValueError("cast", fmt.Sprintf("unknown column type %d", to))
	}
}

// numericToCategorical orders levels by numeric value rather than by text.
func numericToCategorical(c *Column) *Column {
	distinct := map[float64]struct{}{}
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			distinct[c.Float(i)] = struct{}{}
		}
	}
	vals := make([]float64, 0, len(distinct))
	for v := range distinct {
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	levels := make([]string, len(vals))
	for i, v := range vals {
		levels[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return NewCategoricalWithLevels(c.Name(), c.Strings(), levels)
}

// Derive computes a new column row by row from the declared inputs. fn must
// return float64 for Numeric, string for Categorical or String, time.Time for
// Date, or nil for a missing cell. Rows where any input is missing yield a
// missing cell without calling fn.
func Derive(name string, typ ColumnType, inputs []string, fn func(r Row) any) Rule {
	return NewRule("derive "+name, func(f *Frame) (*Frame, error) {
		if err := requireColumns(f, "derive", inputs...); err != nil {
			return nil, err
		}
		n := f.NumRows()
		nums := make([]float64, n)
		strs := make([]string, n)
		times := make([]time.Time, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			nums[i] = nan
			row := Row{frame: f, i: i}
			skip := false
			for _, in := range inputs {
				if row.Missing(in) {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
			switch v := fn(row).(type) {
			case nil:
			case float64:
				nums[i], valid[i] = v, true
			case int:
				nums[i], valid[i] = float64(v), true
			case string:
				strs[i], valid[i] = v, true
			case time.Time:
				times[i], valid[i] = v, !v.IsZero()
			default:
				return nil, scierrors.NewValueError("derive", fmt.Sprintf("column %q: unsupported value %T", name, v))
			}
		}
		var col *Column
		switch typ {
		case Numeric:
			col = NewNumeric(name, nums)
		case Categorical:
			for i := range strs {
				if !valid[i] {
					strs[i] = ""
				}
			}
			col = NewCategorical(name, strs)
		case Date:
			col = NewDate(name, times)
		default:
			col = NewString(name, strs, valid)
		}
		return f.AddColumn(col)
	})
}

// Threshold recodes a numeric column into a two-level categorical column:
// values below cut become below, the rest atOrAbove. Level order is
// below, atOrAbove.
func Threshold(src, dst string, cut float64, below, atOrAbove string) Rule {
	return NewRule("threshold "+dst, func(f *Frame) (*Frame, error) {
		c, err := f.Col(src)
		if err != nil {
			return nil, err
		}
		if c.Type() != Numeric {
			return nil, scierrors.NewColumnError("threshold", src, "column is not numeric")
		}
		codes := make([]int, c.Len())
		for i := range codes {
			switch v := c.Float(i); {
			case math.IsNaN(v):
				codes[i] = -1
			case v < cut:
				codes[i] = 0
			default:
				codes[i] = 1
			}
		}
		return f.AddColumn(NewCategoricalFromCodes(dst, codes, []string{below, atOrAbove}))
	})
}

// Log replaces a numeric column with its logarithm in base. Non-positive
// values become missing.
func Log(col string, base float64) Rule {
	return NewRule("log "+col, func(f *Frame) (*Frame, error) {
		c, err := f.Col(col)
		if err != nil {
			return nil, err
		}
		if c.Type() != Numeric {
			return nil, scierrors.NewColumnError("log", col, "column is not numeric")
		}
		if base <= 0 || base == 1 {
			return nil, scierrors.NewValidationError("base", "must be positive and not 1", base)
		}
		denom := math.Log(base)
		vals := c.Floats()
		bad := 0
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if v <= 0 {
				vals[i] = nan
				bad++
				continue
			}
			vals[i] = math.Log(v) / denom
		}
		if bad > 0 {
			scierrors.Warn(scierrors.NewDataConversionWarning("numeric", "log", "non-positive value in "+col, bad))
		}
		return f.AddColumn(NewNumeric(col, vals))
	})
}

// DatePart names a component extracted by DateParts.
type DatePart string

const (
	Year      DatePart = "year"
	Month     DatePart = "month"
	DayOfWeek DatePart = "dow"
	DayOfYear DatePart = "doy"
)

var monthLevels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
var dowLevels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DateParts adds one column per part named "<col>_<part>". Year and day of
// year are numeric; month and day of week are categorical in calendar order.
func DateParts(col string, parts ...DatePart) Rule {
	return NewRule("date_parts "+col, func(f *Frame) (*Frame, error) {
		c, err := f.Col(col)
		if err != nil {
			return nil, err
		}
		if c.Type() != Date {
			return nil, scierrors.NewColumnError("date_parts", col, "column is not a date")
		}
		out := f
		for _, p := range parts {
			part, err := datePartColumn(c, p)
			if err != nil {
				return nil, err
			}
			if out, err = out.AddColumn(part); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

func datePartColumn(c *Column, p DatePart) (*Column, error) {
	name := c.Name() + "_" + string(p)
	n := c.Len()
	switch p {
	case Year, DayOfYear:
		vals := make([]float64, n)
		for i := range vals {
			t, ok := c.Time(i)
			switch {
			case !ok:
				vals[i] = nan
			case p == Year:
				vals[i] = float64(t.Year())
			default:
				vals[i] = float64(t.YearDay())
			}
		}
		return NewNumeric(name, vals), nil
	case Month, DayOfWeek:
		codes := make([]int, n)
		for i := range codes {
			t, ok := c.Time(i)
			switch {
			case !ok:
				codes[i] = -1
			case p == Month:
				codes[i] = int(t.Month()) - 1
			default:
				codes[i] = int(t.Weekday())
			}
		}
		levels := monthLevels
		if p == DayOfWeek {
			levels = dowLevels
		}
		return NewCategoricalFromCodes(name, codes, levels), nil
	default:
		return nil, scierrors.NewValidationError("part", "unknown date part", string(p))
	}
}

// ToCategorical converts the named columns to categoricals with sorted levels.
func ToCategorical(cols ...string) Rule {
	return NewRule("to_categorical", func(f *Frame) (*Frame, error) {
		out := f
		for _, name := range cols {
			c, err := out.Col(name)
			if err != nil {
				return nil, err
			}
			if c.Type() == Date {
				return nil, scierrors.NewColumnError("to_categorical", name, "date columns cannot be categorical")
			}
			cat, err := castColumn(c, Categorical)
			if err != nil {
				return nil, err
			}
			if out, err = out.AddColumn(cat); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

// StringsToCategorical converts every String column to Categorical.
func StringsToCategorical() Rule {
	return NewRule("strings_to_categorical", func(f *Frame) (*Frame, error) {
		var names []string
		for _, c := range f.cols {
			if c.Type() == String {
				names = append(names, c.Name())
			}
		}
		return ToCategorical(names...).Apply(f)
	})
}

// Filter keeps the rows for which keep returns true. Every column keep reads
// must be listed in inputs.
func Filter(inputs []string, keep func(r Row) bool) Rule {
	return NewRule("filter", func(f *Frame) (*Frame, error) {
		if err := requireColumns(f, "filter", inputs...); err != nil {
			return nil, err
		}
		idx := make([]int, 0, f.NumRows())
		for i := 0; i < f.NumRows(); i++ {
			if keep(Row{frame: f, i: i}) {
				idx = append(idx, i)
			}
		}
		return f.Rows(idx), nil
	})
}

// Select keeps only the named columns, in the given order.
func Select(cols ...string) Rule {
	return NewRule("select", func(f *Frame) (*Frame, error) {
		return f.Select(cols...)
	})
}

// DropColumns removes the named columns.
func DropColumns(cols ...string) Rule {
	return NewRule("drop_columns", func(f *Frame) (*Frame, error) {
		return f.Drop(cols...)
	})
}

// DropMissing removes every row with a missing cell in any column.
func DropMissing() Rule {
	return NewRule("drop_missing", func(f *Frame) (*Frame, error) {
		idx := make([]int, 0, f.NumRows())
	rows:
		for i := 0; i < f.NumRows(); i++ {
			for _, c := range f.cols {
				if c.IsMissing(i) {
					continue rows
				}
			}
			idx = append(idx, i)
		}
		if dropped := f.NumRows() - len(idx); dropped > 0 {
			log.GetLoggerWithName("data").Debug("rows with missing values dropped",
				log.DroppedKey, dropped,
				log.SamplesKey, len(idx),
			)
		}
		return f.Rows(idx), nil
	})
}

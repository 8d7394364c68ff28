package data

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// ColumnType is the storage type of a Column.
type ColumnType int

const (
	Numeric ColumnType = iota
	Categorical
	Date
	String
)

func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Date:
		return "date"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// DateLayout is used when a Date cell is rendered as text.
const DateLayout = "2006-01-02"

// Column is an immutable typed vector. Missing cells are NaN for Numeric,
// code -1 for Categorical and an unset validity flag for Date and String.
type Column struct {
	name string
	typ  ColumnType

	nums   []float64
	codes  []int
	levels []string
	times  []time.Time
	strs   []string
	valid  []bool
}

// NewNumeric builds a numeric column. NaN marks a missing cell.
func NewNumeric(name string, values []float64) *Column {
	return &Column{name: name, typ: Numeric, nums: append([]float64(nil), values...)}
}

// NewCategorical builds a categorical column from labels. The empty string is
// missing. Levels are the distinct labels in sorted order.
func NewCategorical(name string, values []string) *Column {
	seen := map[string]struct{}{}
	for _, v := range values {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return NewCategoricalWithLevels(name, values, levels)
}

// NewCategoricalWithLevels builds a categorical column with an explicit level
// order. Labels outside levels, and empty labels, become missing.
func NewCategoricalWithLevels(name string, values []string, levels []string) *Column {
	pos := make(map[string]int, len(levels))
	for i, l := range levels {
		pos[l] = i
	}
	codes := make([]int, len(values))
	for i, v := range values {
		if c, ok := pos[v]; ok {
			codes[i] = c
		} else {
			codes[i] = -1
		}
	}
	return &Column{name: name, typ: Categorical, codes: codes, levels: append([]string(nil), levels...)}
}

// NewCategoricalFromCodes builds a categorical column from level codes.
// Codes outside [0, len(levels)) are treated as missing.
func NewCategoricalFromCodes(name string, codes []int, levels []string) *Column {
	c := make([]int, len(codes))
	for i, code := range codes {
		if code < 0 || code >= len(levels) {
			code = -1
		}
		c[i] = code
	}
	return &Column{name: name, typ: Categorical, codes: c, levels: append([]string(nil), levels...)}
}

// NewDate builds a date column. The zero time is missing.
func NewDate(name string, values []time.Time) *Column {
	valid := make([]bool, len(values))
	for i, v := range values {
		valid[i] = !v.IsZero()
	}
	return &Column{name: name, typ: Date, times: append([]time.Time(nil), values...), valid: valid}
}

// NewString builds a free-text column. A nil valid slice marks every cell present.
func NewString(name string, values []string, valid []bool) *Column {
	v := make([]bool, len(values))
	for i := range v {
		v[i] = valid == nil || valid[i]
	}
	return &Column{name: name, typ: String, strs: append([]string(nil), values...), valid: v}
}

func (c *Column) Name() string     { return c.name }
func (c *Column) Type() ColumnType { return c.typ }

func (c *Column) Len() int {
	switch c.typ {
	case Numeric:
		return len(c.nums)
	case Categorical:
		return len(c.codes)
	case Date:
		return len(c.times)
	default:
		return len(c.strs)
	}
}

// IsMissing reports whether row i has no value.
func (c *Column) IsMissing(i int) bool {
	switch c.typ {
	case Numeric:
		return math.IsNaN(c.nums[i])
	case Categorical:
		return c.codes[i] < 0
	default:
		return !c.valid[i]
	}
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Float returns the numeric value of row i. Categorical cells yield their
// level code and Date cells their Unix day number. Missing and String cells
// yield NaN.
func (c *Column) Float(i int) float64 {
	if c.IsMissing(i) {
		return math.NaN()
	}
	switch c.typ {
	case Numeric:
		return c.nums[i]
	case Categorical:
		return float64(c.codes[i])
	case Date:
		return float64(c.times[i].Unix() / 86400)
	default:
		return math.NaN()
	}
}

// Floats returns a copy of the values as float64, see Float.
func (c *Column) Floats() []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		out[i] = c.Float(i)
	}
	return out
}

// Code returns the level code of row i, or -1.
func (c *Column) Code(i int) int {
	if c.typ != Categorical {
		return -1
	}
	return c.codes[i]
}

// Codes returns a copy of the level codes. It is nil for non-categorical columns.
func (c *Column) Codes() []int {
	if c.typ != Categorical {
		return nil
	}
	return append([]int(nil), c.codes...)
}

// Levels returns a copy of the ordered category levels.
func (c *Column) Levels() []string {
	return append([]string(nil), c.levels...)
}

// NumLevels returns the number of category levels.
func (c *Column) NumLevels() int { return len(c.levels) }

// Str renders row i as text. Missing cells render as the empty string.
func (c *Column) Str(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	switch c.typ {
	case Numeric:
		return strconv.FormatFloat(c.nums[i], 'g', -1, 64)
	case Categorical:
		return c.levels[c.codes[i]]
	case Date:
		return c.times[i].Format(DateLayout)
	default:
		return c.strs[i]
	}
}

// Strings renders every row, see Str.
func (c *Column) Strings() []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Str(i)
	}
	return out
}

// Time returns the date in row i and whether it is present.
func (c *Column) Time(i int) (time.Time, bool) {
	if c.typ != Date || !c.valid[i] {
		return time.Time{}, false
	}
	return c.times[i], true
}

// Rename returns a copy of the column under a new name. Storage is shared.
func (c *Column) Rename(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// Subset returns the rows at idx in order. Categorical levels are kept even
// when a level no longer occurs.
func (c *Column) Subset(idx []int) *Column {
	out := &Column{name: c.name, typ: c.typ, levels: c.levels}
	switch c.typ {
	case Numeric:
		out.nums = make([]float64, len(idx))
		for j, i := range idx {
			out.nums[j] = c.nums[i]
		}
	case Categorical:
		out.codes = make([]int, len(idx))
		for j, i := range idx {
			out.codes[j] = c.codes[i]
		}
	case Date:
		out.times = make([]time.Time, len(idx))
		out.valid = make([]bool, len(idx))
		for j, i := range idx {
			out.times[j] = c.times[i]
			out.valid[j] = c.valid[i]
		}
	default:
		out.strs = make([]string, len(idx))
		out.valid = make([]bool, len(idx))
		for j, i := range idx {
			out.strs[j] = c.strs[i]
			out.valid[j] = c.valid[i]
		}
	}
	return out
}

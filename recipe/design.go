package recipe

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ehoutland/tidymodels-test/core/parallel"
	"github.com/ehoutland/tidymodels-test/data"
	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
)

// Encoding chooses how categorical predictors left after baking enter the
// design matrix.
type Encoding int

const (
	// DummyEncoding adds one indicator per non-reference level.
	DummyEncoding Encoding = iota
	// LevelEncoding stores the training level index in a single column.
	LevelEncoding
)

// rowParallelThreshold is the row count below which matrices are filled
// on the calling goroutine.
const rowParallelThreshold = 2048

type designColumn struct {
	source string
	// level is the training level this indicator marks, or -1 for a plain
	// numeric column or a level-coded factor.
	level  int
	levels map[string]int
}

func (p *Prepped) plan(enc Encoding) ([]designColumn, []string) {
	var cols []designColumn
	var names []string
	for _, name := range p.design {
		levels, isFactor := p.factors[name]
		if !isFactor {
			cols = append(cols, designColumn{source: name, level: -1})
			names = append(names, name)
			continue
		}
		pos := make(map[string]int, len(levels))
		for i, l := range levels {
			pos[l] = i
		}
		if enc == LevelEncoding {
			cols = append(cols, designColumn{source: name, level: -1, levels: pos})
			names = append(names, name)
			continue
		}
		for k, dn := range dummyNames(name, levels) {
			cols = append(cols, designColumn{source: name, level: k + 1, levels: pos})
			names = append(names, dn)
		}
	}
	return cols, names
}

// Matrix converts a baked frame into a design matrix and returns the column
// names. Missing cells and labels unseen in training become NaN.
func (p *Prepped) Matrix(baked *data.Frame, enc Encoding) (*mat.Dense, []string, error) {
	n := baked.NumRows()
	if n == 0 {
		return nil, nil, scierrors.Wrap(scierrors.ErrEmptyData, "design matrix")
	}
	plan, names := p.plan(enc)
	if len(plan) == 0 {
		return nil, nil, scierrors.NewValidationError("predictors", "no predictor columns left after baking", 0)
	}
	sources := make([]*data.Column, len(plan))
	for j, dc := range plan {
		c, err := baked.Col(dc.source)
		if err != nil {
			return nil, nil, err
		}
		sources[j] = c
	}

	X := mat.NewDense(n, len(plan), nil)
	parallel.ParallelizeWithThreshold(n, rowParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j, dc := range plan {
				X.Set(i, j, designValue(sources[j], i, dc))
			}
		}
	})
	return X, names, nil
}

func designValue(c *data.Column, i int, dc designColumn) float64 {
	if dc.levels == nil {
		return c.Float(i)
	}
	if c.IsMissing(i) {
		return math.NaN()
	}
	code, ok := dc.levels[c.Str(i)]
	switch {
	case !ok:
		return math.NaN()
	case dc.level < 0:
		return float64(code)
	case code == dc.level:
		return 1
	default:
		return 0
	}
}

// Design bakes f and converts it to a design matrix.
func (p *Prepped) Design(f *data.Frame, enc Encoding) (*mat.Dense, []string, error) {
	baked, err := p.Bake(f)
	if err != nil {
		return nil, nil, err
	}
	return p.Matrix(baked, enc)
}

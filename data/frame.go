// Package data holds the typed columnar Frame, CSV loading and the ordered
// column transformation rules used to clean a raw table.
package data

import (
	"fmt"

	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
)

// Frame is an ordered set of equally long named columns. Frames and their
// columns are never mutated in place; every operation returns a new Frame
// that may share column storage with its source.
type Frame struct {
	cols  []*Column
	index map[string]int
	nrows int
}

// NewFrame assembles columns into a Frame. Names must be unique and lengths equal.
func NewFrame(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.Name()]; dup {
			return nil, scierrors.NewColumnError("NewFrame", c.Name(), "duplicate column name")
		}
		if i == 0 {
			f.nrows = c.Len()
		} else if c.Len() != f.nrows {
			return nil, scierrors.NewDimensionError("NewFrame", f.nrows, c.Len(), 0)
		}
		f.index[c.Name()] = i
	}
	f.cols = append([]*Column(nil), cols...)
	return f, nil
}

// MustFrame is NewFrame that panics on error. It is meant for literals in
// tests and examples.
func MustFrame(cols ...*Column) *Frame {
	f, err := NewFrame(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Frame) NumRows() int { return f.nrows }
func (f *Frame) NumCols() int { return len(f.cols) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name()
	}
	return names
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Col returns the named column or a ColumnError.
func (f *Frame) Col(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, scierrors.NewColumnError("Col", name, "no such column")
	}
	return f.cols[i], nil
}

// Columns returns the columns in order.
func (f *Frame) Columns() []*Column {
	return append([]*Column(nil), f.cols...)
}

// Levels returns the levels of a categorical column.
func (f *Frame) Levels(name string) ([]string, error) {
	c, err := f.Col(name)
	if err != nil {
		return nil, err
	}
	if c.Type() != Categorical {
		return nil, scierrors.NewColumnError("Levels", name, fmt.Sprintf("column is %s, not categorical", c.Type()))
	}
	return c.Levels(), nil
}

// Rows returns a frame holding the given rows in the given order.
func (f *Frame) Rows(idx []int) *Frame {
	cols := make([]*Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.Subset(idx)
	}
	return &Frame{cols: cols, index: f.index, nrows: len(idx)}
}

// Clone returns a shallow copy. Columns are immutable so sharing them is safe.
func (f *Frame) Clone() *Frame {
	index := make(map[string]int, len(f.index))
	for k, v := range f.index {
		index[k] = v
	}
	return &Frame{cols: append([]*Column(nil), f.cols...), index: index, nrows: f.nrows}
}

// AddColumn returns a frame with col appended, or replacing the column of the
// same name in place.
func (f *Frame) AddColumn(col *Column) (*Frame, error) {
	if len(f.cols) > 0 && col.Len() != f.nrows {
		return nil, scierrors.NewDimensionError("AddColumn", f.nrows, col.Len(), 0)
	}
	out := f.Clone()
	if len(f.cols) == 0 {
		out.nrows = col.Len()
	}
	if i, ok := out.index[col.Name()]; ok {
		out.cols[i] = col
		return out, nil
	}
	out.index[col.Name()] = len(out.cols)
	out.cols = append(out.cols, col)
	return out, nil
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if !f.Has(n) {
			return nil, scierrors.NewColumnError("Drop", n, "no such column")
		}
		drop[n] = true
	}
	kept := make([]*Column, 0, len(f.cols))
	for _, c := range f.cols {
		if !drop[c.Name()] {
			kept = append(kept, c)
		}
	}
	return f.withColumns(kept), nil
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, len(names))
	for i, n := range names {
		c, err := f.Col(n)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return NewFrame(cols...)
}

func (f *Frame) withColumns(cols []*Column) *Frame {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name()] = i
	}
	return &Frame{cols: cols, index: index, nrows: f.nrows}
}

// Row is a read-only view of one row, handed to Derive and Filter callbacks.
type Row struct {
	frame *Frame
	i     int
}

// Index is the row position within the frame.
func (r Row) Index() int { return r.i }

// Float returns the numeric value of the named cell, NaN when missing or absent.
func (r Row) Float(name string) float64 {
	c, err := r.frame.Col(name)
	if err != nil {
		return nan
	}
	return c.Float(r.i)
}

// Str returns the text of the named cell, empty when missing or absent.
func (r Row) Str(name string) string {
	c, err := r.frame.Col(name)
	if err != nil {
		return ""
	}
	return c.Str(r.i)
}

// Missing reports whether the named cell is missing or absent.
func (r Row) Missing(name string) bool {
	c, err := r.frame.Col(name)
	if err != nil {
		return true
	}
	return c.IsMissing(r.i)
}

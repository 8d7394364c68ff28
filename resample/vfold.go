package resample

import (
	"fmt"
	"sort"

	"github.com/ehoutland/tidymodels-test/data"
	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
)

// Fold is one cross-validation resample. Train rows form the analysis set
// and Test rows the assessment set.
type Fold struct {
	ID    string
	Train []int
	Test  []int
}

// Analysis returns the rows a model is fitted on for fold.
func Analysis(f *data.Frame, fold Fold) *data.Frame { return f.Rows(fold.Train) }

// Assessment returns the held-out rows of fold.
func Assessment(f *data.Frame, fold Fold) *data.Frame { return f.Rows(fold.Test) }

// VFold partitions the rows into v folds whose sizes differ by at most one.
// Each row lands in exactly one assessment set. With WithStrata each bucket
// is shuffled and dealt across the folds in turn, continuing from where the
// previous bucket stopped, so every fold receives its share of every bucket.
func VFold(f *data.Frame, v int, seed int64, opts ...Option) ([]Fold, error) {
	n := f.NumRows()
	if v < 2 {
		return nil, scierrors.NewValidationError("v", "must be at least 2", v)
	}
	if v > n {
		return nil, scierrors.NewValidationError("v", fmt.Sprintf("must not exceed the %d rows", n), v)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	groups := [][]int{seq(n)}
	if o.strata != "" {
		var err error
		if groups, err = Strata(f, o.strata, o.breaks, o.pool); err != nil {
			return nil, err
		}
	}

	r := newRand(seed)
	assign := make([]int, n)
	next := 0
	for _, g := range groups {
		g = append([]int(nil), g...)
		r.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
		for _, row := range g {
			assign[row] = next
			next = (next + 1) % v
		}
	}

	folds := make([]Fold, v)
	for k := range folds {
		folds[k].ID = fmt.Sprintf("Fold%d", k+1)
	}
	for row, k := range assign {
		for j := range folds {
			if j == k {
				folds[j].Test = append(folds[j].Test, row)
			} else {
				folds[j].Train = append(folds[j].Train, row)
			}
		}
	}
	for k := range folds {
		sort.Ints(folds[k].Test)
		sort.Ints(folds[k].Train)
	}

	log.GetLoggerWithName("resample").Debug("v-fold cross-validation",
		log.OperationKey, log.OperationSplit,
		log.SamplesKey, n,
		log.FoldsKey, v,
		log.StrataKey, o.strata,
	)
	return folds, nil
}

// Package resample partitions the rows of a data.Frame into train/test
// splits and cross-validation folds. Every partition is driven by an
// explicit seed so the same seed and row order reproduce it exactly.
package resample

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/ehoutland/tidymodels-test/data"
	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
)

// Split is a partition of row indices into training and testing rows.
type Split struct {
	Train []int
	Test  []int
}

// Training returns the training rows of f.
func (s Split) Training(f *data.Frame) *data.Frame { return f.Rows(s.Train) }

// Testing returns the testing rows of f.
func (s Split) Testing(f *data.Frame) *data.Frame { return f.Rows(s.Test) }

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func seq(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// InitialSplit shuffles the rows once and puts floor(prop*n) of them in the
// training set. With WithStrata the cut is made inside each bucket; rows
// left over by flooring per bucket go to the buckets with the largest
// fractional share, so the training size is still floor(prop*n).
// Index slices are returned in ascending order.
func InitialSplit(f *data.Frame, prop float64, seed int64, opts ...Option) (Split, error) {
	if !(prop > 0 && prop < 1) {
		return Split{}, scierrors.NewValidationError("prop", "must be in (0, 1)", prop)
	}
	n := f.NumRows()
	if n < 2 {
		return Split{}, scierrors.Wrap(scierrors.ErrEmptyData, "initial split needs at least 2 rows")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	groups := [][]int{seq(n)}
	if o.strata != "" {
		var err error
		if groups, err = Strata(f, o.strata, o.breaks, o.pool); err != nil {
			return Split{}, err
		}
	}

	quota := trainQuota(groups, prop, n)
	r := newRand(seed)
	var split Split
	for k, g := range groups {
		g = append([]int(nil), g...)
		r.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
		nTrain := quota[k]
		split.Train = append(split.Train, g[:nTrain]...)
		split.Test = append(split.Test, g[nTrain:]...)
	}
	sort.Ints(split.Train)
	sort.Ints(split.Test)

	log.GetLoggerWithName("resample").Debug("initial split",
		log.OperationKey, log.OperationSplit,
		log.SamplesKey, n,
		log.AnalysisKey, len(split.Train),
		log.AssessmentKey, len(split.Test),
		log.StrataKey, o.strata,
	)
	return split, nil
}

// trainQuota splits floor(prop*n) training rows across groups by largest
// remainder. Ties go to the earlier group.
func trainQuota(groups [][]int, prop float64, n int) []int {
	quota := make([]int, len(groups))
	frac := make([]float64, len(groups))
	left := int(math.Floor(prop * float64(n)))
	for k, g := range groups {
		share := prop * float64(len(g))
		quota[k] = int(math.Floor(share))
		frac[k] = share - float64(quota[k])
		left -= quota[k]
	}
	order := seq(len(groups))
	sort.SliceStable(order, func(a, b int) bool { return frac[order[a]] > frac[order[b]] })
	for _, k := range order {
		if left <= 0 {
			break
		}
		if quota[k] < len(groups[k]) {
			quota[k]++
			left--
		}
	}
	return quota
}

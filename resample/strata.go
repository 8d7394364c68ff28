package resample

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/ehoutland/tidymodels-test/data"
	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
)

const (
	// DefaultBreaks is the number of quantile buckets for numeric strata.
	DefaultBreaks = 4
	// DefaultPool is the smallest bucket share kept on its own.
	DefaultPool = 0.1
)

// Option configures InitialSplit and VFold.
type Option func(*options)

type options struct {
	strata string
	breaks int
	pool   float64
}

func defaultOptions() *options {
	return &options{breaks: DefaultBreaks, pool: DefaultPool}
}

// WithStrata stratifies the resample on a column. Categorical columns give
// one bucket per level, numeric columns are cut at quantiles.
func WithStrata(col string) Option {
	return func(o *options) { o.strata = col }
}

// WithBreaks sets the number of quantile buckets for a numeric strata column.
func WithBreaks(n int) Option {
	return func(o *options) { o.breaks = n }
}

// WithPool sets the minimum bucket share. Buckets holding fewer than
// pool*n rows are merged into a neighbour.
func WithPool(p float64) Option {
	return func(o *options) { o.pool = p }
}

// Strata assigns every row to a bucket and returns the buckets in
// deterministic order: numeric buckets ascend by value, categorical buckets
// follow level order, and missing values form a final bucket.
func Strata(f *data.Frame, col string, breaks int, pool float64) ([][]int, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	if breaks < 2 {
		return nil, scierrors.NewValidationError("breaks", "must be at least 2", breaks)
	}
	if pool < 0 || pool >= 0.5 {
		return nil, scierrors.NewValidationError("pool", "must be in [0, 0.5)", pool)
	}

	var keys []int
	switch c.Type() {
	case data.Numeric:
		keys = numericBuckets(c, breaks)
	case data.Categorical:
		keys = c.Codes()
	default:
		return nil, scierrors.NewColumnError("strata", col, "column must be numeric or categorical")
	}

	maxKey := -1
	for _, k := range keys {
		if k > maxKey {
			maxKey = k
		}
	}
	buckets := make([][]int, maxKey+2)
	for i, k := range keys {
		if k < 0 {
			k = maxKey + 1
		}
		buckets[k] = append(buckets[k], i)
	}
	nonEmpty := buckets[:0]
	for _, b := range buckets {
		if len(b) > 0 {
			nonEmpty = append(nonEmpty, b)
		}
	}
	return poolBuckets(nonEmpty, int(math.Floor(pool*float64(f.NumRows())))), nil
}

// numericBuckets cuts at the interior quantiles. Row i falls in the bucket
// of the first cut point >= its value; missing values get -1.
func numericBuckets(c *data.Column, breaks int) []int {
	vals := c.Floats()
	present := make(stats.Float64Data, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	var cuts []float64
	for k := 1; k < breaks; k++ {
		q, err := stats.Percentile(present, 100*float64(k)/float64(breaks))
		if err != nil {
			continue
		}
		if len(cuts) == 0 || q > cuts[len(cuts)-1] {
			cuts = append(cuts, q)
		}
	}
	keys := make([]int, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			keys[i] = -1
			continue
		}
		keys[i] = sort.SearchFloat64s(cuts, v)
	}
	return keys
}

// poolBuckets merges each bucket below minSize into its right neighbour, or
// its left neighbour when it is last, until every bucket is large enough or
// a single bucket remains.
func poolBuckets(buckets [][]int, minSize int) [][]int {
	for len(buckets) > 1 {
		small := -1
		for i, b := range buckets {
			if len(b) < minSize {
				small = i
				break
			}
		}
		if small < 0 {
			break
		}
		into := small + 1
		if into == len(buckets) {
			into = small - 1
		}
		lo, hi := small, into
		if lo > hi {
			lo, hi = hi, lo
		}
		merged := append(append([]int(nil), buckets[lo]...), buckets[hi]...)
		sort.Ints(merged)
		next := append([][]int(nil), buckets[:lo]...)
		next = append(next, merged)
		buckets = append(next, buckets[hi+1:]...)
	}
	return buckets
}

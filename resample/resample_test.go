package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehoutland/tidymodels-test/data"
)

func numericFrame(n int) *data.Frame {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return data.MustFrame(data.NewNumeric("x", x))
}

func classFrame() *data.Frame {
	labels := make([]string, 100)
	for i := range labels {
		if i%5 == 0 {
			labels[i] = "late"
		} else {
			labels[i] = "on_time"
		}
	}
	return data.MustFrame(data.NewCategorical("arr_delay", labels))
}

func assertPartition(t *testing.T, n int, train, test []int) {
	t.Helper()
	seen := make([]int, n)
	for _, i := range train {
		seen[i]++
	}
	for _, i := range test {
		seen[i]++
	}
	for i, c := range seen {
		assert.Equal(t, 1, c, "row %d", i)
	}
}

func TestInitialSplitPartition(t *testing.T) {
	for _, n := range []int{2, 10, 37, 100} {
		for _, prop := range []float64{0.1, 0.5, 0.75, 0.9} {
			for _, seed := range []int64{1, 123, 2024} {
				s, err := InitialSplit(numericFrame(n), prop, seed)
				require.NoError(t, err)
				assertPartition(t, n, s.Train, s.Test)
				assert.Equal(t, int(math.Floor(prop*float64(n))), len(s.Train))
			}
		}
	}
}

func TestInitialSplitDeterministic(t *testing.T) {
	f := numericFrame(50)
	a, err := InitialSplit(f, 0.75, 42)
	require.NoError(t, err)
	b, err := InitialSplit(f, 0.75, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := InitialSplit(f, 0.75, 43)
	require.NoError(t, err)
	assert.NotEqual(t, a.Test, c.Test)
}

func TestInitialSplitStratified(t *testing.T) {
	f := classFrame()
	s, err := InitialSplit(f, 0.75, 7, WithStrata("arr_delay"))
	require.NoError(t, err)
	assertPartition(t, 100, s.Train, s.Test)

	late := 0
	for _, i := range s.Train {
		if i%5 == 0 {
			late++
		}
	}
	assert.Equal(t, 15, late)
	assert.Equal(t, 75, len(s.Train))
	assert.Equal(t, 100, s.Training(f).NumRows()+s.Testing(f).NumRows())
}

func TestInitialSplitStratifiedKeepsTotal(t *testing.T) {
	g := make([]string, 12)
	for i := range g {
		g[i] = string(rune('a' + i%4))
	}
	f := data.MustFrame(data.NewCategorical("g", g), data.NewNumeric("y", make([]float64, 12)))

	for _, tc := range []struct {
		prop  float64
		train int
	}{{0.5, 6}, {0.75, 9}, {0.25, 3}} {
		s, err := InitialSplit(f, tc.prop, 3, WithStrata("g"))
		require.NoError(t, err)
		assertPartition(t, 12, s.Train, s.Test)
		assert.Len(t, s.Train, tc.train, "prop %v", tc.prop)

		perLevel := map[string]int{}
		for _, i := range s.Train {
			perLevel[g[i]]++
		}
		for level, k := range perLevel {
			assert.LessOrEqual(t, k, 3, level)
			assert.GreaterOrEqual(t, k, int(tc.prop*3), level)
		}
	}
}

func TestInitialSplitErrors(t *testing.T) {
	f := numericFrame(10)
	_, err := InitialSplit(f, 0, 1)
	assert.Error(t, err)
	_, err = InitialSplit(f, 1, 1)
	assert.Error(t, err)
	_, err = InitialSplit(f, 0.5, 1, WithStrata("absent"))
	assert.Error(t, err)
}

func TestVFoldPartition(t *testing.T) {
	f := numericFrame(23)
	folds, err := VFold(f, 5, 99)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	var allTest []int
	for k, fold := range folds {
		assert.Equal(t, "Fold"+string(rune('1'+k)), fold.ID)
		assertPartition(t, 23, fold.Train, fold.Test)
		assert.InDelta(t, 23.0/5, float64(len(fold.Test)), 1)
		allTest = append(allTest, fold.Test...)
		assert.Equal(t, len(fold.Test), Assessment(f, fold).NumRows())
		assert.Equal(t, len(fold.Train), Analysis(f, fold).NumRows())
	}
	assertPartition(t, 23, allTest, nil)

	again, err := VFold(f, 5, 99)
	require.NoError(t, err)
	assert.Equal(t, folds, again)
}

func TestVFoldStratifiedProportions(t *testing.T) {
	f := classFrame()
	folds, err := VFold(f, 5, 11, WithStrata("arr_delay"))
	require.NoError(t, err)
	for _, fold := range folds {
		late := 0
		for _, i := range fold.Test {
			if i%5 == 0 {
				late++
			}
		}
		share := float64(late) / float64(len(fold.Test))
		assert.InDelta(t, 0.2, share, 0.05, fold.ID)
	}
}

func TestVFoldNumericStrata(t *testing.T) {
	n := 200
	y := make([]float64, n)
	for i := range y {
		y[i] = math.Exp(float64(i) / 40)
	}
	f := data.MustFrame(data.NewNumeric("price", y))

	buckets, err := Strata(f, "price", DefaultBreaks, DefaultPool)
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	for _, b := range buckets {
		assert.Equal(t, 50, len(b))
	}

	folds, err := VFold(f, 10, 3, WithStrata("price"))
	require.NoError(t, err)
	for _, fold := range folds {
		perBucket := make([]int, len(buckets))
		for _, i := range fold.Test {
			perBucket[i/50]++
		}
		for _, c := range perBucket {
			assert.InDelta(t, 5, c, 1, fold.ID)
		}
	}
}

func TestStrataPoolsSmallBuckets(t *testing.T) {
	labels := make([]string, 40)
	for i := range labels {
		labels[i] = "common"
	}
	labels[0], labels[1] = "rare", "rare"
	f := data.MustFrame(data.NewCategorical("g", labels))

	buckets, err := Strata(f, "g", DefaultBreaks, DefaultPool)
	require.NoError(t, err)
	assert.Len(t, buckets, 1)

	buckets, err = Strata(f, "g", DefaultBreaks, 0)
	require.NoError(t, err)
	assert.Len(t, buckets, 2)
}

func TestVFoldErrors(t *testing.T) {
	f := numericFrame(4)
	_, err := VFold(f, 1, 1)
	assert.Error(t, err)
	_, err = VFold(f, 5, 1)
	assert.Error(t, err)
	_, err = VFold(f, 2, 1, WithStrata("nope"))
	assert.Error(t, err)
	_, err = VFold(f, 2, 1, WithStrata("x"), WithBreaks(1))
	assert.Error(t, err)
}

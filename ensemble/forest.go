// Package ensemble grows bootstrap-aggregated CART forests for regression and
// classification.
package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/ehoutland/tidymodels-test/core/model"
	"github.com/ehoutland/tidymodels-test/core/parallel"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
)

const (
	DefaultTrees              = 500
	DefaultMinNRegression     = 5
	DefaultMinNClassification = 10
)

// RandomForest averages (regression) or votes (classification) over trees
// grown on bootstrap samples with mtry features tried at each split.
type RandomForest struct {
	state *model.StateManager

	Trees    int
	Mtry     int
	MinN     int
	MaxDepth int
	Seed     int64

	classes int
	workers int

	forest   []*tree
	inBag    [][]int32
	mtryUsed int
	minNUsed int
	oobError float64
}

func NewRandomForest(opts ...Option) *RandomForest {
	rf := &RandomForest{
		state: model.NewStateManager(),
		Trees: DefaultTrees,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func (rf *RandomForest) IsFitted() bool { return rf.state.IsFitted() }

// NumClasses is 0 for a regression forest.
func (rf *RandomForest) NumClasses() int { return rf.classes }

func (rf *RandomForest) IsClassification() bool { return rf.classes > 0 }

func (rf *RandomForest) validate() error {
	if rf.Trees < 1 {
		return errors.NewValidationError("trees", "must be at least 1", rf.Trees)
	}
	if rf.Mtry < 0 {
		return errors.NewValidationError("mtry", "must be non-negative", rf.Mtry)
	}
	if rf.MinN < 0 {
		return errors.NewValidationError("min_n", "must be non-negative", rf.MinN)
	}
	if rf.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", rf.MaxDepth)
	}
	if rf.classes == 1 || rf.classes < 0 {
		return errors.NewValidationError("classes", "classification needs at least 2 classes", rf.classes)
	}
	return nil
}

func (rf *RandomForest) resolvedMtry(p int) int {
	m := rf.Mtry
	if m == 0 {
		if rf.IsClassification() {
			m = int(math.Floor(math.Sqrt(float64(p))))
		} else {
			m = p / 3
		}
	}
	if m < 1 {
		m = 1
	}
	if m > p {
		log.GetLoggerWithName("ensemble").Warn("mtry exceeds the number of predictors, using all of them",
			log.MtryKey, m, log.FeaturesKey, p)
		m = p
	}
	return m
}

func (rf *RandomForest) resolvedMinN() int {
	switch {
	case rf.MinN > 0:
		return rf.MinN
	case rf.IsClassification():
		return DefaultMinNClassification
	default:
		return DefaultMinNRegression
	}
}

// Fit grows the forest. For classification y holds class codes 0..k-1.
func (rf *RandomForest) Fit(X, y mat.Matrix) error {
	const op = "RandomForest.Fit"
	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}
	if err := errors.CheckMatrix(op, X, r, c); err != nil {
		return err
	}
	if err := errors.CheckMatrix(op, y, ry, 1); err != nil {
		return err
	}
	if err := rf.validate(); err != nil {
		return err
	}

	xs := flatten(X)
	ys := mat.Col(nil, 0, y)
	if rf.IsClassification() {
		for i, v := range ys {
			if v != math.Trunc(v) || v < 0 || int(v) >= rf.classes {
				return errors.NewValueError(op, fmt.Sprintf("row %d: class code %v outside 0..%d", i, v, rf.classes-1))
			}
		}
	}

	rf.mtryUsed = rf.resolvedMtry(c)
	rf.minNUsed = rf.resolvedMinN()
	rf.forest = make([]*tree, rf.Trees)
	rf.inBag = make([][]int32, rf.Trees)

	workers := rf.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	parallel.ParallelizeWorkers(rf.Trees, workers, func(start, end int) {
		g := &grower{X: xs, p: c, y: ys, classes: rf.classes, mtry: rf.mtryUsed, minN: rf.minNUsed, maxDepth: rf.MaxDepth}
		for t := start; t < end; t++ {
			// Each tree owns a stream keyed by its index, so the forest does
			// not depend on how trees are spread across workers.
			g.rng = rand.New(rand.NewPCG(uint64(rf.Seed), uint64(t)))
			counts := make([]int32, r)
			sample := make([]int, r)
			for i := range sample {
				k := g.rng.IntN(r)
				sample[i] = k
				counts[k]++
			}
			rf.forest[t] = g.grow(sample)
			rf.inBag[t] = counts
		}
	})

	rf.oobError = rf.outOfBag(xs, ys, c)
	rf.state.SetDimensions(c, r)
	rf.state.SetFitted()

	log.GetLoggerWithName("ensemble").Debug("forest grown",
		log.OperationKey, log.OperationFit,
		log.TreesKey, rf.Trees,
		log.MtryKey, rf.mtryUsed,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)
	return nil
}

// outOfBag scores each training row with the trees that did not sample it.
// The result is MSE for regression and misclassification rate for
// classification, NaN when no row was ever out of bag.
func (rf *RandomForest) outOfBag(xs, ys []float64, p int) float64 {
	n := len(ys)
	loss, scored := 0.0, 0
	for i := 0; i < n; i++ {
		row := xs[i*p : (i+1)*p]
		var sum float64
		votes := make([]float64, rf.classes)
		used := 0
		for t, tr := range rf.forest {
			if rf.inBag[t][i] > 0 {
				continue
			}
			leaf := tr.leaf(row)
			if rf.IsClassification() {
				votes[int(leaf.value)]++
			} else {
				sum += leaf.value
			}
			used++
		}
		if used == 0 {
			continue
		}
		scored++
		if rf.IsClassification() {
			if float64(argmax(votes)) != ys[i] {
				loss++
			}
		} else {
			d := sum/float64(used) - ys[i]
			loss += d * d
		}
	}
	if scored == 0 {
		return math.NaN()
	}
	return loss / float64(scored)
}

// OOBError returns the out-of-bag error computed during Fit.
func (rf *RandomForest) OOBError() (float64, error) {
	if err := rf.state.RequireFitted("RandomForest", "OOBError"); err != nil {
		return 0, err
	}
	return rf.oobError, nil
}

func (rf *RandomForest) checkPredict(op string, X mat.Matrix) (int, int, error) {
	if err := rf.state.RequireFitted("RandomForest", op); err != nil {
		return 0, 0, err
	}
	r, c := X.Dims()
	if err := rf.state.RequireFeatures("RandomForest."+op, c); err != nil {
		return 0, 0, err
	}
	if err := errors.CheckMatrix("RandomForest."+op, X, r, c); err != nil {
		return 0, 0, err
	}
	return r, c, nil
}

// Predict returns the mean tree prediction for regression and the majority
// vote for classification. Vote ties go to the lowest class code.
func (rf *RandomForest) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c, err := rf.checkPredict("Predict", X)
	if err != nil {
		return nil, err
	}
	xs := flatten(X)
	out := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
		votes := make([]float64, rf.classes)
		for i := start; i < end; i++ {
			row := xs[i*c : (i+1)*c]
			if rf.IsClassification() {
				for k := range votes {
					votes[k] = 0
				}
				for _, tr := range rf.forest {
					votes[int(tr.leaf(row).value)]++
				}
				out.Set(i, 0, float64(argmax(votes)))
				continue
			}
			sum := 0.0
			for _, tr := range rf.forest {
				sum += tr.leaf(row).value
			}
			out.Set(i, 0, sum/float64(len(rf.forest)))
		}
	})
	return out, nil
}

// PredictProba returns an n×k matrix of mean leaf class proportions.
func (rf *RandomForest) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, c, err := rf.checkPredict("PredictProba", X)
	if err != nil {
		return nil, err
	}
	if !rf.IsClassification() {
		return nil, errors.NewModelError("RandomForest.PredictProba", "regression forest", errors.ErrUnsupported)
	}
	xs := flatten(X)
	out := mat.NewDense(r, rf.classes, nil)
	parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
		for i := start; i < end; i++ {
			row := xs[i*c : (i+1)*c]
			for _, tr := range rf.forest {
				for k, q := range tr.leaf(row).dist {
					out.Set(i, k, out.At(i, k)+q)
				}
			}
			for k := 0; k < rf.classes; k++ {
				out.Set(i, k, out.At(i, k)/float64(len(rf.forest)))
			}
		}
	})
	return out, nil
}

func (rf *RandomForest) GetParams() map[string]interface{} {
	mtry, minN := rf.Mtry, rf.MinN
	if rf.IsFitted() {
		mtry, minN = rf.mtryUsed, rf.minNUsed
	}
	return map[string]interface{}{
		"trees":     rf.Trees,
		"mtry":      mtry,
		"min_n":     minN,
		"max_depth": rf.MaxDepth,
		"seed":      rf.Seed,
		"classes":   rf.classes,
	}
}

func (rf *RandomForest) String() string {
	mode := "regression"
	if rf.IsClassification() {
		mode = fmt.Sprintf("classification, %d classes", rf.classes)
	}
	if !rf.IsFitted() {
		return fmt.Sprintf("RandomForest(%s, trees=%d, unfitted)", mode, rf.Trees)
	}
	return fmt.Sprintf("RandomForest(%s, trees=%d, mtry=%d, min_n=%d, oob=%.4g)",
		mode, rf.Trees, rf.mtryUsed, rf.minNUsed, rf.oobError)
}

func flatten(X mat.Matrix) []float64 {
	r, c := X.Dims()
	out := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i*c+j] = X.At(i, j)
		}
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for k, x := range v {
		if x > v[best] {
			best = k
		}
	}
	return best
}

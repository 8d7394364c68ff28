package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"
)

// node is a CART node. Leaves have feature == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	// value is the mean outcome of a regression leaf or the majority class
	// of a classification leaf.
	value float64
	// dist holds class proportions of a classification leaf.
	dist []float64
}

type tree struct {
	nodes []node
}

// leaf walks from the root to a leaf. Values <= threshold go left.
func (t *tree) leaf(x []float64) *node {
	n := &t.nodes[0]
	for n.feature >= 0 {
		if x[n.feature] <= n.threshold {
			n = &t.nodes[n.left]
		} else {
			n = &t.nodes[n.right]
		}
	}
	return n
}

// grower builds one tree over a bootstrap sample. X is row-major n×p.
type grower struct {
	X        []float64
	p        int
	y        []float64
	classes  int // 0 for regression
	mtry     int
	minN     int
	maxDepth int
	rng      *rand.Rand

	nodes []node
}

func (g *grower) at(i, j int) float64 { return g.X[i*g.p+j] }

func (g *grower) grow(sample []int) *tree {
	g.nodes = nil
	g.build(sample, 0)
	return &tree{nodes: g.nodes}
}

func (g *grower) build(idx []int, depth int) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, g.leafNode(idx))

	if len(idx) < g.minN || (g.maxDepth > 0 && depth >= g.maxDepth) || g.pure(idx) {
		return id
	}
	feature, threshold, ok := g.bestSplit(idx)
	if !ok {
		return id
	}
	var left, right []int
	for _, i := range idx {
		if g.at(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.nodes[id].feature = feature
	g.nodes[id].threshold = threshold
	g.nodes[id].left = l
	g.nodes[id].right = r
	g.nodes[id].dist = nil
	return id
}

func (g *grower) leafNode(idx []int) node {
	n := node{feature: -1}
	if g.classes == 0 {
		sum := 0.0
		for _, i := range idx {
			sum += g.y[i]
		}
		n.value = sum / float64(len(idx))
		return n
	}
	counts := make([]float64, g.classes)
	for _, i := range idx {
		counts[int(g.y[i])]++
	}
	best := 0
	for k, c := range counts {
		if c > counts[best] {
			best = k
		}
	}
	for k := range counts {
		counts[k] /= float64(len(idx))
	}
	n.value = float64(best)
	n.dist = counts
	return n
}

func (g *grower) pure(idx []int) bool {
	first := g.y[idx[0]]
	for _, i := range idx[1:] {
		if g.y[i] != first {
			return false
		}
	}
	return true
}

// bestSplit tries mtry randomly chosen features and returns the split with
// the lowest weighted impurity. ok is false when no candidate separates the
// rows.
func (g *grower) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	bestScore := math.Inf(1)
	order := append([]int(nil), idx...)
	for _, f := range g.rng.Perm(g.p)[:g.mtry] {
		sort.Slice(order, func(a, b int) bool { return g.at(order[a], f) < g.at(order[b], f) })
		score, thr, found := g.scanFeature(order, f)
		if found && score < bestScore {
			bestScore, feature, threshold, ok = score, f, thr, true
		}
	}
	return feature, threshold, ok
}

// scanFeature evaluates every boundary between distinct sorted values.
func (g *grower) scanFeature(order []int, f int) (score, threshold float64, found bool) {
	n := len(order)
	score = math.Inf(1)
	if g.classes == 0 {
		var total, totalSq float64
		for _, i := range order {
			total += g.y[i]
			totalSq += g.y[i] * g.y[i]
		}
		var sumL, sqL float64
		for k := 0; k < n-1; k++ {
			v := g.y[order[k]]
			sumL += v
			sqL += v * v
			lo, hi := g.at(order[k], f), g.at(order[k+1], f)
			if lo == hi {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			sumR, sqR := total-sumL, totalSq-sqL
			sse := (sqL - sumL*sumL/nl) + (sqR - sumR*sumR/nr)
			if sse < score {
				score, threshold, found = sse, midpoint(lo, hi), true
			}
		}
		return score, threshold, found
	}

	left := make([]float64, g.classes)
	right := make([]float64, g.classes)
	for _, i := range order {
		right[int(g.y[i])]++
	}
	for k := 0; k < n-1; k++ {
		c := int(g.y[order[k]])
		left[c]++
		right[c]--
		lo, hi := g.at(order[k], f), g.at(order[k+1], f)
		if lo == hi {
			continue
		}
		nl, nr := float64(k+1), float64(n-k-1)
		gini := nl*giniImpurity(left, nl) + nr*giniImpurity(right, nr)
		if gini < score {
			score, threshold, found = gini, midpoint(lo, hi), true
		}
	}
	return score, threshold, found
}

// midpoint returns a threshold in [lo, hi) so rows equal to hi go right.
// For adjacent floats (lo+hi)/2 can round up to hi.
func midpoint(lo, hi float64) float64 {
	if m := lo + (hi-lo)/2; m < hi {
		return m
	}
	return lo
}

func giniImpurity(counts []float64, total float64) float64 {
	g := 1.0
	for _, c := range counts {
		q := c / total
		g -= q * q
	}
	return g
}

package ensemble

// Option configures a RandomForest.
type Option func(*RandomForest)

// WithTrees sets the number of trees. Default 500.
func WithTrees(n int) Option {
	return func(rf *RandomForest) {
		rf.Trees = n
	}
}

// WithMtry sets the number of features sampled at each split. Zero selects
// floor(p/3) for regression and floor(sqrt(p)) for classification.
func WithMtry(m int) Option {
	return func(rf *RandomForest) {
		rf.Mtry = m
	}
}

// WithMinN sets the minimum node size eligible for splitting.
func WithMinN(n int) Option {
	return func(rf *RandomForest) {
		rf.MinN = n
	}
}

// WithMaxDepth bounds tree depth. Zero means unlimited.
func WithMaxDepth(d int) Option {
	return func(rf *RandomForest) {
		rf.MaxDepth = d
	}
}

// WithSeed fixes the seed tree RNGs are derived from.
func WithSeed(seed int64) Option {
	return func(rf *RandomForest) {
		rf.Seed = seed
	}
}

// WithClassification switches the forest to classification over k classes
// coded 0..k-1.
func WithClassification(k int) Option {
	return func(rf *RandomForest) {
		rf.classes = k
	}
}

// WithWorkers caps the number of goroutines growing trees. Zero uses every CPU.
func WithWorkers(n int) Option {
	return func(rf *RandomForest) {
		rf.workers = n
	}
}

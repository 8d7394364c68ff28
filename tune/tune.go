// Package tune evaluates hyperparameter grids over resampling folds and
// selects the best candidate.
package tune

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ehoutland/tidymodels-test/data"
	"github.com/ehoutland/tidymodels-test/metrics"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
	"github.com/ehoutland/tidymodels-test/recipe"
	"github.com/ehoutland/tidymodels-test/resample"
	"github.com/ehoutland/tidymodels-test/workflow"
)

type config struct {
	parallelism int
}

// Option configures TuneGrid.
type Option func(*config)

// WithParallelism bounds the number of (candidate, fold) jobs running at
// once. The default of 1 evaluates jobs one after another. Values below 1
// use every CPU.
func WithParallelism(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		c.parallelism = n
	}
}

// FoldMetric is one metric of one candidate on one fold.
type FoldMetric struct {
	Candidate int
	Params    Params
	FoldID    string
	Metric    string
	Value     float64
}

// Result holds every per-fold metric of a grid search.
type Result struct {
	Grid    Grid
	Folds   []string
	Metrics metrics.Set
	// FoldMetrics is ordered by candidate, then fold, then metric.
	FoldMetrics []FoldMetric
}

// TuneGrid fits spec with every grid candidate on the analysis rows of every
// fold and scores the assessment rows with each metric. The first failing
// job cancels the rest and its error is returned.
func TuneGrid(ctx context.Context, spec workflow.ModelSpec, rec *recipe.Recipe, frame *data.Frame,
	folds []resample.Fold, grid Grid, set metrics.Set, opts ...Option) (*Result, error) {
	cfg := config{parallelism: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validate(spec, folds, grid, set); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("tune")
	start := time.Now()
	logger.Info("tuning started",
		log.OperationKey, log.OperationTune,
		log.ModelNameKey, spec.Name(),
		log.CandidatesKey, len(grid),
		log.FoldsKey, len(folds),
		log.WorkersKey, cfg.parallelism,
	)

	truth, estimate := rec.Formula().Outcome, workflow.PredCol
	if spec.Mode == workflow.Classification {
		estimate = workflow.PredClassCol
	}

	// values[c][k][m] is written by exactly one job.
	values := make([][][]float64, len(grid))
	for c := range values {
		values[c] = make([][]float64, len(folds))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallelism)
	for c := range grid {
		for k := range folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				op := fmt.Sprintf("tune candidate %d %s", c, folds[k].ID)
				return errors.SafeExecute(op, func() error {
					scores, err := evaluate(spec, rec, frame, folds[k], grid[c], set, truth, estimate)
					if err != nil {
						return errors.Wrapf(err, "candidate %d (%s) on %s", c, grid[c], folds[k].ID)
					}
					values[c][k] = scores
					logger.Debug("fold scored",
						log.CandidateKey, c,
						log.FoldKey, folds[k].ID,
						log.MetricNameKey, set[0].Name,
						log.MetricValueKey, scores[0],
					)
					return nil
				})
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Grid: grid, Metrics: set}
	for _, f := range folds {
		res.Folds = append(res.Folds, f.ID)
	}
	for c := range grid {
		for k, f := range folds {
			for m, metric := range set {
				res.FoldMetrics = append(res.FoldMetrics, FoldMetric{
					Candidate: c,
					Params:    grid[c],
					FoldID:    f.ID,
					Metric:    metric.Name,
					Value:     values[c][k][m],
				})
			}
		}
	}
	logger.Info("tuning finished",
		log.OperationKey, log.OperationTune,
		log.ModelNameKey, spec.Name(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

func validate(spec workflow.ModelSpec, folds []resample.Fold, grid Grid, set metrics.Set) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if len(folds) == 0 {
		return errors.NewValidationError("folds", "no resamples", 0)
	}
	if len(set) == 0 {
		return errors.NewValidationError("metrics", "no metrics", 0)
	}
	for _, m := range set {
		wantClass := spec.Mode == workflow.Classification
		if (m.Kind == metrics.ClassKind) != wantClass {
			return errors.NewValidationError("metrics", fmt.Sprintf("%s does not apply to %s", m.Name, spec.Mode), m.Name)
		}
	}
	names, err := grid.names()
	if err != nil {
		return err
	}
	tunable := spec.TunableParams()
	for _, name := range names {
		if !contains(tunable, name) {
			return errors.NewValidationError(name, "not a parameter of "+spec.Name(), name)
		}
	}
	var missing []string
	for _, name := range spec.Tunable() {
		if !contains(names, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.NewUnresolvedParameterError(spec.Name(), missing)
	}
	return nil
}

func evaluate(spec workflow.ModelSpec, rec *recipe.Recipe, frame *data.Frame, fold resample.Fold,
	params Params, set metrics.Set, truth, estimate string) ([]float64, error) {
	final, err := Finalize(spec, params)
	if err != nil {
		return nil, err
	}
	fit, err := workflow.Fit(final, rec, resample.Analysis(frame, fold))
	if err != nil {
		return nil, err
	}
	return scoreAll(fit, resample.Assessment(frame, fold), set, truth, estimate)
}

func scoreAll(fit *workflow.Fitted, assess *data.Frame, set metrics.Set, truth, estimate string) ([]float64, error) {
	aug, err := fit.Augment(assess)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(set))
	for m, metric := range set {
		if scores[m], err = metrics.Score(aug, truth, estimate, metric); err != nil {
			return nil, err
		}
	}
	return scores, nil
}

// Finalize replaces Tune markers in spec with the chosen values.
func Finalize(spec workflow.ModelSpec, params Params) (workflow.ModelSpec, error) {
	return spec.WithParams(params)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

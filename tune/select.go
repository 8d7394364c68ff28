package tune

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/ehoutland/tidymodels-test/data"
	"github.com/ehoutland/tidymodels-test/metrics"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
	"github.com/ehoutland/tidymodels-test/recipe"
	"github.com/ehoutland/tidymodels-test/resample"
	"github.com/ehoutland/tidymodels-test/workflow"
)

// Summary aggregates one metric of one candidate over the folds.
type Summary struct {
	Candidate int
	Params    Params
	Metric    string
	Mean      float64
	N         int
	// StdErr is the sample standard deviation over folds divided by sqrt(N),
	// NaN for a single fold.
	StdErr float64
}

// CollectMetrics averages every candidate's metrics over folds. Summaries
// are ordered by candidate, then by metric set order.
func (r *Result) CollectMetrics() []Summary {
	type key struct {
		candidate int
		metric    string
	}
	byKey := map[key][]float64{}
	for _, fm := range r.FoldMetrics {
		k := key{fm.Candidate, fm.Metric}
		byKey[k] = append(byKey[k], fm.Value)
	}

	var out []Summary
	for c := range r.Grid {
		for _, m := range r.Metrics {
			vals := byKey[key{c, m.Name}]
			if len(vals) == 0 {
				continue
			}
			s := Summary{Candidate: c, Params: r.Grid[c], Metric: m.Name, N: len(vals), StdErr: math.NaN()}
			s.Mean, _ = stats.Mean(vals)
			if len(vals) > 1 {
				sd, _ := stats.StandardDeviationSample(vals)
				s.StdErr = sd / math.Sqrt(float64(len(vals)))
			}
			out = append(out, s)
		}
	}
	return out
}

func (r *Result) metric(name string) (metrics.Metric, error) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, nil
		}
	}
	return metrics.Metric{}, errors.NewValidationError("metric", "not computed by this tuning run", name)
}

// ShowBest returns up to n summaries of the named metric from best to worst.
// Equal means keep grid order. Candidates whose mean is NaN come last.
func ShowBest(r *Result, metric string, n int) ([]Summary, error) {
	m, err := r.metric(metric)
	if err != nil {
		return nil, err
	}
	var rows []Summary
	for _, s := range r.CollectMetrics() {
		if s.Metric == metric {
			rows = append(rows, s)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Mean, rows[j].Mean
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return !math.IsNaN(a) && m.Better(a, b)
	})
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows, nil
}

// SelectBest returns the parameters of the candidate with the lowest mean
// for a Minimize metric or the highest for a Maximize metric. Ties go to the
// candidate that comes first in the grid.
func SelectBest(r *Result, metric string) (Params, error) {
	best, err := ShowBest(r, metric, 1)
	if err != nil {
		return nil, err
	}
	if len(best) == 0 || math.IsNaN(best[0].Mean) {
		return nil, errors.NewValueError("SelectBest", "no candidate has a finite "+metric)
	}
	log.GetLoggerWithName("tune").Info("best candidate selected",
		log.CandidateKey, best[0].Candidate,
		log.ParamsKey, best[0].Params.String(),
		log.MetricNameKey, metric,
		log.MetricValueKey, best[0].Mean,
	)
	return best[0].Params.clone(), nil
}

// MetricValue is one metric computed on the test rows of a final fit.
type MetricValue struct {
	Metric string
	Value  float64
}

// LastFitResult is the model fitted on the training rows of a split and its
// performance on the test rows.
type LastFitResult struct {
	Fitted      *workflow.Fitted
	Predictions *data.Frame
	Metrics     []MetricValue
}

// LastFit fits spec on the training rows of split and evaluates set on the
// test rows. spec must not contain Tune markers.
func LastFit(spec workflow.ModelSpec, rec *recipe.Recipe, split resample.Split, frame *data.Frame, set metrics.Set) (*LastFitResult, error) {
	fit, err := workflow.Fit(spec, rec, split.Training(frame))
	if err != nil {
		return nil, err
	}
	test := split.Testing(frame)
	aug, err := fit.Augment(test)
	if err != nil {
		return nil, err
	}
	truth, estimate := rec.Formula().Outcome, workflow.PredCol
	if spec.Mode == workflow.Classification {
		estimate = workflow.PredClassCol
	}
	res := &LastFitResult{Fitted: fit, Predictions: aug}
	for _, m := range set {
		v, err := metrics.Score(aug, truth, estimate, m)
		if err != nil {
			return nil, err
		}
		res.Metrics = append(res.Metrics, MetricValue{Metric: m.Name, Value: v})
	}
	return res, nil
}

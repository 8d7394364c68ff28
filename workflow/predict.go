package workflow

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ehoutland/tidymodels-test/core/model"
	"github.com/ehoutland/tidymodels-test/data"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
)

// Prediction column names.
const (
	PredCol      = ".pred"
	PredClassCol = ".pred_class"
	PredLowerCol = ".pred_lower"
	PredUpperCol = ".pred_upper"
)

// DefaultLevel is the interval coverage used when none is given.
const DefaultLevel = 0.95

// Kind selects what Predict returns.
type Kind int

const (
	// KindPoint returns .pred for regression and .pred_class for classification.
	KindPoint Kind = iota
	// KindInterval returns .pred, .pred_lower and .pred_upper.
	KindInterval
	// KindProb returns one .pred_<level> column of class probabilities per
	// outcome level.
	KindProb
)

func (k Kind) String() string {
	switch k {
	case KindInterval:
		return "conf_int"
	case KindProb:
		return "prob"
	default:
		return "numeric"
	}
}

type predictConfig struct {
	level float64
}

// PredictOption configures Predict.
type PredictOption func(*predictConfig)

// WithLevel sets the interval coverage probability.
func WithLevel(level float64) PredictOption {
	return func(c *predictConfig) {
		c.level = level
	}
}

type probaPredictor interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Predict bakes newData with the trained recipe and returns a frame whose
// rows align with newData. A predictor left missing after baking, including
// a label never seen in training, is a MissingValueError.
func (f *Fitted) Predict(newData *data.Frame, kind Kind, opts ...PredictOption) (*data.Frame, error) {
	const op = "workflow.Predict"
	cfg := predictConfig{level: DefaultLevel}
	for _, opt := range opts {
		opt(&cfg)
	}

	X, _, err := f.prepped.Design(newData, f.encoding)
	if err != nil {
		return nil, err
	}
	if err := checkMissing(op, X, f.terms); err != nil {
		return nil, err
	}

	var out *data.Frame
	switch kind {
	case KindPoint:
		out, err = f.point(X)
	case KindInterval:
		out, err = f.interval(op, X, cfg.level)
	case KindProb:
		out, err = f.prob(op, X)
	default:
		err = errors.NewValidationError("kind", "unknown prediction kind", int(kind))
	}
	if err != nil {
		return nil, err
	}

	log.GetLoggerWithName("workflow").Debug("predicted",
		log.OperationKey, log.OperationPredict,
		log.ModelNameKey, f.spec.Name(),
		log.SamplesKey, newData.NumRows(),
		"kind", kind.String(),
	)
	return out, nil
}

func (f *Fitted) point(X *mat.Dense) (*data.Frame, error) {
	pred, err := f.engine.Predict(X)
	if err != nil {
		return nil, err
	}
	values := mat.Col(nil, 0, pred)
	if f.spec.Mode != Classification {
		return data.NewFrame(data.NewNumeric(PredCol, values))
	}
	codes := make([]int, len(values))
	for i, v := range values {
		codes[i] = int(v)
	}
	return data.NewFrame(data.NewCategoricalFromCodes(PredClassCol, codes, f.prepped.OutcomeLevels()))
}

func (f *Fitted) interval(op string, X *mat.Dense, level float64) (*data.Frame, error) {
	ip, ok := f.engine.(model.IntervalPredictor)
	if !ok {
		return nil, errors.NewModelError(op, f.spec.Name()+" has no prediction intervals", errors.ErrUnsupported)
	}
	if !(level > 0 && level < 1) {
		return nil, errors.NewValidationError("level", "must be in (0, 1)", level)
	}
	pred, err := f.engine.Predict(X)
	if err != nil {
		return nil, err
	}
	lower, upper, err := ip.PredictInterval(X, level)
	if err != nil {
		return nil, err
	}
	return data.NewFrame(
		data.NewNumeric(PredCol, mat.Col(nil, 0, pred)),
		data.NewNumeric(PredLowerCol, mat.Col(nil, 0, lower)),
		data.NewNumeric(PredUpperCol, mat.Col(nil, 0, upper)),
	)
}

func (f *Fitted) prob(op string, X *mat.Dense) (*data.Frame, error) {
	pp, ok := f.engine.(probaPredictor)
	if !ok || f.spec.Mode != Classification {
		return nil, errors.NewModelError(op, f.spec.Name()+" has no class probabilities", errors.ErrUnsupported)
	}
	proba, err := pp.PredictProba(X)
	if err != nil {
		return nil, err
	}
	levels := f.prepped.OutcomeLevels()
	cols := make([]*data.Column, len(levels))
	for k, l := range levels {
		cols[k] = data.NewNumeric(PredCol+"_"+l, mat.Col(nil, k, proba))
	}
	return data.NewFrame(cols...)
}

// Augment returns newData with point predictions appended.
func (f *Fitted) Augment(newData *data.Frame) (*data.Frame, error) {
	pred, err := f.Predict(newData, KindPoint)
	if err != nil {
		return nil, err
	}
	out := newData
	for _, c := range pred.Columns() {
		if out, err = out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Residuals returns truth minus point prediction for a regression fit.
func (f *Fitted) Residuals(newData *data.Frame) ([]float64, error) {
	if f.spec.Mode == Classification {
		return nil, errors.NewModelError("workflow.Residuals", "classification fit", errors.ErrUnsupported)
	}
	pred, err := f.Predict(newData, KindPoint)
	if err != nil {
		return nil, err
	}
	truth, err := f.prepped.Outcome(newData)
	if err != nil {
		return nil, err
	}
	est, _ := pred.Col(PredCol)
	res := make([]float64, len(truth))
	for i := range truth {
		if math.IsNaN(truth[i]) {
			return nil, errors.NewMissingValueError("workflow.Residuals", f.prepped.Formula().Outcome, i)
		}
		res[i] = truth[i] - est.Float(i)
	}
	return res, nil
}

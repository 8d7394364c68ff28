package recipe

import (
	"github.com/ehoutland/tidymodels-test/data"
	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
)

// Formula declares the roles of columns: one outcome, the predictors, the
// interaction terms to add after encoding, and identifier columns that are
// carried through baking but never used for fitting.
//
// An empty Predictors list means every column that is neither the outcome
// nor an ID.
type Formula struct {
	Outcome      string
	Predictors   []string
	Interactions [][]string
	IDs          []string
}

// resolvePredictors returns the predictor columns of f in declared order.
func (fm Formula) resolvePredictors(f *data.Frame) []string {
	if len(fm.Predictors) > 0 {
		return append([]string(nil), fm.Predictors...)
	}
	skip := map[string]bool{fm.Outcome: true}
	for _, id := range fm.IDs {
		skip[id] = true
	}
	var out []string
	for _, name := range f.Names() {
		if !skip[name] {
			out = append(out, name)
		}
	}
	return out
}

// validate checks the formula against the training frame.
func (fm Formula) validate(f *data.Frame) error {
	if fm.Outcome == "" {
		return scierrors.NewValidationError("outcome", "formula needs an outcome column", "")
	}
	if !f.Has(fm.Outcome) {
		return scierrors.NewColumnError("formula", fm.Outcome, "outcome column not found")
	}
	seen := map[string]string{fm.Outcome: "outcome"}
	for _, id := range fm.IDs {
		if !f.Has(id) {
			return scierrors.NewColumnError("formula", id, "id column not found")
		}
		if role, dup := seen[id]; dup {
			return scierrors.NewColumnError("formula", id, "column already has role "+role)
		}
		seen[id] = "id"
	}
	preds := fm.resolvePredictors(f)
	if len(preds) == 0 {
		return scierrors.NewValidationError("predictors", "formula has no predictors", 0)
	}
	for _, p := range preds {
		if !f.Has(p) {
			return scierrors.NewColumnError("formula", p, "predictor column not found")
		}
		if role, dup := seen[p]; dup {
			return scierrors.NewColumnError("formula", p, "column already has role "+role)
		}
		seen[p] = "predictor"
	}
	for _, term := range fm.Interactions {
		if len(term) < 2 {
			return scierrors.NewValidationError("interactions", "a term needs at least two columns", term)
		}
	}
	return nil
}

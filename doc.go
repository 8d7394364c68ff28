// Package tidymodels is a small modelling workflow library for Go: load and
// clean a table, split it, describe preprocessing as a recipe, fit a linear,
// Bayesian or random forest model, score predictions and tune
// hyperparameters over resampling folds.
//
// # Quick Start
//
//	frame, err := data.LoadCSV("urchins.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	split, _ := resample.InitialSplit(frame, 0.75, 42)
//
//	rec := recipe.New(recipe.Formula{
//	    Outcome:      "width",
//	    Predictors:   []string{"initial_volume", "food_regime"},
//	    Interactions: [][]string{{"initial_volume", "food_regime"}},
//	}, recipe.StepDummy(recipe.AllNominalPredictors()))
//
//	fit, err := workflow.Fit(workflow.LinearRegSpec(), rec, split.Training(frame))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pred, err := fit.Predict(split.Testing(frame), workflow.KindInterval)
//
// # Packages
//
//   - data: typed columnar Frame, CSV loading, cleaning rules
//   - resample: initial train/test split and v-fold cross-validation, optionally stratified
//   - recipe: formula roles and preprocessing steps (impute, pool rare levels, dummy, interact, normalize)
//   - linear: ordinary least squares and conjugate Bayesian regression
//   - ensemble: random forest for regression and classification
//   - workflow: model specifications, fitting and prediction
//   - metrics: rmse, mae, rsq, accuracy and the metric registry
//   - tune: regular grids, grid search over folds, best-candidate selection
//   - preprocessing: column standardisation
//   - core/model, core/parallel: engine contracts and chunked fan-out
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// Runnable programs live under examples/.
package tidymodels

package workflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehoutland/tidymodels-test/data"
	"github.com/ehoutland/tidymodels-test/ensemble"
	"github.com/ehoutland/tidymodels-test/linear"
	"github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/recipe"
)

// eightRows follows y = 1 + 2x + 3*[cat == b]. The last two rows are held out.
func eightRows() (train, test *data.Frame) {
	x := []float64{1, 2, 3, 4, 5, 6, 2.5, 7}
	cat := []string{"a", "a", "b", "b", "a", "b", "b", "a"}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 1 + 2*x[i]
		if cat[i] == "b" {
			y[i] += 3
		}
	}
	all := data.MustFrame(
		data.NewNumeric("x", x),
		data.NewCategorical("cat", cat),
		data.NewNumeric("y", y),
	)
	return all.Rows([]int{0, 1, 2, 3, 4, 5}), all.Rows([]int{6, 7})
}

func lmRecipe() *recipe.Recipe {
	return recipe.New(recipe.Formula{Outcome: "y", Predictors: []string{"x", "cat"}})
}

func TestLinearRegEndToEnd(t *testing.T) {
	train, test := eightRows()
	fit, err := Fit(LinearRegSpec(), lmRecipe(), train)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "cat_b"}, fit.Terms())

	pred, err := fit.Predict(test, KindPoint)
	require.NoError(t, err)
	require.Equal(t, 2, pred.NumRows())
	col, err := pred.Col(PredCol)
	require.NoError(t, err)
	assert.InDelta(t, 1+2*2.5+3, col.Float(0), 1e-9)
	assert.InDelta(t, 1+2*7.0, col.Float(1), 1e-9)

	lm, ok := fit.Engine().(*linear.LinearRegression)
	require.True(t, ok)
	coefs, err := lm.Tidy(fit.Terms())
	require.NoError(t, err)
	require.Len(t, coefs, 3)
	assert.Equal(t, linear.InterceptTerm, coefs[0].Term)
	assert.InDelta(t, 1, coefs[0].Estimate, 1e-9)
	assert.InDelta(t, 2, coefs[1].Estimate, 1e-9)
	assert.InDelta(t, 3, coefs[2].Estimate, 1e-9)

	res, err := fit.Residuals(test)
	require.NoError(t, err)
	assert.InDelta(t, 0, res[0], 1e-9)
	assert.InDelta(t, 0, res[1], 1e-9)
}

func TestAugmentKeepsInputColumns(t *testing.T) {
	train, test := eightRows()
	fit, err := Fit(LinearRegSpec(), lmRecipe(), train)
	require.NoError(t, err)
	aug, err := fit.Augment(test)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "cat", "y", PredCol}, aug.Names())
	assert.Equal(t, test.NumRows(), aug.NumRows())
}

func TestIntervals(t *testing.T) {
	train, test := eightRows()
	// perturb the outcome so the residual variance is not zero
	yc, _ := train.Col("y")
	y := yc.Floats()
	y[0] += 0.3
	y[3] -= 0.2
	noisy, err := train.AddColumn(data.NewNumeric("y", y))
	require.NoError(t, err)

	for _, spec := range []ModelSpec{LinearRegSpec(), BayesLinearRegSpec(nil)} {
		t.Run(spec.Name(), func(t *testing.T) {
			fit, err := Fit(spec, lmRecipe(), noisy)
			require.NoError(t, err)
			pred, err := fit.Predict(test, KindInterval, WithLevel(0.9))
			require.NoError(t, err)
			assert.Equal(t, []string{PredCol, PredLowerCol, PredUpperCol}, pred.Names())
			p, _ := pred.Col(PredCol)
			lo, _ := pred.Col(PredLowerCol)
			hi, _ := pred.Col(PredUpperCol)
			for i := 0; i < pred.NumRows(); i++ {
				assert.Less(t, lo.Float(i), p.Float(i))
				assert.Greater(t, hi.Float(i), p.Float(i))
			}

			_, err = fit.Predict(test, KindInterval, WithLevel(1.5))
			assert.Error(t, err)
		})
	}
}

func TestForestIntervalUnsupported(t *testing.T) {
	train, test := eightRows()
	spec := RandForestSpec(Regression, map[string]Param{"trees": Fixed(10), "min_n": Fixed(2), "seed": Fixed(1)})
	fit, err := Fit(spec, lmRecipe(), train)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "cat"}, fit.Terms())

	_, err = fit.Predict(test, KindPoint)
	require.NoError(t, err)
	_, err = fit.Predict(test, KindInterval)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
}

func TestEngineParamsResolveDefaults(t *testing.T) {
	train, _ := eightRows()
	spec := RandForestSpec(Regression, map[string]Param{"trees": Fixed(10), "seed": Fixed(1)})
	fit, err := Fit(spec, lmRecipe(), train)
	require.NoError(t, err)
	params := fit.EngineParams()
	assert.Equal(t, 10, params["trees"])
	assert.Equal(t, 1, params["mtry"], "floor(2/3) raised to one")
	assert.Equal(t, ensemble.DefaultMinNRegression, params["min_n"])

	fit, err = Fit(BayesLinearRegSpec(map[string]Param{"prior_scale": Fixed(2)}), lmRecipe(), train)
	require.NoError(t, err)
	assert.Equal(t, 2.0, fit.EngineParams()["prior_scale"])
}

func TestForestClassification(t *testing.T) {
	n := 40
	x := make([]float64, n)
	label := make([]string, n)
	for i := range x {
		x[i] = float64(i)
		label[i] = "lo"
		if i >= n/2 {
			label[i] = "hi"
		}
	}
	f := data.MustFrame(data.NewNumeric("x", x), data.NewCategorical("class", label))
	rec := recipe.New(recipe.Formula{Outcome: "class"})
	spec := RandForestSpec(Classification, map[string]Param{"trees": Fixed(25), "seed": Fixed(3)})
	fit, err := Fit(spec, rec, f)
	require.NoError(t, err)

	newData := data.MustFrame(data.NewNumeric("x", []float64{1, 38}))
	pred, err := fit.Predict(newData, KindPoint)
	require.NoError(t, err)
	cls, err := pred.Col(PredClassCol)
	require.NoError(t, err)
	assert.Equal(t, []string{"lo", "hi"}, cls.Strings())

	prob, err := fit.Predict(newData, KindProb)
	require.NoError(t, err)
	assert.Equal(t, []string{".pred_hi", ".pred_lo"}, prob.Names())
	hi, _ := prob.Col(".pred_hi")
	assert.Greater(t, hi.Float(1), 0.5)

	_, err = Fit(LinearRegSpec(), rec, f)
	var ce *errors.ColumnError
	assert.True(t, errors.As(err, &ce))
}

func TestFitRejectsTuneMarkers(t *testing.T) {
	train, _ := eightRows()
	spec := RandForestSpec(Regression, map[string]Param{"mtry": Tune(), "trees": Tune()})
	_, err := Fit(spec, lmRecipe(), train)
	var ue *errors.UnresolvedParameterError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, []string{"mtry", "trees"}, ue.Params)
}

func TestSpecValidation(t *testing.T) {
	tests := []struct {
		name string
		spec ModelSpec
	}{
		{"unknown param", RandForestSpec(Regression, map[string]Param{"penalty": Fixed(1)})},
		{"wrong engine", ModelSpec{Family: LinearReg, Engine: "glmnet"}},
		{"lm classification", ModelSpec{Family: LinearReg, Mode: Classification}},
		{"fractional trees", RandForestSpec(Regression, map[string]Param{"trees": Fixed(2.5)})},
		{"nan prior", BayesLinearRegSpec(map[string]Param{"prior_scale": Fixed(math.NaN())})},
		{"unknown family", ModelSpec{Family: Family(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.spec.Validate())
		})
	}
	assert.NoError(t, ModelSpec{Family: RandForest}.Validate(), "empty engine selects the default")
}

func TestWithParams(t *testing.T) {
	spec := RandForestSpec(Regression, map[string]Param{"mtry": Tune(), "trees": Fixed(50)})
	fixed, err := spec.WithParams(map[string]float64{"mtry": 2})
	require.NoError(t, err)
	assert.Empty(t, fixed.Tunable())
	assert.Equal(t, 2.0, fixed.Params["mtry"].Value())
	assert.True(t, spec.Params["mtry"].IsTune(), "the source spec is unchanged")

	_, err = spec.WithParams(map[string]float64{"penalty": 1})
	assert.Error(t, err)
}

func TestPredictUnseenLevelIsMissing(t *testing.T) {
	train, _ := eightRows()
	fit, err := Fit(LinearRegSpec(), lmRecipe(), train)
	require.NoError(t, err)

	newData := data.MustFrame(
		data.NewNumeric("x", []float64{1, 2}),
		data.NewCategorical("cat", []string{"a", "z"}),
	)
	_, err = fit.Predict(newData, KindPoint)
	var mv *errors.MissingValueError
	require.True(t, errors.As(err, &mv))
	assert.Equal(t, "cat_b", mv.Column)
	assert.Equal(t, 1, mv.Row)
}

func TestFitMissingPredictor(t *testing.T) {
	train, _ := eightRows()
	xc, _ := train.Col("x")
	x := xc.Floats()
	x[2] = math.NaN()
	holey, err := train.AddColumn(data.NewNumeric("x", x))
	require.NoError(t, err)

	_, err = Fit(LinearRegSpec(), lmRecipe(), holey)
	var mv *errors.MissingValueError
	require.True(t, errors.As(err, &mv))
	assert.Equal(t, "x", mv.Column)

	rec := lmRecipe().AddSteps(recipe.StepImputeMean(recipe.AllNumericPredictors()))
	_, err = Fit(LinearRegSpec(), rec, holey)
	assert.NoError(t, err)
}

package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "tidymodels: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "tidymodels: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 3, 2, 1)

	want := "tidymodels: Predict: dimension mismatch on axis 1 (features). Expected 3, got 2"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LinearRegression", "Predict")

	want := "tidymodels: LinearRegression: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewColumnError(t *testing.T) {
	err := NewColumnError("Transform", "arr_delay", "not found")

	want := "tidymodels: Transform: column 'arr_delay': not found"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var colErr *ColumnError
	if !As(err, &colErr) {
		t.Fatal("Error should be castable to *ColumnError")
	}
	if colErr.Column != "arr_delay" {
		t.Errorf("Column = %q, want arr_delay", colErr.Column)
	}
}

func TestNewUnresolvedParameterError(t *testing.T) {
	err := NewUnresolvedParameterError("rand_forest", []string{"mtry", "min_n"})

	if !strings.Contains(err.Error(), "[mtry min_n]") {
		t.Errorf("Error() = %v, want parameter list", err.Error())
	}

	var unresolved *UnresolvedParameterError
	if !As(err, &unresolved) {
		t.Fatal("Error should be castable to *UnresolvedParameterError")
	}
	if len(unresolved.Params) != 2 {
		t.Errorf("Params = %v, want 2 entries", unresolved.Params)
	}
}

func TestNewMissingValueError(t *testing.T) {
	err := NewMissingValueError("rmse", ".pred", 4)

	want := "tidymodels: rmse: missing value in column '.pred' at row 4"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestNewValueError(t *testing.T) {
	err := NewValueError("InitialSplit", "prop must be in (0, 1): 1.5")

	if err.Error() != "tidymodels: InitialSplit: prop must be in (0, 1): 1.5" {
		t.Errorf("Error() = %v", err.Error())
	}

	var valErr *ValueError
	if !As(err, &valErr) {
		t.Error("Error should be castable to *ValueError")
	}
}

func TestDataConversionWarning(t *testing.T) {
	w := NewDataConversionWarning("csv", "frame", "malformed rows dropped", 3)

	want := "data converted from csv to frame (3 values affected). Reason: malformed rows dropped"
	if w.Error() != want {
		t.Errorf("Error() = %v, want %v", w.Error(), want)
	}
}

func TestWarnUsesStructuredSink(t *testing.T) {
	var fallback, structured []error
	SetWarningHandler(func(w error) { fallback = append(fallback, w) })
	defer SetWarningHandler(func(w error) {})

	Warn(NewRareLevelWarning("dest", []string{"BQN"}, "other"))
	if len(fallback) != 1 {
		t.Fatalf("fallback received %d warnings, want 1", len(fallback))
	}

	SetZerologWarnFunc(func(w error) { structured = append(structured, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("rsq", "constant truth", 0))
	if len(structured) != 1 || len(fallback) != 1 {
		t.Errorf("structured=%d fallback=%d, want 1 and 1", len(structured), len(fallback))
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrSingularMatrix, "in LinearRegression.Fit")

	if !Is(wrapped, ErrSingularMatrix) {
		t.Error("Expected Is(wrapped, ErrSingularMatrix) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in LinearRegression.Fit") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "fold %s", "Fold3")

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "fold Fold3") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestErrorChaining(t *testing.T) {
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("Operation", "failed", err2)

	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}
	if !Is(err3, err1) {
		t.Error("Expected ModelError to unwrap to the base error")
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("ok", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	nan := 0.0
	nan = nan / nan
	err := CheckNumericalStability("coef", []float64{1, nan}, 2)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if numErr.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", numErr.Iteration)
	}
}

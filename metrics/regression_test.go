package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

func TestVectorMetrics(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(yTrue, yPred *mat.VecDense) (float64, error)
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{name: "mse perfect", fn: MSE, yTrue: vec(1, 2, 3, 4, 5), yPred: vec(1, 2, 3, 4, 5), want: 0, tolerance: 1e-10},
		// ((0.5)^2 + (0.5)^2 + (-0.5)^2 + (-0.5)^2) / 4
		{name: "mse simple", fn: MSE, yTrue: vec(1, 2, 3, 4), yPred: vec(1.5, 2.5, 2.5, 3.5), want: 0.25, tolerance: 1e-10},
		{name: "mse larger errors", fn: MSE, yTrue: vec(10, 20, 30), yPred: vec(12, 18, 33), want: 17.0 / 3.0, tolerance: 1e-10},
		{name: "mse dimension mismatch", fn: MSE, yTrue: vec(1, 2, 3), yPred: vec(1, 2), wantErr: true},
		{name: "mse empty", fn: MSE, yTrue: &mat.VecDense{}, yPred: &mat.VecDense{}, wantErr: true},
		{name: "rmse unit error", fn: RMSE, yTrue: vec(0, 0, 0, 0), yPred: vec(1, 1, 1, 1), want: 1, tolerance: 1e-10},
		{name: "rmse missing estimate", fn: RMSE, yTrue: vec(1, 2, 3), yPred: vec(1, math.NaN(), 3), wantErr: true},
		{name: "rmse missing truth", fn: RMSE, yTrue: vec(math.NaN(), 2), yPred: vec(1, 2), wantErr: true},
		{name: "mae signs cancel not", fn: MAE, yTrue: vec(1, 2, 3, 4), yPred: vec(2, 1, 4, 3), want: 1, tolerance: 1e-10},
		{name: "rsq perfect line", fn: RSQ, yTrue: vec(1, 2, 3, 4), yPred: vec(3, 5, 7, 9), want: 1, tolerance: 1e-12},
		{name: "rsq anti-correlated", fn: RSQ, yTrue: vec(1, 2, 3, 4), yPred: vec(4, 3, 2, 1), want: 1, tolerance: 1e-12},
		{name: "r2 worse than mean", fn: R2Score, yTrue: vec(1, 2, 3, 4), yPred: vec(4, 3, 2, 1), want: -3, tolerance: 1e-10},
		{name: "r2 constant truth", fn: R2Score, yTrue: vec(3, 3, 3), yPred: vec(2, 3, 4), wantErr: true},
		{name: "mape skips zero truth", fn: MAPE, yTrue: vec(0, 2, 4), yPred: vec(5, 1, 5), want: 37.5, tolerance: 1e-10},
		{name: "accuracy 80 percent", fn: Accuracy, yTrue: vec(0, 1, 2, 1, 0), yPred: vec(0, 1, 1, 1, 0), want: 0.8, tolerance: 1e-10},
		{name: "accuracy nil", fn: Accuracy, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("got %v, want %v (tolerance: %v)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestRMSENonNegativeAndZeroOnlyWhenEqual(t *testing.T) {
	truth := vec(1.5, -2, 3.25, 0)
	if got, _ := RMSE(truth, vec(1.5, -2, 3.25, 0)); got != 0 {
		t.Errorf("RMSE of identical vectors = %v", got)
	}
	if got, _ := RMSE(truth, vec(1.5, -2, 3.25, 1e-6)); got <= 0 {
		t.Errorf("RMSE of differing vectors = %v", got)
	}
}

func BenchmarkRMSE(b *testing.B) {
	size := 10000
	yTrue := mat.NewVecDense(size, nil)
	yPred := mat.NewVecDense(size, nil)
	for i := 0; i < size; i++ {
		yTrue.SetVec(i, float64(i))
		yPred.SetVec(i, float64(i)+0.1*float64(i%10))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = RMSE(yTrue, yPred)
	}
}

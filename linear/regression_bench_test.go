package linear

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func benchmarkData(rows, cols int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(42, 42))
	X := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := 1.0
		for j := 0; j < cols; j++ {
			v := rng.Float64()*2 - 1
			X.Set(i, j, v)
			sum += v * float64(j+1) * 0.5
		}
		y.Set(i, 0, sum+(rng.Float64()-0.5)*0.1)
	}
	return X, y
}

func BenchmarkLinearRegressionFit(b *testing.B) {
	for _, size := range []struct{ rows, cols int }{{100, 10}, {1000, 10}, {10000, 20}} {
		X, y := benchmarkData(size.rows, size.cols)
		b.Run(fmt.Sprintf("%dx%d", size.rows, size.cols), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if err := NewLinearRegression().Fit(X, y); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBayesianRegressionFit(b *testing.B) {
	X, y := benchmarkData(1000, 10)
	for i := 0; i < b.N; i++ {
		if err := NewBayesianRegression().Fit(X, y); err != nil {
			b.Fatal(err)
		}
	}
}

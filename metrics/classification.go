package metrics

import (
	"gonum.org/v1/gonum/mat"
)

// Accuracy is the share of rows whose predicted class code equals the truth.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	hits := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			hits++
		}
	}
	return float64(hits) / float64(n), nil
}

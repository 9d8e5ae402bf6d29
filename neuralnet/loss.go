package neuralnet

import "math"

// epsilon keeps the logarithms in CrossEntropy away from log(0).
const epsilon = 1e-15

// CrossEntropy is the binary cross-entropy of a single predicted probability.
func CrossEntropy(yTrue, yPred float64) float64 {
	return -(yTrue*math.Log(yPred+epsilon) + (1-yTrue)*math.Log(1-yPred+epsilon))
}

// MeanSquaredError averages the squared component differences.
func MeanSquaredError(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, shapeErrorf("mse: len %d != %d", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum / float64(len(yTrue)), nil
}

// ErrorVector returns yPred - yTrue, the seed for backpropagation.
func ErrorVector(yTrue, yPred []float64) ([]float64, error) {
	if len(yTrue) != len(yPred) {
		return nil, shapeErrorf("error vector: len %d != %d", len(yTrue), len(yPred))
	}
	errs := make([]float64, len(yPred))
	for i := range yPred {
		errs[i] = yPred[i] - yTrue[i]
	}
	return errs, nil
}

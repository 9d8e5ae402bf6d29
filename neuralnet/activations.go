package neuralnet

import (
	"math"

	"github.com/pkg/errors"
)

// ActivationFunction pairs a scalar activation with its derivative. The Trainer
// uses it to pick the derivative applied at the output layer.
type ActivationFunction interface {
	Activate(x float64) float64
	Derivative(x float64) float64
}

type ReLU struct{}

func (r ReLU) Activate(x float64) float64 {
	return Relu(x)
}

func (r ReLU) Derivative(x float64) float64 {
	return ReluDerivative(x)
}

type Sigmoid struct{}

func (s Sigmoid) Activate(x float64) float64 {
	return Logistic(x)
}

func (s Sigmoid) Derivative(x float64) float64 {
	return SigmoidDerivative(x)
}

// Linear passes the output error through unchanged, which is the exact
// gradient for softmax followed by cross-entropy.
type Linear struct{}

func (t Linear) Activate(x float64) float64 {
	return x
}

func (t Linear) Derivative(x float64) float64 {
	return 1
}

// ActivationByName resolves the names accepted in run configs.
func ActivationByName(name string) (ActivationFunction, error) {
	switch name {
	case "", "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "linear":
		return Linear{}, nil
	}
	return nil, errors.Errorf("unknown activation %q", name)
}

// Logistic is the sigmoid function 1 / (1 + e^-x).
func Logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func SigmoidDerivative(x float64) float64 {
	s := Logistic(x)
	return s * (1 - s)
}

// Relu returns max(0, x).
func Relu(x float64) float64 {
	return math.Max(x, 0)
}

// ReluDerivative is 1 for x > 0 and 0 otherwise, including at 0.
func ReluDerivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// ApplyReLU returns a new vector with Relu applied element-wise.
func ApplyReLU(v []float64) []float64 {
	return apply(v, Relu)
}

func ApplySigmoid(v []float64) []float64 {
	return apply(v, Logistic)
}

func ReluDerivativeVec(v []float64) []float64 {
	return apply(v, ReluDerivative)
}

func SigmoidDerivativeVec(v []float64) []float64 {
	return apply(v, SigmoidDerivative)
}

func apply(v []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = f(x)
	}
	return out
}

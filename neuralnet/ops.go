package neuralnet

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dot returns the inner product of a and b.
func Dot(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, shapeErrorf("dot: len %d != %d", len(a), len(b))
	}
	return floats.Dot(a, b), nil
}

// MatVec multiplies every row of w with v.
func MatVec(w mat.Matrix, v []float64) ([]float64, error) {
	rows, cols := w.Dims()
	if cols != len(v) {
		return nil, shapeErrorf("matvec: %d columns, vector len %d", cols, len(v))
	}
	out := mat.NewVecDense(rows, nil)
	out.MulVec(w, mat.NewVecDense(len(v), v))
	return out.RawVector().Data, nil
}

// VecAdd returns a + b as a new slice.
func VecAdd(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, shapeErrorf("add: len %d != %d", len(a), len(b))
	}
	out := make([]float64, len(a))
	floats.AddTo(out, a, b)
	return out, nil
}

// Softmax subtracts max(v) before exponentiating so large logits stay finite.
func Softmax(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	max := floats.Max(v)
	for i, x := range v {
		out[i] = math.Exp(x - max)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

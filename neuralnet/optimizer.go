package neuralnet

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Gradients accumulates per-tensor gradients over one mini-batch.
type Gradients struct {
	WeightsInputHidden  *mat.Dense
	WeightsHiddenOutput *mat.Dense
	BiasHidden          *mat.VecDense
	BiasOutput          *mat.VecDense
}

// NewGradients returns zeroed accumulators sized for nn.
func NewGradients(nn *NeuralNetwork) *Gradients {
	in, hidden, out := nn.Sizes()
	return &Gradients{
		WeightsInputHidden:  mat.NewDense(hidden, in, nil),
		WeightsHiddenOutput: mat.NewDense(out, hidden, nil),
		BiasHidden:          mat.NewVecDense(hidden, nil),
		BiasOutput:          mat.NewVecDense(out, nil),
	}
}

// Zero resets every accumulator.
func (g *Gradients) Zero() {
	g.WeightsInputHidden.Zero()
	g.WeightsHiddenOutput.Zero()
	g.BiasHidden.Zero()
	g.BiasOutput.Zero()
}

// Accumulate adds the outer-product gradients of one sample.
func (g *Gradients) Accumulate(deltaHidden, input, deltaOutput, hiddenPost []float64) {
	dh := mat.NewVecDense(len(deltaHidden), deltaHidden)
	do := mat.NewVecDense(len(deltaOutput), deltaOutput)
	g.WeightsInputHidden.RankOne(g.WeightsInputHidden, 1, dh, mat.NewVecDense(len(input), input))
	g.WeightsHiddenOutput.RankOne(g.WeightsHiddenOutput, 1, do, mat.NewVecDense(len(hiddenPost), hiddenPost))
	g.BiasHidden.AddVec(g.BiasHidden, dh)
	g.BiasOutput.AddVec(g.BiasOutput, do)
}

// Optimizer applies accumulated gradients to a network.
type Optimizer interface {
	Apply(nn *NeuralNetwork, grads *Gradients, batchSize int) error
}

// SGD is plain gradient descent without momentum.
type SGD struct {
	LearningRate float64
}

// Apply subtracts grads scaled by LearningRate/batchSize from every tensor.
// The updated tensors go back through the network's setters.
func (o *SGD) Apply(nn *NeuralNetwork, grads *Gradients, batchSize int) error {
	if batchSize <= 0 {
		return errors.New("invalid batch size")
	}
	alpha := -o.LearningRate / float64(batchSize)

	p := nn.Params()
	p.WeightsInputHidden.Add(p.WeightsInputHidden, scaled(grads.WeightsInputHidden, alpha))
	p.WeightsHiddenOutput.Add(p.WeightsHiddenOutput, scaled(grads.WeightsHiddenOutput, alpha))
	p.BiasHidden.AddScaledVec(p.BiasHidden, alpha, grads.BiasHidden)
	p.BiasOutput.AddScaledVec(p.BiasOutput, alpha, grads.BiasOutput)
	return nn.SetParams(p)
}

func scaled(m *mat.Dense, alpha float64) *mat.Dense {
	var out mat.Dense
	out.Scale(alpha, m)
	return &out
}

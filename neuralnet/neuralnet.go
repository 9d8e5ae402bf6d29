package neuralnet

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Params holds every trainable tensor of a Network.
type Params struct {
	WeightsInputHidden  *mat.Dense    // hidden x input
	WeightsHiddenOutput *mat.Dense    // output x hidden
	BiasHidden          *mat.VecDense // hidden
	BiasOutput          *mat.VecDense // output
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	return Params{
		WeightsInputHidden:  mat.DenseCopyOf(p.WeightsInputHidden),
		WeightsHiddenOutput: mat.DenseCopyOf(p.WeightsHiddenOutput),
		BiasHidden:          mat.VecDenseCopyOf(p.BiasHidden),
		BiasOutput:          mat.VecDenseCopyOf(p.BiasOutput),
	}
}

// Sizes returns the input, hidden and output sizes implied by p. It fails
// when the four tensors do not agree with each other.
func (p Params) Sizes() (input, hidden, output int, err error) {
	if p.WeightsInputHidden == nil || p.WeightsHiddenOutput == nil || p.BiasHidden == nil || p.BiasOutput == nil {
		return 0, 0, 0, shapeErrorf("params: missing tensor")
	}
	hidden, input = p.WeightsInputHidden.Dims()
	output, h2 := p.WeightsHiddenOutput.Dims()
	switch {
	case h2 != hidden:
		return 0, 0, 0, shapeErrorf("params: hidden-output has %d columns, want %d", h2, hidden)
	case p.BiasHidden.Len() != hidden:
		return 0, 0, 0, shapeErrorf("params: hidden bias len %d, want %d", p.BiasHidden.Len(), hidden)
	case p.BiasOutput.Len() != output:
		return 0, 0, 0, shapeErrorf("params: output bias len %d, want %d", p.BiasOutput.Len(), output)
	}
	return input, hidden, output, nil
}

// NeuralNetwork is a feedforward network with one ReLU hidden layer and a
// softmax output.
//
// Forward overwrites the cached hidden activations that the Trainer reads
// back during backpropagation, so a NeuralNetwork is not safe for concurrent
// use. Give each goroutine its own instance.
type NeuralNetwork struct {
	inputSize  int
	hiddenSize int
	outputSize int

	params Params

	hiddenPre  []float64
	hiddenPost []float64
}

// NewNeuralNetwork draws weights from a Gaussian scaled by sqrt(2/fan_in) and
// starts biases at zero.
func NewNeuralNetwork(inputSize, hiddenSize, outputSize int, rng *rand.Rand) *NeuralNetwork {
	if rng == nil {
		rng = rand.New(rand.NewSource(NNSeed(inputSize, hiddenSize, outputSize)))
	}
	nn := NewZeroNetwork(inputSize, hiddenSize, outputSize)
	heInit(nn.params.WeightsInputHidden, inputSize, rng)
	heInit(nn.params.WeightsHiddenOutput, hiddenSize, rng)
	return nn
}

// NewZeroNetwork returns a network whose weights and biases are all zero.
func NewZeroNetwork(inputSize, hiddenSize, outputSize int) *NeuralNetwork {
	if inputSize <= 0 || hiddenSize <= 0 || outputSize <= 0 {
		panic("neuralnet: layer sizes must be positive")
	}
	return &NeuralNetwork{
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		outputSize: outputSize,
		params: Params{
			WeightsInputHidden:  mat.NewDense(hiddenSize, inputSize, nil),
			WeightsHiddenOutput: mat.NewDense(outputSize, hiddenSize, nil),
			BiasHidden:          mat.NewVecDense(hiddenSize, nil),
			BiasOutput:          mat.NewVecDense(outputSize, nil),
		},
	}
}

// NewNetworkFromParams builds a network around a copy of p, typically one
// loaded from a checkpoint.
func NewNetworkFromParams(p Params) (*NeuralNetwork, error) {
	in, hidden, out, err := p.Sizes()
	if err != nil {
		return nil, err
	}
	return &NeuralNetwork{
		inputSize:  in,
		hiddenSize: hidden,
		outputSize: out,
		params:     p.Clone(),
	}, nil
}

// NNSeed derives a default seed from the layer sizes.
func NNSeed(inputSize, hiddenSize, outputSize int) int64 {
	return int64(inputSize + hiddenSize + outputSize)
}

func heInit(w *mat.Dense, fanIn int, rng *rand.Rand) {
	scale := math.Sqrt(2.0 / float64(fanIn))
	rows, cols := w.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			w.Set(i, j, rng.NormFloat64()*scale)
		}
	}
}

// Forward returns softmax(W_ho·ReLU(W_ih·input + b_h) + b_o) and caches the
// hidden pre- and post-activations.
func (nn *NeuralNetwork) Forward(input []float64) ([]float64, error) {
	if len(input) != nn.inputSize {
		return nil, shapeErrorf("forward: input len %d, want %d", len(input), nn.inputSize)
	}
	wx, err := MatVec(nn.params.WeightsInputHidden, input)
	if err != nil {
		return nil, err
	}
	hiddenPre, err := VecAdd(wx, nn.params.BiasHidden.RawVector().Data)
	if err != nil {
		return nil, err
	}
	hiddenPost := ApplyReLU(hiddenPre)

	wh, err := MatVec(nn.params.WeightsHiddenOutput, hiddenPost)
	if err != nil {
		return nil, err
	}
	outputPre, err := VecAdd(wh, nn.params.BiasOutput.RawVector().Data)
	if err != nil {
		return nil, err
	}

	nn.hiddenPre = hiddenPre
	nn.hiddenPost = hiddenPost
	return Softmax(outputPre), nil
}

// HiddenPre returns a copy of the cached hidden pre-activations.
func (nn *NeuralNetwork) HiddenPre() []float64 {
	return append([]float64(nil), nn.hiddenPre...)
}

// HiddenPost returns a copy of the cached hidden post-activations.
func (nn *NeuralNetwork) HiddenPost() []float64 {
	return append([]float64(nil), nn.hiddenPost...)
}

func (nn *NeuralNetwork) Sizes() (input, hidden, output int) {
	return nn.inputSize, nn.hiddenSize, nn.outputSize
}

// Params returns a deep copy of every parameter tensor.
func (nn *NeuralNetwork) Params() Params {
	return nn.params.Clone()
}

// SetParams replaces all parameters at once. p must match the network's sizes.
func (nn *NeuralNetwork) SetParams(p Params) error {
	in, hidden, out, err := p.Sizes()
	if err != nil {
		return err
	}
	if in != nn.inputSize || hidden != nn.hiddenSize || out != nn.outputSize {
		return shapeErrorf("set params: got %dx%dx%d, want %dx%dx%d",
			in, hidden, out, nn.inputSize, nn.hiddenSize, nn.outputSize)
	}
	nn.params = p.Clone()
	return nil
}

func (nn *NeuralNetwork) WeightsInputHidden() *mat.Dense {
	return mat.DenseCopyOf(nn.params.WeightsInputHidden)
}

func (nn *NeuralNetwork) WeightsHiddenOutput() *mat.Dense {
	return mat.DenseCopyOf(nn.params.WeightsHiddenOutput)
}

func (nn *NeuralNetwork) BiasHidden() *mat.VecDense {
	return mat.VecDenseCopyOf(nn.params.BiasHidden)
}

func (nn *NeuralNetwork) BiasOutput() *mat.VecDense {
	return mat.VecDenseCopyOf(nn.params.BiasOutput)
}

// SetWeightsInputHidden replaces the input-hidden weights with a copy of w.
func (nn *NeuralNetwork) SetWeightsInputHidden(w mat.Matrix) error {
	if r, c := w.Dims(); r != nn.hiddenSize || c != nn.inputSize {
		return shapeErrorf("input-hidden weights: got %dx%d, want %dx%d", r, c, nn.hiddenSize, nn.inputSize)
	}
	nn.params.WeightsInputHidden = mat.DenseCopyOf(w)
	return nil
}

// SetWeightsHiddenOutput replaces the hidden-output weights with a copy of w.
func (nn *NeuralNetwork) SetWeightsHiddenOutput(w mat.Matrix) error {
	if r, c := w.Dims(); r != nn.outputSize || c != nn.hiddenSize {
		return shapeErrorf("hidden-output weights: got %dx%d, want %dx%d", r, c, nn.outputSize, nn.hiddenSize)
	}
	nn.params.WeightsHiddenOutput = mat.DenseCopyOf(w)
	return nil
}

func (nn *NeuralNetwork) SetBiasHidden(b mat.Vector) error {
	if b.Len() != nn.hiddenSize {
		return shapeErrorf("hidden bias: len %d, want %d", b.Len(), nn.hiddenSize)
	}
	nn.params.BiasHidden = mat.VecDenseCopyOf(b)
	return nil
}

func (nn *NeuralNetwork) SetBiasOutput(b mat.Vector) error {
	if b.Len() != nn.outputSize {
		return shapeErrorf("output bias: len %d, want %d", b.Len(), nn.outputSize)
	}
	nn.params.BiasOutput = mat.VecDenseCopyOf(b)
	return nil
}

// Package ensemble combines five one-vs-rest networks into a single five-way
// distribution over sketch categories.
package ensemble

import (
	"math"

	"github.com/pkg/errors"

	"sketchnet/neuralnet"
)

// Categories is the fixed category order of every distribution returned here.
var Categories = []string{"apple", "candle", "eyeglasses", "fork", "star"}

var (
	ErrInvalidInput = errors.New("ensemble: invalid input")
	ErrMissingModel = errors.New("ensemble: missing model")
)

// InputError reports a malformed inference input. It matches ErrInvalidInput
// and unwraps to the underlying shape error.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return ErrInvalidInput.Error() + ": " + e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Ensemble holds one network per category. Classify runs every network's
// Forward, which rewrites its activation cache, so an Ensemble must not be
// shared between goroutines without external locking.
type Ensemble struct {
	models    []*neuralnet.NeuralNetwork
	inputSize int
}

// New builds an ensemble from a category -> network map. Every category in
// Categories must be present, and all networks must share one input size.
func New(models map[string]*neuralnet.NeuralNetwork) (*Ensemble, error) {
	e := &Ensemble{models: make([]*neuralnet.NeuralNetwork, len(Categories))}
	for i, c := range Categories {
		nn := models[c]
		if nn == nil {
			return nil, errors.Wrapf(ErrMissingModel, "category %s", c)
		}
		in, _, _ := nn.Sizes()
		if i == 0 {
			e.inputSize = in
		} else if in != e.inputSize {
			return nil, errors.Wrapf(neuralnet.ErrShape, "category %s takes %d inputs, %s takes %d",
				c, in, Categories[0], e.inputSize)
		}
		e.models[i] = nn
	}
	if extra := len(models) - len(Categories); extra > 0 {
		return nil, errors.Errorf("ensemble: %d models for unknown categories", extra)
	}
	return e, nil
}

// Loader supplies a stored network per category.
type Loader interface {
	LoadNetwork(category string, inputSize, hiddenSize, outputSize int) (*neuralnet.NeuralNetwork, error)
}

// Load reads all five networks through l.
func Load(l Loader, inputSize, hiddenSize, outputSize int) (*Ensemble, error) {
	models := make(map[string]*neuralnet.NeuralNetwork, len(Categories))
	for _, c := range Categories {
		nn, err := l.LoadNetwork(c, inputSize, hiddenSize, outputSize)
		if err != nil {
			return nil, errors.Wrapf(ErrMissingModel, "load %s: %v", c, err)
		}
		models[c] = nn
	}
	return New(models)
}

func (e *Ensemble) InputSize() int { return e.inputSize }

// Raw returns each network's positive confidence (output[0]) in category
// order, without rebalancing. Inputs with NaN or infinite values, or that
// drive a network to a non-finite output, are rejected as invalid.
func (e *Ensemble) Raw(input []float64) ([]float64, error) {
	if len(input) != e.inputSize {
		return nil, &InputError{Err: errors.Wrapf(neuralnet.ErrShape, "got %d values, want %d", len(input), e.inputSize)}
	}
	for i, v := range input {
		if !finite(v) {
			return nil, &InputError{Err: errors.Errorf("value %d is %v", i, v)}
		}
	}
	raw := make([]float64, len(e.models))
	for i, nn := range e.models {
		out, err := nn.Forward(input)
		if err != nil {
			return nil, &InputError{Err: errors.Wrapf(err, "category %s", Categories[i])}
		}
		// Finite but huge inputs can still overflow inside the network.
		if !finite(out[0]) {
			return nil, &InputError{Err: errors.Errorf("category %s: confidence is %v", Categories[i], out[0])}
		}
		raw[i] = out[0]
	}
	return raw, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Classify returns the rebalanced five-way distribution for input.
func (e *Ensemble) Classify(input []float64) ([]float64, error) {
	raw, err := e.Raw(input)
	if err != nil {
		return nil, err
	}
	return Rebalance(raw), nil
}

// BestMatch names the category with the highest raw confidence.
func (e *Ensemble) BestMatch(input []float64) (string, error) {
	raw, err := e.Raw(input)
	if err != nil {
		return "", err
	}
	return Categories[argmax(raw)], nil
}

// Predictions maps each category to its rebalanced probability.
func (e *Ensemble) Predictions(input []float64) (map[string]float64, error) {
	probs, err := e.Classify(input)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(probs))
	for i, p := range probs {
		out[Categories[i]] = p
	}
	return out, nil
}

package neuralnet

import (
	"math/rand"

	"github.com/pkg/errors"
)

// PositiveTarget returns a new label for a sample of the model's own category.
func PositiveTarget() []float64 { return []float64{1, 0} }

// NegativeTarget returns a new label for a sample of any other category.
func NegativeTarget() []float64 { return []float64{0, 1} }

// positiveShare is the fraction of a training set drawn from the target
// category. The rest is split evenly across the other categories.
const positiveShare = 0.4

// TrainingSample is an immutable (input, target) pair.
type TrainingSample struct {
	input  []float64
	target []float64
}

// NewTrainingSample copies input and target.
func NewTrainingSample(input, target []float64) TrainingSample {
	return TrainingSample{
		input:  append([]float64(nil), input...),
		target: append([]float64(nil), target...),
	}
}

// Input returns a copy of the sample's input vector.
func (s TrainingSample) Input() []float64 {
	return append([]float64(nil), s.input...)
}

// Target returns a copy of the sample's target vector.
func (s TrainingSample) Target() []float64 {
	return append([]float64(nil), s.target...)
}

// BuildTrainingSet assembles a one-vs-rest training set of roughly total
// samples for target: 40% positives from target's own vectors and 60% negatives
// split evenly across the remaining categories. Each category contributes its
// leading vectors, or all of them if it has fewer. The combined list is
// shuffled with seed.
func BuildTrainingSet(byCategory map[string][][]float64, categories []string, target string, total int, seed int64) ([]TrainingSample, error) {
	if total <= 0 {
		return nil, errors.Errorf("training set size must be > 0 (got %d)", total)
	}
	if len(categories) < 2 {
		return nil, errors.Errorf("need at least two categories (got %d)", len(categories))
	}
	found := false
	for _, c := range categories {
		if len(byCategory[c]) == 0 {
			return nil, errors.Wrapf(ErrEmptyData, "category %s has no samples", c)
		}
		if c == target {
			found = true
		}
	}
	if !found {
		return nil, errors.Errorf("target category %s is not among %v", target, categories)
	}

	positives := int(float64(total) * positiveShare)
	perNegative := (total - positives) / (len(categories) - 1)

	samples := make([]TrainingSample, 0, total)
	for _, c := range categories {
		n, label := perNegative, NegativeTarget()
		if c == target {
			n, label = positives, PositiveTarget()
		}
		vectors := byCategory[c]
		if n > len(vectors) {
			n = len(vectors)
		}
		for _, v := range vectors[:n] {
			samples = append(samples, NewTrainingSample(v, label))
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
	return samples, nil
}

// SplitValidation holds back the trailing fraction of samples for validation.
// Both halves are non-empty whenever len(samples) >= 2 and 0 < fraction < 1.
func SplitValidation(samples []TrainingSample, fraction float64) (train, validation []TrainingSample, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, errors.Errorf("validation fraction must be in (0, 1) (got %g)", fraction)
	}
	if len(samples) < 2 {
		return nil, nil, errors.Wrapf(ErrEmptyData, "cannot split %d samples", len(samples))
	}
	n := int(float64(len(samples)) * fraction)
	if n == 0 {
		n = 1
	}
	cut := len(samples) - n
	return samples[:cut], samples[cut:], nil
}

package neuralnet

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NoBestError stands in for "no checkpoint yet"; every real validation error
// improves on it.
const NoBestError = math.MaxFloat64

// DefaultImprovementMargin is how far validation error must drop below the
// best so far before a new checkpoint is written.
const DefaultImprovementMargin = 1e-4

// Checkpoint is a parameter snapshot plus the validation error that earned it.
type Checkpoint struct {
	BestError float64
	Params    Params
}

// CheckpointSink persists checkpoints for a category.
type CheckpointSink interface {
	SaveCheckpoint(category string, cp Checkpoint) error
}

// State is where a training run stands.
type State int

const (
	Training State = iota
	EarlyStopped
	EpochsExhausted
)

func (s State) String() string {
	switch s {
	case Training:
		return "training"
	case EarlyStopped:
		return "early-stopped"
	case EpochsExhausted:
		return "epochs-exhausted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// TrainerConfig holds the hyperparameters of one training run.
type TrainerConfig struct {
	Category     string
	LearningRate float64
	Epochs       int
	BatchSize    int
	// Patience is the number of consecutive non-improving epochs tolerated
	// before stopping. Zero or less disables early stopping.
	Patience int
	Seed     int64
	// OutputDerivative is applied to the softmax outputs when forming the
	// output-layer delta. Defaults to ReLU.
	OutputDerivative  ActivationFunction
	ImprovementMargin float64
	LogEvery          int
	Logger            *log.Logger
}

// Validate checks the config and fills in defaults.
func (c *TrainerConfig) Validate() error {
	if c.LearningRate <= 0 {
		return errors.Errorf("learning rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch size must be > 0 (got %d)", c.BatchSize)
	}
	if c.ImprovementMargin < 0 {
		return errors.Errorf("improvement margin must be >= 0 (got %g)", c.ImprovementMargin)
	}
	if c.ImprovementMargin == 0 {
		c.ImprovementMargin = DefaultImprovementMargin
	}
	if c.OutputDerivative == nil {
		c.OutputDerivative = ReLU{}
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 10
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return nil
}

// Result summarizes a finished run. EpochsRun < EpochsRequested means the run
// stopped early.
type Result struct {
	RunID           string
	Category        string
	EpochsRun       int
	EpochsRequested int
	BestError       float64
	State           State
	Checkpoints     int
}

// Trainer runs mini-batch gradient descent on one network with early stopping
// and checkpoint-on-improvement.
type Trainer struct {
	net        *NeuralNetwork
	cfg        TrainerConfig
	opt        Optimizer
	sink       CheckpointSink
	train      []TrainingSample
	validation []TrainingSample
	grads      *Gradients

	runID         string
	bestError     float64
	noImprovement int
	epoch         int
	checkpoints   int
	state         State
}

// NewTrainer prepares a run. bestError is the error of the prior checkpoint,
// or NoBestError. A nil sink discards checkpoints.
func NewTrainer(net *NeuralNetwork, cfg TrainerConfig, train, validation []TrainingSample, sink CheckpointSink, bestError float64) (*Trainer, error) {
	if net == nil {
		return nil, errors.New("trainer: nil network")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "trainer")
	}
	if len(train) == 0 {
		return nil, errors.Wrap(ErrEmptyData, "trainer: no training samples")
	}
	if len(validation) == 0 {
		return nil, errors.Wrap(ErrEmptyData, "trainer: no validation samples")
	}
	in, _, out := net.Sizes()
	for _, set := range [][]TrainingSample{train, validation} {
		for i, s := range set {
			if len(s.input) != in || len(s.target) != out {
				return nil, shapeErrorf("trainer: sample %d is %d->%d, network is %d->%d",
					i, len(s.input), len(s.target), in, out)
			}
		}
	}
	return &Trainer{
		net:        net,
		cfg:        cfg,
		opt:        &SGD{LearningRate: cfg.LearningRate},
		sink:       sink,
		train:      append([]TrainingSample(nil), train...),
		validation: validation,
		grads:      NewGradients(net),
		runID:      uuid.NewString(),
		bestError:  bestError,
		state:      Training,
	}, nil
}

func (t *Trainer) BestError() float64 { return t.bestError }
func (t *Trainer) State() State       { return t.state }
func (t *Trainer) RunID() string      { return t.runID }

// Run trains until the epoch budget is spent or patience runs out.
func (t *Trainer) Run() (Result, error) {
	for t.state == Training {
		if err := t.Epoch(); err != nil {
			return t.result(), err
		}
		valErr, err := t.ValidationError()
		if err != nil {
			return t.result(), err
		}
		if _, err := t.Observe(valErr); err != nil {
			return t.result(), err
		}
		if t.epoch%t.cfg.LogEvery == 0 {
			t.cfg.Logger.Printf("run=%s category=%s epoch=%d val_loss=%.6f best=%s",
				t.runID, t.cfg.Category, t.epoch, valErr, formatBest(t.bestError))
		}
		if t.state == Training && t.epoch >= t.cfg.Epochs {
			t.state = EpochsExhausted
		}
	}
	res := t.result()
	t.cfg.Logger.Printf("run=%s category=%s state=%s epochs=%d/%d best=%s checkpoints=%d",
		res.RunID, res.Category, res.State, res.EpochsRun, res.EpochsRequested, formatBest(res.BestError), res.Checkpoints)
	return res, nil
}

func (t *Trainer) result() Result {
	return Result{
		RunID:           t.runID,
		Category:        t.cfg.Category,
		EpochsRun:       t.epoch,
		EpochsRequested: t.cfg.Epochs,
		BestError:       t.bestError,
		State:           t.state,
		Checkpoints:     t.checkpoints,
	}
}

// Epoch shuffles the training set with a generator seeded from the config,
// then trains on consecutive batches. The last batch may be short.
func (t *Trainer) Epoch() error {
	rng := rand.New(rand.NewSource(t.cfg.Seed))
	rng.Shuffle(len(t.train), func(i, j int) {
		t.train[i], t.train[j] = t.train[j], t.train[i]
	})
	for start := 0; start < len(t.train); start += t.cfg.BatchSize {
		end := start + t.cfg.BatchSize
		if end > len(t.train) {
			end = len(t.train)
		}
		if err := t.trainBatch(t.train[start:end]); err != nil {
			return errors.Wrapf(err, "epoch %d", t.epoch+1)
		}
	}
	t.epoch++
	return nil
}

func (t *Trainer) trainBatch(batch []TrainingSample) error {
	t.grads.Zero()
	for _, s := range batch {
		output, err := t.net.Forward(s.input)
		if err != nil {
			return err
		}
		errs, err := ErrorVector(s.target, output)
		if err != nil {
			return err
		}

		deltaOutput := make([]float64, len(output))
		for i := range output {
			deltaOutput[i] = errs[i] * t.cfg.OutputDerivative.Derivative(output[i])
		}

		var back mat.VecDense
		back.MulVec(t.net.params.WeightsHiddenOutput.T(), mat.NewVecDense(len(deltaOutput), deltaOutput))
		deltaHidden := make([]float64, back.Len())
		for i := range deltaHidden {
			deltaHidden[i] = back.AtVec(i) * ReluDerivative(t.net.hiddenPre[i])
		}

		t.grads.Accumulate(deltaHidden, s.input, deltaOutput, t.net.hiddenPost)
	}
	return t.opt.Apply(t.net, t.grads, len(batch))
}

// ValidationError is the mean binary cross-entropy over the validation set,
// reading output[0] as the probability of the positive class.
func (t *Trainer) ValidationError() (float64, error) {
	var sum float64
	for _, s := range t.validation {
		output, err := t.net.Forward(s.input)
		if err != nil {
			return 0, err
		}
		sum += CrossEntropy(s.target[0], output[0])
	}
	return sum / float64(len(t.validation)), nil
}

// Observe records one validation result. It checkpoints and reports true when
// validationError beats the best by more than the improvement margin;
// otherwise it counts toward patience and may move the run to EarlyStopped.
// When the sink fails, the trainer's state is left as it was.
func (t *Trainer) Observe(validationError float64) (bool, error) {
	if validationError < t.bestError-t.cfg.ImprovementMargin {
		if t.sink != nil {
			cp := Checkpoint{BestError: validationError, Params: t.net.Params()}
			if err := t.sink.SaveCheckpoint(t.cfg.Category, cp); err != nil {
				return false, errors.Wrapf(err, "save checkpoint for %s", t.cfg.Category)
			}
		}
		// Only a persisted checkpoint moves the best error.
		t.bestError = validationError
		t.noImprovement = 0
		t.checkpoints++
		t.cfg.Logger.Printf("run=%s category=%s epoch=%d checkpoint best=%.6f",
			t.runID, t.cfg.Category, t.epoch, validationError)
		return true, nil
	}
	t.noImprovement++
	if t.cfg.Patience > 0 && t.noImprovement >= t.cfg.Patience {
		t.state = EarlyStopped
	}
	return false, nil
}

func formatBest(v float64) string {
	if v == NoBestError {
		return "none"
	}
	return fmt.Sprintf("%.6f", v)
}

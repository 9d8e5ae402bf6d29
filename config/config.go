package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"sketchnet/neuralnet"
	"sketchnet/sketch"
)

// Config captures the runtime knobs for training and classification.
type Config struct {
	SamplesDir         string  `yaml:"samples_dir"`
	CheckpointDir      string  `yaml:"checkpoint_dir"`
	InputSize          int     `yaml:"input_size"`
	HiddenSize         int     `yaml:"hidden_size"`
	OutputSize         int     `yaml:"output_size"`
	LearningRate       float64 `yaml:"learning_rate"`
	Epochs             int     `yaml:"epochs"`
	BatchSize          int     `yaml:"batch_size"`
	Patience           int     `yaml:"patience"`
	Seed               int64   `yaml:"seed"`
	SamplesPerModel    int     `yaml:"samples_per_model"`
	ValidationFraction float64 `yaml:"validation_fraction"`
	OutputDerivative   string  `yaml:"output_derivative"`
	Downscale          string  `yaml:"downscale"`
	LogEvery           int     `yaml:"log_every"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	SamplesDir    string
	CheckpointDir string
	LearningRate  float64
	Epochs        int
	BatchSize     int
	Patience      int
	Seed          int64
	LogEvery      int
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		SamplesDir:         "data/converted_vectors",
		CheckpointDir:      "checkpoints",
		InputSize:          sketch.VectorSize,
		HiddenSize:         5,
		OutputSize:         2,
		LearningRate:       0.01,
		Epochs:             500,
		BatchSize:          32,
		Patience:           20,
		Seed:               42,
		SamplesPerModel:    1000,
		ValidationFraction: 0.2,
		OutputDerivative:   "relu",
		Downscale:          "average",
		LogEvery:           10,
	}
}

// Load reads a YAML config on top of Default and validates it. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.SamplesDir != "" {
		c.SamplesDir = o.SamplesDir
	}
	if o.CheckpointDir != "" {
		c.CheckpointDir = o.CheckpointDir
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Patience != 0 {
		c.Patience = o.Patience
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.SamplesDir == "" {
		return errors.New("samples_dir must be set")
	}
	if c.CheckpointDir == "" {
		return errors.New("checkpoint_dir must be set")
	}
	if c.InputSize <= 0 || c.HiddenSize <= 0 || c.OutputSize <= 0 {
		return errors.Errorf("layer sizes must be > 0 (got %d/%d/%d)", c.InputSize, c.HiddenSize, c.OutputSize)
	}
	if c.OutputSize < 2 {
		return errors.Errorf("output_size must be >= 2 (got %d)", c.OutputSize)
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.SamplesPerModel <= 0 {
		return errors.Errorf("samples_per_model must be > 0 (got %d)", c.SamplesPerModel)
	}
	if c.ValidationFraction <= 0 || c.ValidationFraction >= 1 {
		return errors.Errorf("validation_fraction must be in (0, 1) (got %g)", c.ValidationFraction)
	}
	if _, err := neuralnet.ActivationByName(c.OutputDerivative); err != nil {
		return errors.Wrap(err, "output_derivative")
	}
	if _, err := sketch.ParseMethod(c.Downscale); err != nil {
		return errors.Wrap(err, "downscale")
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 10
	}
	return nil
}

package main

import (
	"log"
	"math/rand"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"sketchnet/config"
	"sketchnet/ensemble"
	"sketchnet/neuralnet"
	"sketchnet/store"
)

// trainCategory runs one one-vs-rest training session for category and
// checkpoints into st whenever validation error improves on the stored best.
func trainCategory(cfg *config.Config, st *store.FileStore, byCategory map[string][][]float64, category string, fresh bool, logger *log.Logger) (neuralnet.Result, error) {
	samples, err := neuralnet.BuildTrainingSet(byCategory, ensemble.Categories, category, cfg.SamplesPerModel, cfg.Seed)
	if err != nil {
		return neuralnet.Result{}, err
	}
	train, validation, err := neuralnet.SplitValidation(samples, cfg.ValidationFraction)
	if err != nil {
		return neuralnet.Result{}, err
	}
	best, err := st.LoadBestError(category)
	if err != nil {
		return neuralnet.Result{}, err
	}
	net, err := initialNetwork(cfg, st, category, fresh)
	if err != nil {
		return neuralnet.Result{}, err
	}
	deriv, err := neuralnet.ActivationByName(cfg.OutputDerivative)
	if err != nil {
		return neuralnet.Result{}, err
	}

	tr, err := neuralnet.NewTrainer(net, neuralnet.TrainerConfig{
		Category:         category,
		LearningRate:     cfg.LearningRate,
		Epochs:           cfg.Epochs,
		BatchSize:        cfg.BatchSize,
		Patience:         cfg.Patience,
		Seed:             cfg.Seed,
		OutputDerivative: deriv,
		LogEvery:         cfg.LogEvery,
		Logger:           logger,
	}, train, validation, st, best)
	if err != nil {
		return neuralnet.Result{}, err
	}
	logger.Printf("run=%s category=%s train=%d validation=%d prior_best=%s",
		tr.RunID(), category, len(train), len(validation), bestString(best))
	return tr.Run()
}

// initialNetwork resumes from category's stored parameters when they exist,
// and otherwise draws new weights from cfg.Seed.
func initialNetwork(cfg *config.Config, st *store.FileStore, category string, fresh bool) (*neuralnet.NeuralNetwork, error) {
	if !fresh {
		net, err := st.LoadNetwork(category, cfg.InputSize, cfg.HiddenSize, cfg.OutputSize)
		if err == nil {
			return net, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "resume %s", category)
		}
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return neuralnet.NewNeuralNetwork(cfg.InputSize, cfg.HiddenSize, cfg.OutputSize, rng), nil
}

func bestString(v float64) string {
	if v == neuralnet.NoBestError {
		return "none"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

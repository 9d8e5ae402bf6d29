package main

import (
	"io"
	"log"
	"testing"

	"sketchnet/config"
	"sketchnet/ensemble"
	"sketchnet/neuralnet"
	"sketchnet/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.SamplesDir = t.TempDir()
	cfg.CheckpointDir = t.TempDir()
	cfg.InputSize = 4
	cfg.HiddenSize = 3
	cfg.SamplesPerModel = 20
	cfg.LearningRate = 0.1
	cfg.Epochs = 5
	cfg.BatchSize = 4
	cfg.Patience = 0
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	writeSamples(t, cfg.SamplesDir, cfg.InputSize, 10)
	return cfg
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestTrainCategoryCheckpoints(t *testing.T) {
	cfg := testConfig(t)
	byCategory, err := loadSamples(cfg.SamplesDir, ensemble.Categories, cfg.InputSize)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(cfg.CheckpointDir)

	res, err := trainCategory(cfg, st, byCategory, "candle", false, quietLogger())
	if err != nil {
		t.Fatalf("trainCategory error: %v", err)
	}
	if res.State != neuralnet.EpochsExhausted || res.EpochsRun != cfg.Epochs {
		t.Errorf("state %s after %d epochs; want epochs-exhausted after %d", res.State, res.EpochsRun, cfg.Epochs)
	}
	if res.Checkpoints == 0 {
		t.Error("first run wrote no checkpoint")
	}
	stored, err := st.LoadBestError("candle")
	if err != nil {
		t.Fatal(err)
	}
	if stored != res.BestError {
		t.Errorf("stored best = %v; want %v", stored, res.BestError)
	}

	// The second run resumes from the checkpoint and may only improve on it.
	res2, err := trainCategory(cfg, st, byCategory, "candle", false, quietLogger())
	if err != nil {
		t.Fatalf("second trainCategory error: %v", err)
	}
	if res2.BestError > res.BestError {
		t.Errorf("second run best %v is worse than first %v", res2.BestError, res.BestError)
	}
}

func TestInitialNetwork(t *testing.T) {
	cfg := testConfig(t)
	st := store.New(cfg.CheckpointDir)

	fresh, err := initialNetwork(cfg, st, "apple", false)
	if err != nil {
		t.Fatalf("initialNetwork without checkpoint error: %v", err)
	}
	if err := st.SaveParams("apple", fresh.Params()); err != nil {
		t.Fatal(err)
	}
	resumed, err := initialNetwork(cfg, st, "apple", false)
	if err != nil {
		t.Fatal(err)
	}
	in := []float64{1, 0, 0.5, 0}
	a, _ := fresh.Forward(in)
	b, _ := resumed.Forward(in)
	if a[0] != b[0] || a[1] != b[1] {
		t.Errorf("resumed network output %v; want %v", b, a)
	}

	cfg.HiddenSize = 4
	if _, err := initialNetwork(cfg, st, "apple", false); err == nil {
		t.Error("resuming with a different hidden size did not return error")
	}
	if _, err := initialNetwork(cfg, st, "apple", true); err != nil {
		t.Errorf("fresh network error: %v", err)
	}
}

func TestTrainAllThenClassify(t *testing.T) {
	cfg := testConfig(t)
	byCategory, err := loadSamples(cfg.SamplesDir, ensemble.Categories, cfg.InputSize)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(cfg.CheckpointDir)
	for _, c := range ensemble.Categories {
		if _, err := trainCategory(cfg, st, byCategory, c, true, quietLogger()); err != nil {
			t.Fatalf("train %s: %v", c, err)
		}
	}

	e, err := ensemble.Load(st, cfg.InputSize, cfg.HiddenSize, cfg.OutputSize)
	if err != nil {
		t.Fatalf("ensemble.Load error: %v", err)
	}
	probs, err := e.Classify(byCategory["eyeglasses"][0])
	if err != nil {
		t.Fatal(err)
	}
	var winners int
	for _, p := range probs {
		if p < 0 || p > 1 {
			t.Errorf("probability %v out of [0, 1]", p)
		}
		if p >= 0.6 {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("Classify = %v; want exactly one boosted winner", probs)
	}
}

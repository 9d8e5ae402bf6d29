package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/pkg/errors"

	"sketchnet/config"
	"sketchnet/ensemble"
	"sketchnet/sketch"
	"sketchnet/store"
)

const usage = `usage: sketchnet <command> [flags]

commands:
  train     train the per-category networks
  classify  classify one drawing with all five networks
  convert   rasterize QuickDraw ndjson drawings into vectors
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "train":
		runTrain(os.Args[2:])
	case "classify":
		os.Exit(runClassify(os.Args[2:]))
	case "convert":
		runConvert(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

type commonFlags struct {
	cfgPath       *string
	samplesDir    *string
	checkpointDir *string
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		cfgPath:       fs.String("config", "", "Path to YAML config (built-in defaults when empty)"),
		samplesDir:    fs.String("samples-dir", "", "Override directory of <category>_vector_14.json files"),
		checkpointDir: fs.String("checkpoint-dir", "", "Override checkpoint directory"),
	}
}

func loadConfig(path string, o config.Overrides) *config.Config {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return cfg
}

func runTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	common := registerCommon(fs)
	category := fs.String("category", "", "Train only this category")
	learningRate := fs.Float64("learning-rate", 0, "Learning rate")
	epochs := fs.Int("epochs", 0, "Epoch budget")
	batchSize := fs.Int("batch-size", 0, "Batch size")
	patience := fs.Int("patience", 0, "Early-stopping patience (negative disables)")
	seed := fs.Int64("seed", 0, "Shuffle and init seed")
	logEvery := fs.Int("log-every", 0, "Log every N epochs")
	fresh := fs.Bool("fresh", false, "Start from new weights instead of the stored checkpoint")
	fs.Parse(args)

	cfg := loadConfig(*common.cfgPath, config.Overrides{
		SamplesDir:    *common.samplesDir,
		CheckpointDir: *common.checkpointDir,
		LearningRate:  *learningRate,
		Epochs:        *epochs,
		BatchSize:     *batchSize,
		Patience:      *patience,
		Seed:          *seed,
		LogEvery:      *logEvery,
	})

	targets := ensemble.Categories
	if *category != "" {
		if !knownCategory(*category) {
			log.Fatalf("unknown category %q (want one of %v)", *category, ensemble.Categories)
		}
		targets = []string{*category}
	}

	byCategory, err := loadSamples(cfg.SamplesDir, ensemble.Categories, cfg.InputSize)
	if err != nil {
		log.Fatalf("load samples: %v", err)
	}
	for _, c := range ensemble.Categories {
		log.Printf("category=%s samples=%d", c, len(byCategory[c]))
	}

	st := store.New(cfg.CheckpointDir)
	for _, c := range targets {
		res, err := trainCategory(cfg, st, byCategory, c, *fresh, log.Default())
		if err != nil {
			log.Fatalf("train %s: %v", c, err)
		}
		log.Printf("category=%s done state=%s epochs=%d/%d best=%.6f",
			c, res.State, res.EpochsRun, res.EpochsRequested, res.BestError)
	}
}

func knownCategory(c string) bool {
	for _, k := range ensemble.Categories {
		if k == c {
			return true
		}
	}
	return false
}

// runClassify returns the process exit code: 0 on success, 2 when the input
// cannot be classified.
func runClassify(args []string) int {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	common := registerCommon(fs)
	pngPath := fs.String("png", "", "Drawing image to classify")
	vectorPath := fs.String("vector", "", "JSON array of 196 (or 784) intensities to classify")
	dumpPath := fs.String("dump", "", "Write the downscaled input to this PNG")
	fs.Parse(args)

	cfg := loadConfig(*common.cfgPath, config.Overrides{
		SamplesDir:    *common.samplesDir,
		CheckpointDir: *common.checkpointDir,
	})
	method, err := sketch.ParseMethod(cfg.Downscale)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	var input []float64
	switch {
	case *pngPath != "" && *vectorPath == "":
		input, err = loadPNG(*pngPath, cfg.InputSize, method)
	case *vectorPath != "" && *pngPath == "":
		input, err = loadInput(*vectorPath, cfg.InputSize, method)
	default:
		log.Printf("classify needs exactly one of -png or -vector")
		return 2
	}
	if err != nil {
		log.Printf("read input: %v", err)
		return 2
	}
	if *dumpPath != "" {
		if err := savePNG(*dumpPath, input); err != nil {
			log.Printf("dump input: %v", err)
		}
	}

	e, err := ensemble.Load(store.New(cfg.CheckpointDir), cfg.InputSize, cfg.HiddenSize, cfg.OutputSize)
	if err != nil {
		log.Fatalf("load models: %v", err)
	}
	preds, err := e.Predictions(input)
	if errors.Is(err, ensemble.ErrInvalidInput) {
		log.Printf("classify: %v", err)
		return 2
	}
	if err != nil {
		log.Fatalf("classify: %v", err)
	}
	best, err := e.BestMatch(input)
	if err != nil {
		log.Fatalf("classify: %v", err)
	}
	printPredictions(preds, best)
	return 0
}

func printPredictions(preds map[string]float64, best string) {
	names := make([]string, 0, len(preds))
	for name := range preds {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return preds[names[i]] > preds[names[j]] })
	for _, name := range names {
		fmt.Printf("%-12s %.2f\n", name, preds[name])
	}
	fmt.Printf("best match: %s\n", best)
}

func runConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	in := fs.String("in", "", "QuickDraw ndjson file")
	out := fs.String("out", "", "Output JSON file")
	size := fs.Int("size", sketch.ScaledSize, "Raster side length (14 or 28)")
	limit := fs.Int("limit", 1000, "Maximum drawings to convert (0 for all)")
	fs.Parse(args)

	if *in == "" || *out == "" {
		log.Fatalf("convert needs -in and -out")
	}
	src, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer src.Close()
	dst, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	n, err := convertQuickDraw(src, dst, *size, *limit)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("convert %s: %v", *in, err)
	}
	log.Printf("converted=%d size=%d out=%s", n, *size, *out)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/b0tShaman/neuro-mlp/data"
	"github.com/b0tShaman/neuro-mlp/ml"
)

type options struct {
	layers     []int
	lr         float64
	epochs     int
	activation string
	dataPath   string
	targetCols int
	header     bool
	normalize  bool
	modelPath  string
	every      int
	seed       uint64
}

// -------- MAIN -------- //
func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Interrupts stop training at the next epoch boundary; the model is still saved.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stderr, "[mlp] ", log.LstdFlags)
	if err := run(ctx, opts, logger); err != nil {
		logger.Fatal(err)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	var layers string

	fs := flag.NewFlagSet("neuro-mlp", flag.ContinueOnError)
	fs.StringVar(&layers, "layers", "2,4,1", "comma separated layer sizes, input first")
	fs.Float64Var(&opts.lr, "lr", 0.5, "learning rate")
	fs.IntVar(&opts.epochs, "epochs", 5000, "training epochs")
	fs.StringVar(&opts.activation, "activation", "sigmoid", "activation: "+strings.Join(ml.ActivationNames(), ", "))
	fs.StringVar(&opts.dataPath, "data", "", "CSV training set (default: built-in XOR)")
	fs.IntVar(&opts.targetCols, "targets", 1, "number of trailing CSV columns used as targets")
	fs.BoolVar(&opts.header, "header", false, "CSV has a header row")
	fs.BoolVar(&opts.normalize, "normalize", false, "min-max normalize CSV inputs")
	fs.StringVar(&opts.modelPath, "model", "", "model file: loaded if present, saved after training (.gob for gob, JSON otherwise)")
	fs.IntVar(&opts.every, "every", 0, "log progress every N epochs (0 = every 1%)")
	fs.Uint64Var(&opts.seed, "seed", 0, "weight initialization seed (0 = random)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	var err error
	opts.layers, err = parseLayers(layers)
	return opts, err
}

func parseLayers(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	layers := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid layer size %q: %w", p, err)
		}
		layers = append(layers, n)
	}
	return layers, nil
}

// run dispatches on the activation name to the matching network type.
func run(ctx context.Context, opts options, logger *log.Logger) error {
	switch strings.ToLower(opts.activation) {
	case "sigmoid":
		return train[ml.Sigmoid](ctx, opts, logger)
	case "tanh":
		return train[ml.Tanh](ctx, opts, logger)
	case "relu":
		return train[ml.ReLU](ctx, opts, logger)
	case "linear":
		return train[ml.Linear](ctx, opts, logger)
	}
	_, err := ml.ActivationByName(opts.activation)
	return err
}

func loadDataset(opts options) (*data.Dataset, error) {
	if opts.dataPath == "" {
		return data.XOR(), nil
	}
	ds, err := data.LoadCSV(opts.dataPath, opts.targetCols, opts.header)
	if err != nil {
		return nil, err
	}
	if opts.normalize {
		ds.MinMaxNormalize()
	}
	return ds, nil
}

func buildNetwork[A ml.Activation](opts options, logger *log.Logger) (*ml.Network[A], error) {
	if opts.modelPath != "" {
		if _, err := os.Stat(opts.modelPath); err == nil {
			logger.Printf("Found existing model %s. Loading weights...", opts.modelPath)
			return ml.LoadNetwork[A](opts.modelPath)
		}
	}

	var netOpts []ml.Option
	if opts.seed != 0 {
		netOpts = append(netOpts, ml.WithRandSource(ml.NewSeededSource(opts.seed)))
	}
	return ml.NewNetwork[A](opts.layers, opts.lr, netOpts...)
}

func train[A ml.Activation](ctx context.Context, opts options, logger *log.Logger) error {
	ds, err := loadDataset(opts)
	if err != nil {
		return err
	}
	logger.Printf("Loaded dataset: %d samples", ds.Len())

	nw, err := buildNetwork[A](opts, logger)
	if err != nil {
		return err
	}
	logger.Printf("Network %v, learning rate %v, activation %s", nw.Layers(), nw.LearningRate(), opts.activation)

	cfg := ml.TrainingConfig{
		Epochs:       opts.epochs,
		VerboseEvery: opts.every,
		ModelPath:    opts.modelPath,
		Logger:       logger,
	}
	err = nw.TrainWithConfig(ctx, ds.Inputs, ds.Targets, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	for i, in := range ds.Inputs {
		_, out, perr := nw.Predict(in)
		if perr != nil {
			return perr
		}
		fmt.Printf("Input: %v, Predicted: %.4f, Target: %v\n", in, out, ds.Targets[i])
	}
	return nil
}

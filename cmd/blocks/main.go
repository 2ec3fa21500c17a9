// Package main provides the blocks CLI: train a multilayer perceptron built
// from lazily-shaped blocks and inspect the resulting parameter tree.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/born-ml/blocks/internal/autodiff"
	"github.com/born-ml/blocks/internal/backend/cpu"
	"github.com/born-ml/blocks/internal/ctxlog"
	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/tensor"
	"github.com/born-ml/blocks/internal/train"
)

const version = "v0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "blocks %s\n", version)
		return nil
	case "train":
		return runTrain(ctx, args[1:], stdout, stderr)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "blocks %s - lazy parameter containers and custom layers\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  train      Train an MLP on MNIST or a synthetic dataset")
	fmt.Fprintln(w, "  inspect    Print the block tree and parameter shapes")
	fmt.Fprintln(w, "  version    Show version")
}

// configFlags binds the Config fields that can be set on the command line.
type configFlags struct {
	fs         *flag.FlagSet
	configPath *string
	epochs     *int
	batch      *int
	lr         *float64
	momentum   *float64
	optimizer  *string
	seed       *uint64
	contexts   *string
	dataDir    *string
	maxSamples *int
	synthetic  *int
	hidden     *string
	classes    *int
	centered   *bool
	logLevel   *string
	logFormat  *string
}

func newConfigFlags(name string, stderr io.Writer) *configFlags {
	def := train.DefaultConfig()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &configFlags{
		fs:         fs,
		configPath: fs.String("config", "", "HCL config file; flags override its values"),
		epochs:     fs.Int("epochs", def.Epochs, "Number of training epochs"),
		batch:      fs.Int("batch", def.BatchSize, "Batch size"),
		lr:         fs.Float64("lr", def.LearningRate, "Learning rate"),
		momentum:   fs.Float64("momentum", def.Momentum, "SGD momentum"),
		optimizer:  fs.String("optimizer", def.Optimizer, "Optimizer: sgd or adam"),
		seed:       fs.Uint64("seed", def.Seed, "Seed for initialization, shuffling and synthetic data"),
		contexts:   fs.String("contexts", strings.Join(def.Contexts, ","), "Comma-separated contexts, e.g. cpu(0),cpu(1)"),
		dataDir:    fs.String("data", def.DataDir, "Directory with MNIST IDX files (empty: synthetic data)"),
		maxSamples: fs.Int("max-samples", def.MaxSamples, "Truncate each MNIST split (0: all)"),
		synthetic:  fs.Int("synthetic", def.SyntheticSamples, "Synthetic examples when no data dir is set"),
		hidden:     fs.String("hidden", joinInts(def.Hidden), "Comma-separated hidden layer widths"),
		classes:    fs.Int("classes", def.Classes, "Number of output classes"),
		centered:   fs.Bool("centered", def.Centered, "Prepend a centering layer"),
		logLevel:   fs.String("log-level", def.LogLevel, "Log level: debug, info, warn, error"),
		logFormat:  fs.String("log-format", def.LogFormat, "Log format: text or json"),
	}
}

// config parses args and returns the defaults, overlaid by the config file,
// overlaid by explicitly set flags.
func (f *configFlags) config(args []string) (train.Config, error) {
	if err := f.fs.Parse(args); err != nil {
		return train.Config{}, err
	}

	cfg := train.DefaultConfig()
	if *f.configPath != "" {
		var err error
		if cfg, err = train.LoadConfig(*f.configPath, cfg); err != nil {
			return train.Config{}, err
		}
	}

	var errs []error
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "epochs":
			cfg.Epochs = *f.epochs
		case "batch":
			cfg.BatchSize = *f.batch
		case "lr":
			cfg.LearningRate = *f.lr
		case "momentum":
			cfg.Momentum = *f.momentum
		case "optimizer":
			cfg.Optimizer = *f.optimizer
		case "seed":
			cfg.Seed = *f.seed
		case "contexts":
			cfg.Contexts = splitList(*f.contexts)
		case "data":
			cfg.DataDir = *f.dataDir
		case "max-samples":
			cfg.MaxSamples = *f.maxSamples
		case "synthetic":
			cfg.SyntheticSamples = *f.synthetic
		case "hidden":
			hidden, err := parseInts(*f.hidden)
			if err != nil {
				errs = append(errs, fmt.Errorf("-hidden: %w", err))
			}
			cfg.Hidden = hidden
		case "classes":
			cfg.Classes = *f.classes
		case "centered":
			cfg.Centered = *f.centered
		case "log-level":
			cfg.LogLevel = *f.logLevel
		case "log-format":
			cfg.LogFormat = *f.logFormat
		}
	})
	if err := errors.Join(errs...); err != nil {
		return train.Config{}, err
	}
	return cfg, cfg.Validate()
}

func runTrain(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := newConfigFlags("train", stderr).config(args)
	if err != nil {
		return err
	}

	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, stderr)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("host", "cpu", cpu.HostInfo().String())

	trainSet, testSet, err := train.LoadDatasets(cfg)
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}
	logger.Info("data loaded",
		"source", dataSource(cfg),
		"train", trainSet.Len(),
		"test", testSet.Len(),
		"features", trainSet.FeatureShape().String())

	backend := autodiff.New(cpu.New())
	driver, err := train.NewDriver(cfg, backend, trainSet, testSet)
	if err != nil {
		return err
	}

	result, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, driver.Net())
	fmt.Fprintln(stdout)
	for _, e := range result.Epochs {
		fmt.Fprintf(stdout, "Epoch %d. Loss: %.4f, Train_acc %.4f, Test_acc %.4f (%s)\n",
			e.Epoch, e.Loss, e.TrainAccuracy, e.TestAccuracy, e.Duration.Round(time.Millisecond))
	}
	return nil
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	flags := newConfigFlags("inspect", stderr)
	features := flags.fs.Int("features", 784, "Input features used to resolve deferred shapes")
	cfg, err := flags.config(args)
	if err != nil {
		return err
	}
	if *features <= 0 {
		return fmt.Errorf("features must be positive, got %d", *features)
	}
	ctxs, err := tensor.ParseContexts(cfg.Contexts)
	if err != nil {
		return err
	}

	backend := autodiff.New(cpu.New())
	net := train.NewMLP(backend, cfg.Hidden, cfg.Classes, cfg.Centered)
	if err := nn.InitializeAll(net, nn.DefaultXavier(), nn.InitConfig{Seed: cfg.Seed, Contexts: ctxs}); err != nil {
		return err
	}

	// One forward pass resolves every deferred shape.
	x := tensor.Zeros[float32](tensor.Shape{1, *features}, backend)
	if _, err := net.Forward(ctxs[0], x); err != nil {
		return err
	}

	params, err := net.CollectParameters()
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, net)
	fmt.Fprintln(stdout)
	total := 0
	for _, p := range params.All() {
		fmt.Fprintf(stdout, "%s grad=%s\n", p, p.GradReq())
		total += p.Shape().NumElements()
	}
	fmt.Fprintf(stdout, "\n%d parameters, %d values, contexts %v\n", params.Len(), total, ctxs)
	return nil
}

func dataSource(cfg train.Config) string {
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	return "synthetic"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	parts := splitList(s)
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

package train

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Optimizer names accepted by Config.Optimizer.
const (
	OptimizerSGD  = "sgd"
	OptimizerAdam = "adam"
)

// Config holds the settings of a training run. Every field can be set from
// an HCL file; attributes missing from the file keep their current value.
//
// Example file:
//
//	epochs        = 10
//	batch_size    = 64
//	learning_rate = 0.1
//	contexts      = ["cpu(0)", "cpu(1)"]
//	hidden        = [128, 64]
type Config struct {
	Epochs       int     `hcl:"epochs,optional"`
	BatchSize    int     `hcl:"batch_size,optional"`
	LearningRate float64 `hcl:"learning_rate,optional"`
	Momentum     float64 `hcl:"momentum,optional"`
	WeightDecay  float64 `hcl:"weight_decay,optional"`
	Optimizer    string  `hcl:"optimizer,optional"`
	Seed         uint64  `hcl:"seed,optional"`

	// Contexts lists the replicas a batch is split over, e.g. "cpu(0)".
	Contexts []string `hcl:"contexts,optional"`

	// DataDir holds the MNIST IDX files. Empty selects a synthetic dataset
	// of SyntheticSamples examples.
	DataDir          string `hcl:"data_dir,optional"`
	MaxSamples       int    `hcl:"max_samples,optional"`
	SyntheticSamples int    `hcl:"synthetic_samples,optional"`

	// Hidden are the widths of the ReLU layers before the output layer.
	Hidden   []int `hcl:"hidden,optional"`
	Classes  int   `hcl:"classes,optional"`
	Centered bool  `hcl:"centered,optional"`

	LogLevel  string `hcl:"log_level,optional"`
	LogFormat string `hcl:"log_format,optional"`
}

// DefaultConfig returns the settings of the walkthrough: a 128-64-10
// network trained with SGD on one CPU context.
func DefaultConfig() Config {
	return Config{
		Epochs:           10,
		BatchSize:        64,
		LearningRate:     0.1,
		Optimizer:        OptimizerSGD,
		Seed:             42,
		Contexts:         []string{"cpu(0)"},
		SyntheticSamples: 2000,
		Hidden:           []int{128, 64},
		Classes:          10,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// LoadConfig reads the HCL file at path on top of base.
func LoadConfig(path string, base Config) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, diags)
	}

	cfg := base
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", path, diags)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("momentum must be in [0, 1), got %g", c.Momentum)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight decay must be non-negative, got %g", c.WeightDecay)
	}
	switch c.Optimizer {
	case OptimizerSGD, OptimizerAdam:
	default:
		return fmt.Errorf("invalid optimizer %q; must be %q or %q", c.Optimizer, OptimizerSGD, OptimizerAdam)
	}
	if len(c.Contexts) == 0 {
		return fmt.Errorf("at least one context is required")
	}
	if _, err := tensor.ParseContexts(c.Contexts); err != nil {
		return err
	}
	if c.DataDir == "" && c.SyntheticSamples <= 0 {
		return fmt.Errorf("synthetic samples must be positive when no data dir is set, got %d", c.SyntheticSamples)
	}
	if c.MaxSamples < 0 {
		return fmt.Errorf("max samples must be non-negative, got %d", c.MaxSamples)
	}
	if c.Classes < 2 {
		return fmt.Errorf("classes must be at least 2, got %d", c.Classes)
	}
	for i, h := range c.Hidden {
		if h <= 0 {
			return fmt.Errorf("hidden[%d] must be positive, got %d", i, h)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q; must be 'debug', 'info', 'warn' or 'error'", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q; must be 'text' or 'json'", c.LogFormat)
	}
	return nil
}

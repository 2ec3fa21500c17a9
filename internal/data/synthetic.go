package data

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticConfig describes a generated classification problem.
type SyntheticConfig struct {
	Samples  int     // Number of examples
	Classes  int     // Number of classes
	Features int     // Features per example
	Noise    float64 // Standard deviation of per-example noise
	Seed     uint64
}

// MNISTLike returns a config shaped like MNIST (784 features, 10 classes).
func MNISTLike(samples int, seed uint64) SyntheticConfig {
	return SyntheticConfig{Samples: samples, Classes: 10, Features: 784, Noise: 0.1, Seed: seed}
}

// Synthetic generates a dataset where each class is a random prototype in
// [0, 1]^Features and each example is its class prototype plus Gaussian
// noise, clipped to [0, 1]. Labels cycle through the classes.
func Synthetic(cfg SyntheticConfig) (*ArrayDataset, error) {
	if cfg.Samples <= 0 || cfg.Classes <= 0 || cfg.Features <= 0 {
		return nil, fmt.Errorf("synthetic: samples, classes and features must be positive, got %d, %d, %d",
			cfg.Samples, cfg.Classes, cfg.Features)
	}

	src := rand.NewSource(cfg.Seed)
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}
	prototypes := make([]float32, cfg.Classes*cfg.Features)
	for i := range prototypes {
		prototypes[i] = float32(uniform.Rand())
	}

	features := make([]float32, cfg.Samples*cfg.Features)
	labels := make([]int32, cfg.Samples)
	noise := distuv.Normal{Mu: 0, Sigma: cfg.Noise, Src: src}
	for i := range labels {
		label := i % cfg.Classes
		labels[i] = int32(label)
		proto := prototypes[label*cfg.Features : (label+1)*cfg.Features]
		row := features[i*cfg.Features : (i+1)*cfg.Features]
		for j, p := range proto {
			v := p
			if cfg.Noise > 0 {
				v += float32(noise.Rand())
			}
			row[j] = min(max(v, 0), 1)
		}
	}

	return NewArrayDataset(features, labels, tensor.Shape{cfg.Features})
}

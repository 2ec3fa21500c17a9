package nn

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/born-ml/blocks/internal/tensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// InitDesc describes the parameter an Initializer is filling.
type InitDesc struct {
	Name  string       // Fully-qualified parameter name
	Shape tensor.Shape // Resolved shape
	Seed  uint64       // Per-parameter seed derived from InitConfig.Seed and Name
}

// Initializer fills freshly allocated parameter storage.
//
// Implementations must be deterministic for a given InitDesc so that a fixed
// InitConfig.Seed reproduces the same weights.
type Initializer interface {
	Fill(desc InitDesc, data []float32)
}

// InitConfig controls an initialization pass.
type InitConfig struct {
	// Seed drives every random initializer. Each parameter derives its own
	// stream from Seed and its name.
	Seed uint64

	// Contexts to allocate storage on. Empty means cpu(0).
	Contexts []tensor.Context

	// Force re-initializes contexts that already hold storage.
	Force bool

	// AllowDeferred records the request for parameters whose shape is not
	// known yet instead of failing with ErrShapeUndefined.
	AllowDeferred bool
}

func (c InitConfig) contexts() []tensor.Context {
	if len(c.Contexts) == 0 {
		return []tensor.Context{tensor.CPUContext(0)}
	}
	return c.Contexts
}

func (c InitConfig) seedFor(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return c.Seed ^ h.Sum64()
}

// Uniform draws values from U(-Scale, Scale).
type Uniform struct {
	Scale float64
}

// Fill implements Initializer.
func (u Uniform) Fill(desc InitDesc, data []float32) {
	dist := distuv.Uniform{Min: -u.Scale, Max: u.Scale, Src: rand.NewSource(desc.Seed)}
	for i := range data {
		data[i] = float32(dist.Rand())
	}
}

// Normal draws values from N(0, Sigma²).
type Normal struct {
	Sigma float64
}

// Fill implements Initializer.
func (n Normal) Fill(desc InitDesc, data []float32) {
	dist := distuv.Normal{Mu: 0, Sigma: n.Sigma, Src: rand.NewSource(desc.Seed)}
	for i := range data {
		data[i] = float32(dist.Rand())
	}
}

// Xavier (Glorot) initialization.
//
// The scale is sqrt(Magnitude / ((fan_in + fan_out) / 2)); values are drawn
// from U(-scale, scale), or N(0, scale²) when Gaussian is set. Weights are laid
// out (in, out), so fan_in = shape[0] and fan_out = shape[1]. Dimensions past
// the second multiply both fans.
type Xavier struct {
	Gaussian  bool
	Magnitude float64
}

// DefaultXavier returns the uniform Xavier initializer with magnitude 3.
func DefaultXavier() Xavier {
	return Xavier{Magnitude: 3}
}

// Fill implements Initializer.
func (x Xavier) Fill(desc InitDesc, data []float32) {
	fanIn, fanOut := fans(desc.Shape)
	magnitude := x.Magnitude
	if magnitude == 0 {
		magnitude = 3
	}
	scale := math.Sqrt(magnitude / (float64(fanIn+fanOut) / 2))
	if x.Gaussian {
		Normal{Sigma: scale}.Fill(desc, data)
		return
	}
	Uniform{Scale: scale}.Fill(desc, data)
}

func fans(shape tensor.Shape) (fanIn, fanOut int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return shape[0], shape[0]
	}
	receptive := 1
	for _, d := range shape[2:] {
		receptive *= d
	}
	return shape[0] * receptive, shape[1] * receptive
}

// Constant fills every element with Value.
type Constant struct {
	Value float32
}

// Fill implements Initializer.
func (c Constant) Fill(_ InitDesc, data []float32) {
	for i := range data {
		data[i] = c.Value
	}
}

// Zero fills with zeros.
func Zero() Constant { return Constant{} }

// One fills with ones.
func One() Constant { return Constant{Value: 1} }

// defaultInit is used when neither the parameter nor the caller supplies one.
var defaultInit Initializer = Uniform{Scale: 0.07}

// resolveInit picks the initializer for a parameter. The parameter's own
// initializer wins. A global initializer is not applied to biases, which
// start at zero.
func resolveInit(name string, own, global Initializer) Initializer {
	if own != nil {
		return own
	}
	if strings.HasSuffix(name, "bias") {
		return Zero()
	}
	if global != nil {
		return global
	}
	return defaultInit
}

package nn

import (
	"math"

	"github.com/born-ml/blocks/internal/tensor"
)

// CenteringTolerance bounds |mean(Centered(x))| relative to max(1, max|x|).
// float32 rounding keeps the mean from being exactly zero.
const CenteringTolerance = 1e-6

// Centered subtracts the mean of all input elements: y = x - mean(x).
// It has no parameters and works for inputs of any rank.
type Centered[B tensor.Backend] struct {
	*BlockBase[B]
}

// NewCentered creates a centering block.
func NewCentered[B tensor.Backend](backend B, opts ...BlockOption) *Centered[B] {
	return &Centered[B]{BlockBase: NewBlockBase("centered", backend, opts...)}
}

// Forward returns x - mean(x).
func (c *Centered[B]) Forward(_ tensor.Context, x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return x.Sub(x.Mean()), nil
}

// String returns "Centered".
func (c *Centered[B]) String() string {
	return "Centered"
}

// IsCentered reports whether out, produced from in, has mean zero within
// CenteringTolerance.
func IsCentered[B tensor.Backend](in, out *tensor.Tensor[float32, B]) bool {
	scale := 1.0
	for _, v := range in.Data() {
		scale = math.Max(scale, math.Abs(float64(v)))
	}
	return math.Abs(float64(out.Mean().Item())) <= CenteringTolerance*scale
}

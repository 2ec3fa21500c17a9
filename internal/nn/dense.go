package nn

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
)

// Activation selects the element-wise function applied after the affine map.
type Activation int

// Supported activations.
const (
	ActivationReLU Activation = iota // max(v, 0)
	ActivationNone                   // identity, for logits
)

// String returns the activation name.
func (a Activation) String() string {
	switch a {
	case ActivationReLU:
		return "relu"
	case ActivationNone:
		return "linear"
	default:
		return fmt.Sprintf("Activation(%d)", int(a))
	}
}

// Dense implements a fully connected layer with a rectifier.
//
// Performs the transformation: y = act(x @ W + b)
// where:
//   - x is the input tensor with shape [batch_size, in_units]
//   - W is the weight with shape [in_units, units]
//   - b is the bias with shape [units]
//   - act is ReLU unless WithActivation(ActivationNone) is given
//
// With inUnits == 0 the input width is inferred from the first forward call;
// later inputs of a different width fail with ErrShapeMismatch.
//
// Example:
//
//	layer := nn.NewDense(128, 0, backend)
//	_ = nn.InitializeAll(layer, nn.DefaultXavier(), nn.InitConfig{Seed: 1})
//	out, err := layer.Forward(tensor.CPUContext(0), x) // x: [32, 784]
type Dense[B tensor.Backend] struct {
	*BlockBase[B]
	units      int
	activation Activation
	weight     *Parameter[B] // [in_units, units]
	bias       *Parameter[B] // [units]
}

// NewDense creates a dense layer with units outputs.
func NewDense[B tensor.Backend](units, inUnits int, backend B, opts ...BlockOption) *Dense[B] {
	cfg := newBlockConfig(opts)
	base := newBlockBase("dense", backend, cfg)

	weight, _ := base.Params().Get("weight", WithShape(inUnits, units), WithAllowDeferredInit())
	bias, _ := base.Params().Get("bias", WithShape(units), WithInit(Zero()))

	return &Dense[B]{
		BlockBase:  base,
		units:      units,
		activation: cfg.activation,
		weight:     weight,
		bias:       bias,
	}
}

// Weight returns the weight parameter.
func (d *Dense[B]) Weight() *Parameter[B] {
	return d.weight
}

// Bias returns the bias parameter.
func (d *Dense[B]) Bias() *Parameter[B] {
	return d.bias
}

// Units returns the output width.
func (d *Dense[B]) Units() int {
	return d.units
}

// InUnits returns the input width, 0 while it has not been inferred.
func (d *Dense[B]) InUnits() int {
	return d.weight.Shape()[0]
}

// Forward computes act(x @ W + b). Inputs of rank > 2 are flattened to
// [batch_size, features].
func (d *Dense[B]) Forward(ctx tensor.Context, x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	shape := x.Shape()
	if len(shape) < 2 {
		return nil, fmt.Errorf("%s: expected input [batch, features], got %v: %w", d.Name(), shape, ErrShapeMismatch)
	}
	if len(shape) > 2 {
		x = x.Reshape(shape[0], shape[1:].NumElements())
		shape = x.Shape()
	}

	if err := d.weight.SetShape(tensor.Shape{shape[1], d.units}); err != nil {
		return nil, fmt.Errorf("%s: input has %d features: %w", d.Name(), shape[1], err)
	}
	if err := d.weight.FinishDeferredInit(); err != nil {
		return nil, err
	}

	w, err := d.weight.Data(ctx)
	if err != nil {
		return nil, err
	}
	b, err := d.bias.Data(ctx)
	if err != nil {
		return nil, err
	}

	out := x.MatMul(w).Add(b)
	if d.activation == ActivationReLU {
		out = out.ReLU()
	}
	return out, nil
}

// String describes the layer, e.g. "Dense(784 -> 128, relu)".
func (d *Dense[B]) String() string {
	in := "None"
	if n := d.InUnits(); n > 0 {
		in = fmt.Sprint(n)
	}
	return fmt.Sprintf("Dense(%s -> %d, %s)", in, d.units, d.activation)
}

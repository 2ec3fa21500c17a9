// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/blocks/internal/autodiff"
	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/tensor"
)

// Errors returned by parameters and registries, wrapped in *ParameterError.
var (
	ErrShapeUndefined     = nn.ErrShapeUndefined
	ErrShapeMismatch      = nn.ErrShapeMismatch
	ErrUninitialized      = nn.ErrUninitialized
	ErrGradientNotTracked = nn.ErrGradientNotTracked
	ErrKeyNotFound        = nn.ErrKeyNotFound
	ErrNameCollision      = nn.ErrNameCollision
)

// ParameterError describes a failed operation on a named parameter.
type ParameterError = nn.ParameterError

// Parameters

// Parameter is a named weight replicated over contexts.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// ParameterOption configures a Parameter.
type ParameterOption = nn.ParameterOption

// GradReq selects how Backward stores gradients.
type GradReq = nn.GradReq

// Gradient requirements.
const (
	GradWrite GradReq = nn.GradWrite
	GradAdd   GradReq = nn.GradAdd
	GradNull  GradReq = nn.GradNull
)

// NewParameter creates an uninitialized parameter.
//
// Example:
//
//	w := nn.NewParameter("dense0_weight", backend, nn.WithShape(0, 128))
func NewParameter[B tensor.Backend](name string, backend B, opts ...ParameterOption) *Parameter[B] {
	return nn.NewParameter(name, backend, opts...)
}

// WithShape sets the declared shape; 0 marks an unknown dimension.
func WithShape(dims ...int) ParameterOption { return nn.WithShape(dims...) }

// WithGradReq sets the gradient requirement.
func WithGradReq(req GradReq) ParameterOption { return nn.WithGradReq(req) }

// WithInit sets a parameter-specific initializer.
func WithInit(init Initializer) ParameterOption { return nn.WithInit(init) }

// WithAllowDeferredInit lets Initialize wait for an unknown shape.
func WithAllowDeferredInit() ParameterOption { return nn.WithAllowDeferredInit() }

// ParameterDict is an insertion-ordered registry of parameters.
type ParameterDict[B tensor.Backend] = nn.ParameterDict[B]

// NewParameterDict creates an empty registry whose entries are named
// prefix + local name.
func NewParameterDict[B tensor.Backend](prefix string, backend B) *ParameterDict[B] {
	return nn.NewParameterDict(prefix, backend)
}

// Initialization

// Initializer fills a parameter's initial values.
type Initializer = nn.Initializer

// InitDesc describes the parameter being initialized.
type InitDesc = nn.InitDesc

// InitConfig controls an initialization pass.
type InitConfig = nn.InitConfig

// Built-in initializers.
type (
	Uniform  = nn.Uniform
	Normal   = nn.Normal
	Xavier   = nn.Xavier
	Constant = nn.Constant
)

// DefaultXavier returns Xavier with uniform sampling and magnitude 3.
func DefaultXavier() Xavier { return nn.DefaultXavier() }

// Zero returns the all-zeros initializer.
func Zero() Constant { return nn.Zero() }

// One returns the all-ones initializer.
func One() Constant { return nn.One() }

// Blocks

// Block is a computation with parameters and child blocks.
type Block[B tensor.Backend] = nn.Block[B]

// BlockBase implements the bookkeeping of a block; custom blocks embed it.
type BlockBase[B tensor.Backend] = nn.BlockBase[B]

// BlockOption configures a block.
type BlockOption = nn.BlockOption

// Scope hands out unique prefixes to child blocks.
type Scope = nn.Scope

// NewScope creates a scope whose children are named under prefix.
func NewScope(prefix string) *Scope { return nn.NewScope(prefix) }

// NewBlockBase creates the shared state of a custom block.
func NewBlockBase[B tensor.Backend](alias string, backend B, opts ...BlockOption) *BlockBase[B] {
	return nn.NewBlockBase(alias, backend, opts...)
}

// WithScope draws the block prefix from s.
func WithScope(s *Scope) BlockOption { return nn.WithScope(s) }

// WithPrefix sets the block prefix explicitly.
func WithPrefix(prefix string) BlockOption { return nn.WithPrefix(prefix) }

// WithActivation selects a Dense activation.
func WithActivation(a Activation) BlockOption { return nn.WithActivation(a) }

// InitializeAll initializes every parameter of block and its descendants,
// deferring those whose shape is not known yet.
func InitializeAll[B tensor.Backend](block Block[B], init Initializer, cfg InitConfig) error {
	return nn.InitializeAll(block, init, cfg)
}

// Layers

// Activation is the nonlinearity applied by Dense.
type Activation = nn.Activation

// Activations.
const (
	ActivationReLU Activation = nn.ActivationReLU
	ActivationNone Activation = nn.ActivationNone
)

// Dense computes act(x @ W + b).
type Dense[B tensor.Backend] = nn.Dense[B]

// NewDense creates a dense layer; inUnits 0 infers the input width from the
// first forward pass.
func NewDense[B tensor.Backend](units, inUnits int, backend B, opts ...BlockOption) *Dense[B] {
	return nn.NewDense(units, inUnits, backend, opts...)
}

// CenteringTolerance bounds |mean(Centered(x))| relative to max(1, max|x|).
const CenteringTolerance = nn.CenteringTolerance

// Centered subtracts the mean of its input.
type Centered[B tensor.Backend] = nn.Centered[B]

// NewCentered creates a centering block.
func NewCentered[B tensor.Backend](backend B, opts ...BlockOption) *Centered[B] {
	return nn.NewCentered(backend, opts...)
}

// IsCentered reports whether out has a mean of zero within tolerance for in.
func IsCentered[B tensor.Backend](in, out *tensor.Tensor[float32, B]) bool {
	return nn.IsCentered(in, out)
}

// Sequential chains child blocks.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates an empty container.
func NewSequential[B tensor.Backend](backend B, opts ...BlockOption) *Sequential[B] {
	return nn.NewSequential(backend, opts...)
}

// Training

// SoftmaxCrossEntropyLoss computes the per-example softmax cross-entropy.
type SoftmaxCrossEntropyLoss[B tensor.Backend] = nn.SoftmaxCrossEntropyLoss[B]

// NewSoftmaxCrossEntropyLoss creates the loss.
func NewSoftmaxCrossEntropyLoss[B tensor.Backend]() *SoftmaxCrossEntropyLoss[B] {
	return nn.NewSoftmaxCrossEntropyLoss[B]()
}

// Accuracy accumulates the fraction of correct predictions.
type Accuracy = nn.Accuracy

// NewAccuracy creates an empty accumulator.
func NewAccuracy() *Accuracy { return nn.NewAccuracy() }

// Backward differentiates loss and stores the gradients of params on ctx.
func Backward[B autodiff.BackwardCapable](loss *tensor.Tensor[float32, B], params *ParameterDict[B], ctx tensor.Context) error {
	return nn.Backward(loss, params, ctx)
}

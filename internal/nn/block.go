// Package nn implements lazily initialized parameters and composable blocks.
//
// This package provides building blocks for constructing neural networks:
//   - Parameter: named trainable tensor with optional shape and per-context storage
//   - ParameterDict: prefixed registry of parameters
//   - Block: composable unit with a forward transform and owned parameters
//   - Dense, Centered, Sequential: ready-made blocks
//   - Initializers, softmax cross-entropy loss and accuracy metric
//
// Parameters are registered explicitly through a block's ParameterDict and
// children are added explicitly, so the whole parameter set of a tree is
// known without reflection.
package nn

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
)

// Block is the interface implemented by every layer and container.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Block[B tensor.Backend] interface {
	// Forward computes the block output on ctx using the parameter values
	// stored for ctx. It fails with ErrUninitialized if a parameter has no
	// storage there and with ErrShapeMismatch if the input does not fit.
	Forward(ctx tensor.Context, input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error)

	// Prefix returns the name prefix shared by the block's own parameters.
	Prefix() string

	// Params returns the block's own registry (children excluded).
	Params() *ParameterDict[B]

	// Children returns the child blocks in registration order.
	Children() []Block[B]

	// CollectParameters merges the block's registry with those of all
	// descendants.
	CollectParameters() (*ParameterDict[B], error)

	// Scope returns the scope for creating children of this block.
	Scope() *Scope

	fmt.Stringer
}

// BlockOption configures a block at construction.
type BlockOption func(*blockConfig)

type blockConfig struct {
	scope      *Scope
	prefix     *string
	activation Activation
}

// WithScope names the block from the given scope, typically the parent's.
func WithScope(s *Scope) BlockOption {
	return func(c *blockConfig) { c.scope = s }
}

// WithPrefix sets the block prefix explicitly.
func WithPrefix(prefix string) BlockOption {
	return func(c *blockConfig) { c.prefix = &prefix }
}

// WithActivation selects the activation of a Dense block.
func WithActivation(a Activation) BlockOption {
	return func(c *blockConfig) { c.activation = a }
}

func newBlockConfig(opts []BlockOption) blockConfig {
	var cfg blockConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// BlockBase implements the bookkeeping shared by blocks: prefix, own
// registry, children and scope. Custom blocks embed it and add Forward.
//
// Example:
//
//	type MyDense[B tensor.Backend] struct {
//		*nn.BlockBase[B]
//		weight *nn.Parameter[B]
//	}
//
//	func NewMyDense[B tensor.Backend](units, inUnits int, b B, opts ...nn.BlockOption) *MyDense[B] {
//		base := nn.NewBlockBase("mydense", b, opts...)
//		w, _ := base.Params().Get("weight", nn.WithShape(inUnits, units))
//		return &MyDense[B]{BlockBase: base, weight: w}
//	}
type BlockBase[B tensor.Backend] struct {
	prefix   string
	backend  B
	params   *ParameterDict[B]
	scope    *Scope
	children []Block[B]
}

// NewBlockBase creates the shared state of a block.
//
// The prefix is taken from WithPrefix, else drawn from WithScope using alias,
// else from a fresh root scope (alias + "0_").
func NewBlockBase[B tensor.Backend](alias string, backend B, opts ...BlockOption) *BlockBase[B] {
	return newBlockBase(alias, backend, newBlockConfig(opts))
}

func newBlockBase[B tensor.Backend](alias string, backend B, cfg blockConfig) *BlockBase[B] {
	var prefix string
	switch {
	case cfg.prefix != nil:
		prefix = *cfg.prefix
	case cfg.scope != nil:
		prefix = cfg.scope.Next(alias)
	default:
		prefix = NewScope("").Next(alias)
	}
	return &BlockBase[B]{
		prefix:  prefix,
		backend: backend,
		params:  NewParameterDict(prefix, backend),
		scope:   NewScope(prefix),
	}
}

// Prefix returns the block prefix, e.g. "dense0_".
func (b *BlockBase[B]) Prefix() string {
	return b.prefix
}

// Name returns the prefix without its trailing separator, e.g. "dense0".
func (b *BlockBase[B]) Name() string {
	if n := len(b.prefix); n > 0 && b.prefix[n-1] == '_' {
		return b.prefix[:n-1]
	}
	return b.prefix
}

// Backend returns the backend parameters are allocated on.
func (b *BlockBase[B]) Backend() B {
	return b.backend
}

// Params returns the block's own registry.
func (b *BlockBase[B]) Params() *ParameterDict[B] {
	return b.params
}

// Scope returns the scope for naming children.
func (b *BlockBase[B]) Scope() *Scope {
	return b.scope
}

// Children returns the registered child blocks.
func (b *BlockBase[B]) Children() []Block[B] {
	return b.children
}

// RegisterChild appends child to the block's children.
func (b *BlockBase[B]) RegisterChild(child Block[B]) {
	b.children = append(b.children, child)
}

// CollectParameters returns a registry holding the block's own parameters
// followed by those of every descendant, depth first.
func (b *BlockBase[B]) CollectParameters() (*ParameterDict[B], error) {
	all := NewParameterDict(b.prefix, b.backend)
	if err := all.Merge(b.params); err != nil {
		return nil, err
	}
	for _, child := range b.children {
		sub, err := child.CollectParameters()
		if err != nil {
			return nil, err
		}
		if err := all.Merge(sub); err != nil {
			return nil, fmt.Errorf("collect parameters of %s: %w", b.prefix, err)
		}
	}
	return all, nil
}

// String returns the block name.
func (b *BlockBase[B]) String() string {
	return b.Name()
}

// InitializeAll initializes every parameter of block and its descendants.
//
// Parameters whose shape is still unknown are initialized on the first
// forward pass that resolves it.
func InitializeAll[B tensor.Backend](block Block[B], init Initializer, cfg InitConfig) error {
	params, err := block.CollectParameters()
	if err != nil {
		return err
	}
	cfg.AllowDeferred = true
	return params.Initialize(init, cfg)
}

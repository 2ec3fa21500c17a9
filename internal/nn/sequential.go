package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/blocks/internal/tensor"
)

// Sequential chains child blocks, feeding each output to the next.
//
// Children should be created with WithScope(seq.Scope()) so their names nest
// under the container:
//
//	net := nn.NewSequential(backend)
//	net.Add(
//		nn.NewDense(128, 0, backend, nn.WithScope(net.Scope())), // sequential0_dense0_
//		nn.NewDense(10, 0, backend, nn.WithScope(net.Scope()),
//			nn.WithActivation(nn.ActivationNone)), // sequential0_dense1_
//	)
type Sequential[B tensor.Backend] struct {
	*BlockBase[B]
}

// NewSequential creates an empty container.
func NewSequential[B tensor.Backend](backend B, opts ...BlockOption) *Sequential[B] {
	return &Sequential[B]{BlockBase: NewBlockBase("sequential", backend, opts...)}
}

// Add appends blocks to the chain.
func (s *Sequential[B]) Add(blocks ...Block[B]) {
	for _, b := range blocks {
		s.RegisterChild(b)
	}
}

// Len returns the number of children.
func (s *Sequential[B]) Len() int {
	return len(s.Children())
}

// At returns the i-th child.
func (s *Sequential[B]) At(i int) Block[B] {
	return s.Children()[i]
}

// Forward runs the children in order.
func (s *Sequential[B]) Forward(ctx tensor.Context, x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	var err error
	for i, child := range s.Children() {
		x, err = child.Forward(ctx, x)
		if err != nil {
			return nil, fmt.Errorf("%s layer %d: %w", s.Name(), i, err)
		}
	}
	return x, nil
}

// String prints the tree:
//
//	Sequential(
//	  (0): Dense(784 -> 128, relu)
//	  (1): Dense(128 -> 10, linear)
//	)
func (s *Sequential[B]) String() string {
	var sb strings.Builder
	sb.WriteString("Sequential(\n")
	for i, child := range s.Children() {
		lines := strings.Split(child.String(), "\n")
		fmt.Fprintf(&sb, "  (%d): %s\n", i, lines[0])
		for _, line := range lines[1:] {
			sb.WriteString("  " + line + "\n")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

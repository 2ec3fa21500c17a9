package ops

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
)

// ReLUOp represents a ReLU (Rectified Linear Unit) activation: output = max(0, x).
//
// Backward pass:
//   - d(ReLU(x))/dx = 1 if x > 0, else 0
type ReLUOp struct{ unaryOp }

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{unaryOp{input: input, output: output}}
}

// Backward masks outputGrad where the input was not positive.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	gradInput, err := tensor.NewRaw(op.input.Shape(), tensor.Float32, op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("relu: failed to create gradient: %v", err))
	}

	x, g, dst := op.input.AsFloat32(), outputGrad.AsFloat32(), gradInput.AsFloat32()
	for i, v := range x {
		if v > 0 {
			dst[i] = g[i]
		}
	}

	return []*tensor.RawTensor{gradInput}
}

package ops

import "github.com/born-ml/blocks/internal/tensor"

// SumOp represents a full reduction: output = Σ x.
//
// Backward: every input element receives the (scalar) output gradient.
type SumOp struct{ unaryOp }

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{unaryOp{input: x, output: output}}
}

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{fill(op.input.Shape(), outputGrad.AsFloat32()[0])}
}

// MeanOp represents a full mean: output = Σ x / n.
//
// Backward: every input element receives outputGrad / n.
type MeanOp struct{ unaryOp }

// NewMeanOp creates a new MeanOp.
func NewMeanOp(x, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{unaryOp{input: x, output: output}}
}

// Backward broadcasts outputGrad / n to the input shape.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	n := float32(op.input.NumElements())
	return []*tensor.RawTensor{fill(op.input.Shape(), outputGrad.AsFloat32()[0]/n)}
}

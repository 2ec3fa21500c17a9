package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/blocks/internal/tensor"
)

// SoftmaxCrossEntropyOp represents the fused per-example classification loss
//
//	loss[b] = logsumexp(z[b]) - z[b][y[b]]
//
// Backward:
//
//	∂L/∂z[b,i] = outputGrad[b] * (softmax(z[b])[i] - 1{i == y[b]})
//
// Labels are integer class indices and receive no gradient.
type SoftmaxCrossEntropyOp struct {
	logits *tensor.RawTensor // [batch, classes]
	labels *tensor.RawTensor // [batch] int32
	output *tensor.RawTensor // [batch]
}

// NewSoftmaxCrossEntropyOp creates a new SoftmaxCrossEntropyOp.
func NewSoftmaxCrossEntropyOp(logits, labels, output *tensor.RawTensor) *SoftmaxCrossEntropyOp {
	return &SoftmaxCrossEntropyOp{logits: logits, labels: labels, output: output}
}

// Inputs returns [logits]; labels are not differentiable.
func (op *SoftmaxCrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the per-example loss tensor.
func (op *SoftmaxCrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to logits.
func (op *SoftmaxCrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batchSize, numClasses := shape[0], shape[1]

	grad, err := tensor.NewRaw(shape, tensor.Float32, op.logits.Device())
	if err != nil {
		panic(fmt.Sprintf("softmaxCrossEntropy: failed to create gradient: %v", err))
	}

	z, y, g, dst := op.logits.AsFloat32(), op.labels.AsInt32(), outputGrad.AsFloat32(), grad.AsFloat32()
	for b := 0; b < batchSize; b++ {
		row := z[b*numClasses : (b+1)*numClasses]
		out := dst[b*numClasses : (b+1)*numClasses]
		softmaxInto(out, row)
		out[y[b]] -= 1
		for i := range out {
			out[i] *= g[b]
		}
	}

	return []*tensor.RawTensor{grad}
}

// softmaxInto writes softmax(z) into dst using the max-shift trick.
func softmaxInto(dst, z []float32) {
	maxVal := z[0]
	for _, v := range z[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for i, v := range z {
		e := math.Exp(float64(v - maxVal))
		dst[i] = float32(e)
		sum += e
	}
	for i := range dst {
		dst[i] = float32(float64(dst[i]) / sum)
	}
}

package nn

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
)

// SoftmaxCrossEntropyLoss computes, for each example,
//
//	loss[b] = logsumexp(pred[b]) - pred[b][label[b]]
//
// pred holds unnormalized scores [batch, classes]; label holds class indices.
// The result has shape [batch]. Summing it (which Backward does) and dividing
// by the batch size in the optimizer step gives the mean loss gradient.
type SoftmaxCrossEntropyLoss[B tensor.Backend] struct{}

// NewSoftmaxCrossEntropyLoss creates the loss.
func NewSoftmaxCrossEntropyLoss[B tensor.Backend]() *SoftmaxCrossEntropyLoss[B] {
	return &SoftmaxCrossEntropyLoss[B]{}
}

// Forward validates the inputs and returns the per-example loss.
func (l *SoftmaxCrossEntropyLoss[B]) Forward(pred *tensor.Tensor[float32, B], label *tensor.Tensor[int32, B]) (*tensor.Tensor[float32, B], error) {
	ps, ls := pred.Shape(), label.Shape()
	if len(ps) != 2 {
		return nil, fmt.Errorf("softmax cross-entropy: pred must be [batch, classes], got %v: %w", ps, ErrShapeMismatch)
	}
	if len(ls) != 1 || ls[0] != ps[0] {
		return nil, fmt.Errorf("softmax cross-entropy: label %v does not match pred %v: %w", ls, ps, ErrShapeMismatch)
	}
	for i, y := range label.Data() {
		if y < 0 || int(y) >= ps[1] {
			return nil, fmt.Errorf("softmax cross-entropy: label[%d] = %d out of range [0, %d)", i, y, ps[1])
		}
	}
	return tensor.SoftmaxCrossEntropy(pred, label), nil
}

package ops

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
)

// reduceBroadcast sums a gradient down to targetShape, undoing the
// broadcasting done in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Return a copy so accumulation never aliases an upstream gradient.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	result, err := tensor.NewRaw(targetShape, tensor.Float32, grad.Device())
	if err != nil {
		panic(fmt.Sprintf("reduceBroadcast: %v", err))
	}

	// Target strides aligned to the gradient's dimensions; 0 where broadcast.
	targetStrides := targetShape.ComputeStrides()
	strides := make([]int, len(gradShape))
	offset := len(gradShape) - len(targetShape)
	for d := range gradShape {
		td := d - offset
		if td < 0 || targetShape[td] == 1 {
			continue
		}
		strides[d] = targetStrides[td]
	}

	gradStrides := gradShape.ComputeStrides()
	src, dst := grad.AsFloat32(), result.AsFloat32()
	for i, v := range src {
		idx := 0
		rem := i
		for d, stride := range gradStrides {
			idx += (rem / stride) * strides[d]
			rem %= stride
		}
		dst[idx] += v
	}

	return result
}

// fill returns a float32 tensor of the given shape with every element set to v.
func fill(shape tensor.Shape, v float32) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		panic(fmt.Sprintf("fill: %v", err))
	}
	data := result.AsFloat32()
	for i := range data {
		data[i] = v
	}
	return result
}

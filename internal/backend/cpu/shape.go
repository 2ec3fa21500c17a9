package cpu

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
)

// Reshape returns a view of t with a new shape. The storage is shared.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	view, err := t.View(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Transpose permutes the dimensions of t. With no axes the dimension order is reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for a %dD tensor", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v", axes))
		}
		seen[ax] = true
		outShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(outShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	inStrides := t.Strides()
	outStrides := outShape.ComputeStrides()
	// Stride in the input for each output dimension.
	permStrides := make([]int, ndim)
	for i, ax := range axes {
		permStrides[i] = inStrides[ax]
	}

	src, dst := t.Data(), result.Data()
	size := t.DType().Size()
	for i := 0; i < result.NumElements(); i++ {
		srcIdx := 0
		rem := i
		for d, stride := range outStrides {
			srcIdx += (rem / stride) * permStrides[d]
			rem %= stride
		}
		copy(dst[i*size:(i+1)*size], src[srcIdx*size:(srcIdx+1)*size])
	}

	return result
}

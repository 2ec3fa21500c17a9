package cpu

import (
	"fmt"

	"github.com/born-ml/blocks/internal/parallel"
	"github.com/born-ml/blocks/internal/tensor"
)

// ReLU applies the rectifier max(x, 0) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("relu", x)

	result, err := tensor.NewRaw(x.Shape(), tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("relu: %v", err))
	}

	src, dst := x.AsFloat32(), result.AsFloat32()
	parallel.ForRange(len(src), func(start, end int) {
		for i := start; i < end; i++ {
			if src[i] > 0 {
				dst[i] = src[i]
			}
		}
	}, cpu.parallel)

	return result
}

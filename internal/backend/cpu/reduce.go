package cpu

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
)

// Sum adds all elements into a 0-D tensor.
// Accumulation is done in float64 to keep large reductions accurate.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("sum", x)
	return cpu.scalar(float32(sumFloat32(x.AsFloat32())))
}

// Mean averages all elements into a 0-D tensor.
func (cpu *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("mean", x)
	data := x.AsFloat32()
	return cpu.scalar(float32(sumFloat32(data) / float64(len(data))))
}

func (cpu *CPUBackend) scalar(v float32) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("reduce: %v", err))
	}
	result.AsFloat32()[0] = v
	return result
}

func sumFloat32(data []float32) float64 {
	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	return sum
}

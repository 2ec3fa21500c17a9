package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/blocks/internal/tensor"
)

// SoftmaxCrossEntropy computes the per-example loss
//
//	loss[b] = logsumexp(logits[b]) - logits[b][labels[b]]
//
// for logits [N, C] (float32) and labels [N] (int32 class indices).
func (cpu *CPUBackend) SoftmaxCrossEntropy(logits, labels *tensor.RawTensor) *tensor.RawTensor {
	batchSize, numClasses := checkCrossEntropyArgs(logits, labels)

	result, err := tensor.NewRaw(tensor.Shape{batchSize}, tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("softmaxCrossEntropy: %v", err))
	}

	z, targets, out := logits.AsFloat32(), labels.AsInt32(), result.AsFloat32()
	for b := 0; b < batchSize; b++ {
		row := z[b*numClasses : (b+1)*numClasses]
		target := int(targets[b])
		if target < 0 || target >= numClasses {
			panic(fmt.Sprintf("softmaxCrossEntropy: label %d out of range [0, %d)", target, numClasses))
		}
		out[b] = LogSumExp(row) - row[target]
	}

	return result
}

// LogSumExp computes log(Σ exp(z)) with the max-shift trick.
func LogSumExp(z []float32) float32 {
	maxVal := z[0]
	for _, v := range z[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for _, v := range z {
		sum += math.Exp(float64(v - maxVal))
	}
	return maxVal + float32(math.Log(sum))
}

// checkCrossEntropyArgs validates shapes and returns (batchSize, numClasses).
func checkCrossEntropyArgs(logits, labels *tensor.RawTensor) (batchSize, numClasses int) {
	ls := logits.Shape()
	if len(ls) != 2 {
		panic(fmt.Sprintf("softmaxCrossEntropy: logits must be 2D [batch, classes], got %v", ls))
	}
	if labels.DType() != tensor.Int32 {
		panic(fmt.Sprintf("softmaxCrossEntropy: labels must be int32, got %s", labels.DType()))
	}
	if lb := labels.Shape(); len(lb) != 1 || lb[0] != ls[0] {
		panic(fmt.Sprintf("softmaxCrossEntropy: labels shape %v does not match batch %d", lb, ls[0]))
	}
	requireFloat32("softmaxCrossEntropy", logits)
	return ls[0], ls[1]
}

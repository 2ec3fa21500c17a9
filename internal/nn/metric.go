package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/blocks/internal/tensor"
)

// Accuracy accumulates the fraction of correct predictions.
//
// Example:
//
//	acc := nn.NewAccuracy()
//	_ = acc.Update(labels.Raw(), logits.Raw())
//	name, value := acc.Get() // "accuracy", 0.93
type Accuracy struct {
	correct int
	total   int
}

// NewAccuracy creates an empty accumulator.
func NewAccuracy() *Accuracy {
	return &Accuracy{}
}

// Update compares labels [N] (int32) with predictions.
// preds is either scores [N, C] (argmax is taken) or class indices [N].
func (a *Accuracy) Update(labels, preds *tensor.RawTensor) error {
	if labels.DType() != tensor.Int32 || len(labels.Shape()) != 1 {
		return fmt.Errorf("accuracy: labels must be int32 [batch], got %s %v", labels.DType(), labels.Shape())
	}
	y := labels.AsInt32()
	n := len(y)

	ps := preds.Shape()
	switch {
	case len(ps) == 2 && ps[0] == n && preds.DType() == tensor.Float32:
		scores := preds.AsFloat32()
		for i := range n {
			if Argmax(scores[i*ps[1]:(i+1)*ps[1]]) == int(y[i]) {
				a.correct++
			}
		}
	case len(ps) == 1 && ps[0] == n && preds.DType() == tensor.Int32:
		for i, p := range preds.AsInt32() {
			if p == y[i] {
				a.correct++
			}
		}
	default:
		return fmt.Errorf("accuracy: preds %s %v do not match labels %v: %w", preds.DType(), ps, labels.Shape(), ErrShapeMismatch)
	}
	a.total += n
	return nil
}

// Get returns the metric name and the running ratio (NaN before any update).
func (a *Accuracy) Get() (string, float64) {
	if a.total == 0 {
		return "accuracy", math.NaN()
	}
	return "accuracy", float64(a.correct) / float64(a.total)
}

// Reset clears the counts.
func (a *Accuracy) Reset() {
	a.correct, a.total = 0, 0
}

// Argmax returns the index of the largest value (first on ties).
func Argmax(row []float32) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

// Package data provides in-memory datasets, MNIST IDX reading and a batching
// loader that yields tensors.
package data

import (
	"fmt"

	"github.com/born-ml/blocks/internal/tensor"
)

// Dataset is a finite, indexable collection of labelled examples.
type Dataset interface {
	// Len returns the number of examples.
	Len() int

	// Example returns the features and label of example i. The returned
	// slice must not be modified.
	Example(i int) (features []float32, label int32)

	// FeatureShape returns the shape of one example's features.
	FeatureShape() tensor.Shape
}

// ArrayDataset holds examples in one contiguous feature buffer.
type ArrayDataset struct {
	features []float32
	labels   []int32
	shape    tensor.Shape
	stride   int
}

// NewArrayDataset wraps features (len(labels) examples of the given shape,
// row-major) and labels.
func NewArrayDataset(features []float32, labels []int32, shape tensor.Shape) (*ArrayDataset, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("array dataset: %w", err)
	}
	stride := shape.NumElements()
	if len(features) != len(labels)*stride {
		return nil, fmt.Errorf("array dataset: %d features for %d examples of shape %v", len(features), len(labels), shape)
	}
	return &ArrayDataset{
		features: features,
		labels:   labels,
		shape:    shape.Clone(),
		stride:   stride,
	}, nil
}

// Len returns the number of examples.
func (d *ArrayDataset) Len() int {
	return len(d.labels)
}

// Example returns example i.
func (d *ArrayDataset) Example(i int) ([]float32, int32) {
	return d.features[i*d.stride : (i+1)*d.stride], d.labels[i]
}

// FeatureShape returns the per-example shape.
func (d *ArrayDataset) FeatureShape() tensor.Shape {
	return d.shape.Clone()
}

// Labels returns all labels.
func (d *ArrayDataset) Labels() []int32 {
	return d.labels
}

// Head returns a dataset view of the first n examples (all if n <= 0 or
// n >= Len).
func (d *ArrayDataset) Head(n int) *ArrayDataset {
	if n <= 0 || n >= d.Len() {
		return d
	}
	return &ArrayDataset{
		features: d.features[:n*d.stride],
		labels:   d.labels[:n],
		shape:    d.shape,
		stride:   d.stride,
	}
}

// Slice returns a dataset view of examples [start, end).
func (d *ArrayDataset) Slice(start, end int) (*ArrayDataset, error) {
	if start < 0 || end > d.Len() || start > end {
		return nil, fmt.Errorf("array dataset: slice [%d:%d] out of range [0:%d]", start, end, d.Len())
	}
	return &ArrayDataset{
		features: d.features[start*d.stride : end*d.stride],
		labels:   d.labels[start:end],
		shape:    d.shape,
		stride:   d.stride,
	}, nil
}

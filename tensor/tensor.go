// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/blocks/internal/tensor"
)

// DType is a constraint for tensor element types: float32 or int32.
type DType = tensor.DType

// DataType represents the runtime element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int32   DataType = tensor.Int32
)

// Device is the kind of compute target.
type Device = tensor.Device

// CPU is the host processor.
const CPU Device = tensor.CPU

// Shape is a list of dimensions; 0 marks an unknown dimension.
type Shape = tensor.Shape

// Context identifies one compute target.
type Context = tensor.Context

// Backend executes tensor operations.
type Backend = tensor.Backend

// RawTensor is the untyped storage behind a Tensor.
//
// Most users should use the high-level Tensor[T, B] type instead.
type RawTensor = tensor.RawTensor

// Tensor is a typed tensor bound to a backend.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// NewRaw allocates zeroed storage. The shape must be fully known.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T](shape, b)
}

// FromSlice copies data into a new tensor of the given shape.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// CPUContext returns the context of the CPU target with the given ordinal.
func CPUContext(id int) Context {
	return tensor.CPUContext(id)
}

// ParseContext parses strings such as "cpu(1)".
func ParseContext(s string) (Context, error) {
	return tensor.ParseContext(s)
}

// ParseContexts parses a list of context strings. A context listed twice
// fails with ErrDuplicateContext.
func ParseContexts(specs []string) ([]Context, error) {
	return tensor.ParseContexts(specs)
}

// ErrDuplicateContext reports a context listed more than once.
var ErrDuplicateContext = tensor.ErrDuplicateContext

// CheckContexts fails with ErrDuplicateContext if a context repeats.
func CheckContexts(ctxs []Context) error {
	return tensor.CheckContexts(ctxs)
}

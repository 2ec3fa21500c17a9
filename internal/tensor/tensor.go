package tensor

import "fmt"

// Tensor is a typed view of a RawTensor bound to the backend that computes
// on it. Parameter replicas, gradients and batches are float32 tensors;
// class labels are int32.
//
// Operations go through the backend, so a tensor created on an autodiff
// backend is tracked whenever that backend is recording.
type Tensor[T DType, B Backend] struct {
	raw     *RawTensor
	backend B
}

// New wraps raw without copying.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     raw,
		backend: b,
	}
}

// FromSlice copies data into a new tensor. The shape must be fully known and
// match len(data).
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v holds %d elements, got %d values", shape, shape.NumElements(), len(data))
	}

	var zero T
	raw, err := NewRaw(shape, inferDataType(zero), b.Device())
	if err != nil {
		return nil, err
	}
	t := New[T, B](raw, b)
	copy(t.Data(), data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T, B]) Shape() Shape {
	return t.raw.Shape()
}

// DType returns the tensor's data type.
func (t *Tensor[T, B]) DType() DataType {
	return t.raw.DType()
}

// Device returns the tensor's compute device.
func (t *Tensor[T, B]) Device() Device {
	return t.raw.Device()
}

// NumElements returns the total number of elements.
func (t *Tensor[T, B]) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying storage. Gradients are keyed by it.
func (t *Tensor[T, B]) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor[T, B]) Backend() B {
	return t.backend
}

// Data returns the elements in row-major order. The slice aliases the
// tensor's storage.
func (t *Tensor[T, B]) Data() []T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(t.raw.AsFloat32()).([]T)
	case int32:
		return any(t.raw.AsInt32()).([]T)
	default:
		panic(fmt.Sprintf("unsupported element type %T", zero))
	}
}

// Item returns the only element, e.g. of a Sum or Mean result.
func (t *Tensor[T, B]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("item: tensor of shape %v has %d elements", t.Shape(), t.NumElements()))
	}
	return t.Data()[0]
}

// At returns the element at indices.
func (t *Tensor[T, B]) At(indices ...int) T {
	return t.Data()[t.offset(indices)]
}

// Set stores value at indices.
func (t *Tensor[T, B]) Set(value T, indices ...int) {
	t.Data()[t.offset(indices)] = value
}

func (t *Tensor[T, B]) offset(indices []int) int {
	shape := t.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("tensor of rank %d indexed with %d indices", len(shape), len(indices)))
	}

	off := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("index %d out of range [0, %d) on axis %d", idx, shape[i], i))
		}
		off += idx * t.raw.Strides()[i]
	}
	return off
}

// String describes the tensor, e.g. "Tensor(float32, (2, 3), cpu)".
func (t *Tensor[T, B]) String() string {
	return fmt.Sprintf("Tensor(%s, %v, %s)", t.raw.DType(), t.raw.Shape(), t.raw.Device())
}

// Clone returns a tensor with its own copy of the storage.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return New[T, B](t.raw.Clone(), t.backend)
}

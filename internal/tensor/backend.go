package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - cpu.CPUBackend: pure Go kernels, gonum BLAS for matrix products
//   - autodiff.AutodiffBackend: decorator that records operations for backprop
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MulScalar multiplies every element by scalar.
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// ReLU applies max(x, 0) element-wise.
	ReLU(x *RawTensor) *RawTensor

	// Reductions over all elements (0-D result)
	Sum(x *RawTensor) *RawTensor
	Mean(x *RawTensor) *RawTensor

	// SoftmaxCrossEntropy returns the per-example loss [N] for logits [N, C]
	// and int32 class labels [N].
	SoftmaxCrossEntropy(logits, labels *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}

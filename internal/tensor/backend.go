package tensor

// Backend defines the compute operations the style transfer pipeline needs.
// Backends handle the actual numeric work; the autodiff decorator wraps a
// Backend and records differentiable operations on a tape.
//
// The op set is intentionally the closure of what a frozen convolutional
// feature extractor plus Gram-matrix losses require, nothing more.
type Backend interface {
	// Element-wise binary operations. Operands must have identical shapes.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Scale multiplies every element by a scalar.
	Scale(x *RawTensor, s float32) *RawTensor

	// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// Convolutional operations. Conv2D takes an optional bias of shape
	// [C_out] (nil for no bias); the bias is folded into the kernel call so
	// no broadcasting machinery is needed elsewhere.
	Conv2D(input, kernel, bias *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor

	// ReLU applies max(0, x) element-wise.
	ReLU(x *RawTensor) *RawTensor

	// Mean reduces all elements to their arithmetic mean, shape [1].
	Mean(x *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose2D(t *RawTensor) *RawTensor

	// Gradient kernels used by the autodiff tape during the backward pass.
	// Conv2D deliberately has no kernel-gradient counterpart: backbone
	// weights are frozen and gradients must never reach them.
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	MaxPool2DBackward(input, grad *RawTensor, kernelSize, stride int) *RawTensor
	ReLUBackward(input, grad *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}

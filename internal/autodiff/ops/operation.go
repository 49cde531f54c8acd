// Package ops defines the differentiable operations recorded on the
// gradient tape.
//
// Each operation captures its inputs and output during the forward pass
// and computes input gradients during the backward pass. The op set is
// exactly what the style transfer losses need: the frozen convolutional
// stack (conv2d, maxpool2d, relu), the Gram-matrix algebra (matmul,
// transpose, reshape), and the squared-error reduction (sub, mul, scale,
// mean, add).
package ops

import "github.com/gogh-ml/gogh/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns one gradient per tensor reported by Inputs.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the differentiable input tensors for this operation.
	// Constants (frozen kernels, cached targets) are deliberately absent.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}

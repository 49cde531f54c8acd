// Package autodiff implements automatic differentiation using the
// decorator pattern.
//
// Backend wraps any tensor.Backend implementation and adds gradient
// tracking through a GradientTape:
//   - Decorator: Backend forwards every operation to the wrapped backend.
//   - GradientTape: records operations during the forward pass.
//   - ops.Operation: each op implements its own backward pass.
//   - Reverse-mode AD: gradients flow by walking the tape backwards.
//
// Usage:
//
//	ad := autodiff.New(cpu.New(tensor.CPU))
//	ad.Tape().StartRecording()
//	// ... forward pass over tensors bound to ad ...
//	grads := ad.Tape().Backward(seed, ad)
package autodiff

import (
	"github.com/gogh-ml/gogh/internal/autodiff/ops"
	"github.com/gogh-ml/gogh/internal/tensor"
)

// Backend wraps a compute backend and records differentiable operations
// on a GradientTape. It implements tensor.Backend.
type Backend struct {
	inner tensor.Backend
	tape  *GradientTape
}

// New creates an autodiff Backend wrapping the given compute backend.
func New(inner tensor.Backend) *Backend {
	return &Backend{
		inner: inner,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for recording control and backward
// passes.
func (b *Backend) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *Backend) Inner() tensor.Backend {
	return b.inner
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *Backend) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(a, c)
	b.tape.Record(ops.NewAddOp(a, c, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(a, c)
	b.tape.Record(ops.NewSubOp(a, c, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(a, c)
	b.tape.Record(ops.NewMulOp(a, c, result))
	return result
}

// Scale multiplies by a scalar and records the operation.
func (b *Backend) Scale(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	result := b.inner.Scale(x, s)
	b.tape.Record(ops.NewScaleOp(x, result, s))
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *Backend) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(a, c)
	b.tape.Record(ops.NewMatMulOp(a, c, result))
	return result
}

// Conv2D performs 2D convolution and records the operation.
// Only the input is differentiable; kernel and bias are frozen constants.
func (b *Backend) Conv2D(input, kernel, bias *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	result := b.inner.Conv2D(input, kernel, bias, stride, padding)
	b.tape.Record(ops.NewConv2DOp(input, kernel, result, stride, padding))
	return result
}

// MaxPool2D performs 2D max pooling and records the operation.
func (b *Backend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	result := b.inner.MaxPool2D(input, kernelSize, stride)
	b.tape.Record(ops.NewMaxPool2DOp(input, result, kernelSize, stride))
	return result
}

// ReLU applies ReLU and records the operation.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.ReLU(x)
	b.tape.Record(ops.NewReLUOp(x, result))
	return result
}

// Mean reduces to the arithmetic mean and records the operation.
func (b *Backend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mean(x)
	b.tape.Record(ops.NewMeanOp(x, result))
	return result
}

// Reshape changes the shape and records the operation, so gradients reach
// the pre-reshape tensor.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.tape.Record(ops.NewReshapeOp(t, result))
	return result
}

// Transpose2D transposes a 2D tensor and records the operation. The CPU
// backend materializes a new tensor here, so without recording, gradients
// would never reach the original matrix.
func (b *Backend) Transpose2D(t *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Transpose2D(t)
	b.tape.Record(ops.NewTranspose2DOp(t, result))
	return result
}

// Conv2DInputBackward delegates to the wrapped backend. Gradient kernels
// are never recorded; they only run inside a backward pass.
func (b *Backend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// MaxPool2DBackward delegates to the wrapped backend.
func (b *Backend) MaxPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, grad, kernelSize, stride)
}

// ReLUBackward delegates to the wrapped backend.
func (b *Backend) ReLUBackward(input, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.ReLUBackward(input, grad)
}

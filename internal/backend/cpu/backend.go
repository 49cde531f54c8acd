// Package cpu implements the CPU compute backend for the style transfer
// pipeline. Matrix products go through gonum's BLAS implementation;
// convolution and pooling kernels are hand-rolled and parallelized with
// the parallel package.
package cpu

import (
	"fmt"

	"github.com/gogh-ml/gogh/internal/parallel"
	"github.com/gogh-ml/gogh/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host CPU.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a CPU backend bound to the given device value. The device is
// threaded in explicitly so callers can run engines against distinct
// execution contexts without shared globals.
func New(device tensor.Device) *CPUBackend {
	return &CPUBackend{
		device:   device,
		parallel: parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition. Shapes must match exactly.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	out := cpu.newLike(a, b, "add")
	ad, bd, od := a.Data(), b.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] + bd[i]
	}
	return out
}

// Sub performs element-wise subtraction. Shapes must match exactly.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	out := cpu.newLike(a, b, "sub")
	ad, bd, od := a.Data(), b.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] - bd[i]
	}
	return out
}

// Mul performs element-wise multiplication. Shapes must match exactly.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	out := cpu.newLike(a, b, "mul")
	ad, bd, od := a.Data(), b.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] * bd[i]
	}
	return out
}

// Scale multiplies every element by a scalar.
func (cpu *CPUBackend) Scale(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("scale: %v", err))
	}
	xd, od := x.Data(), out.Data()
	for i := range od {
		od[i] = xd[i] * s
	}
	return out
}

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("relu: %v", err))
	}
	xd, od := x.Data(), out.Data()
	for i, v := range xd {
		if v > 0 {
			od[i] = v
		}
	}
	return out
}

// ReLUBackward routes the output gradient through positions where the
// forward input was positive.
func (cpu *CPUBackend) ReLUBackward(input, grad *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(input.Shape(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("relu backward: %v", err))
	}
	in, gd, od := input.Data(), grad.Data(), out.Data()
	for i, v := range in {
		if v > 0 {
			od[i] = gd[i]
		}
	}
	return out
}

// Mean reduces all elements to their arithmetic mean, shape [1].
func (cpu *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(tensor.Shape{1}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mean: %v", err))
	}
	var sum float64
	for _, v := range x.Data() {
		sum += float64(v)
	}
	out.Data()[0] = float32(sum / float64(x.NumElements()))
	return out
}

// Reshape returns a view with the new shape. Element count must match.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	view, err := t.View(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Transpose2D transposes a 2D tensor: (M, N) -> (N, M).
func (cpu *CPUBackend) Transpose2D(t *tensor.RawTensor) *tensor.RawTensor {
	shape := t.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("transpose2d: expected 2D tensor, got shape %v", shape))
	}
	m, n := shape[0], shape[1]

	out, err := tensor.NewRaw(tensor.Shape{n, m}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose2d: %v", err))
	}
	in, od := t.Data(), out.Data()
	for i := 0; i < m; i++ {
		row := in[i*n : (i+1)*n]
		for j, v := range row {
			od[j*m+i] = v
		}
	}
	return out
}

// newLike validates that a and b share a shape and allocates the result.
func (cpu *CPUBackend) newLike(a, b *tensor.RawTensor, op string) *tensor.RawTensor {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", op, a.Shape(), b.Shape()))
	}
	out, err := tensor.NewRaw(a.Shape(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	return out
}

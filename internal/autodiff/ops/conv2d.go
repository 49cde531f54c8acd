package ops

import "github.com/gogh-ml/gogh/internal/tensor"

// Conv2DOp records a 2D convolution for autodiff.
//
// The kernel and bias are held as constants, not inputs: the backbone is
// frozen, so the op differentiates the image input only. This makes the
// frozen-parameter invariant structural rather than a runtime check —
// there is no code path through which a kernel gradient could exist.
//
// Backward: the input gradient is the transposed convolution of the
// output gradient with the kernel. The bias contributes nothing to it.
type Conv2DOp struct {
	input   *tensor.RawTensor
	kernel  *tensor.RawTensor
	output  *tensor.RawTensor
	stride  int
	padding int
}

// NewConv2DOp creates a new Conv2DOp.
func NewConv2DOp(input, kernel, output *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{
		input:   input,
		kernel:  kernel,
		output:  output,
		stride:  stride,
		padding: padding,
	}
}

// Backward computes the input gradient for Conv2D.
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inputGrad := backend.Conv2DInputBackward(op.input, op.kernel, outputGrad, op.stride, op.padding)
	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the differentiable input tensors [input].
func (op *Conv2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *Conv2DOp) Output() *tensor.RawTensor {
	return op.output
}

package ops

import "github.com/gogh-ml/gogh/internal/tensor"

// Transpose2DOp represents a 2D transpose: output = x^T.
//
// The CPU backend materializes transposes as new tensors, so the op must
// be recorded for gradients to flow back to the original matrix (the Gram
// computation multiplies a feature matrix with its own transpose).
//
// Backward: d(x^T)/dx transposes the gradient back.
type Transpose2DOp struct {
	x      *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTranspose2DOp creates a new Transpose2DOp.
func NewTranspose2DOp(x, output *tensor.RawTensor) *Transpose2DOp {
	return &Transpose2DOp{x: x, output: output}
}

// Backward computes the input gradient for a 2D transpose.
func (op *Transpose2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Transpose2D(outputGrad)}
}

// Inputs returns the input tensor [x].
func (op *Transpose2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.x}
}

// Output returns the output tensor x^T.
func (op *Transpose2DOp) Output() *tensor.RawTensor {
	return op.output
}

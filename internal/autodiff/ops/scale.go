package ops

import "github.com/gogh-ml/gogh/internal/tensor"

// ScaleOp represents multiplication by a scalar: output = s * x.
//
// Backward: d(s*x)/dx = s.
type ScaleOp struct {
	x      *tensor.RawTensor
	output *tensor.RawTensor
	s      float32
}

// NewScaleOp creates a new ScaleOp.
func NewScaleOp(x, output *tensor.RawTensor, s float32) *ScaleOp {
	return &ScaleOp{x: x, output: output, s: s}
}

// Backward computes the input gradient for scalar multiplication.
func (op *ScaleOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Scale(outputGrad, op.s)}
}

// Inputs returns the input tensor [x].
func (op *ScaleOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.x}
}

// Output returns the output tensor s * x.
func (op *ScaleOp) Output() *tensor.RawTensor {
	return op.output
}

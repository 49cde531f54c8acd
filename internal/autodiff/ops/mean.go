package ops

import (
	"fmt"

	"github.com/gogh-ml/gogh/internal/tensor"
)

// MeanOp represents a full reduction to the arithmetic mean:
// output = mean(x), shape [1].
//
// Backward: every element contributed 1/N, so the scalar gradient spreads
// uniformly over the input shape divided by the element count.
type MeanOp struct {
	x      *tensor.RawTensor
	output *tensor.RawTensor
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(x, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{x: x, output: output}
}

// Backward spreads the scalar gradient uniformly over the input.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.x.Shape(), op.x.Device())
	if err != nil {
		panic(fmt.Sprintf("mean backward: %v", err))
	}

	g := outputGrad.Data()[0] / float32(op.x.NumElements())
	data := grad.Data()
	for i := range data {
		data[i] = g
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *MeanOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.x}
}

// Output returns the output tensor mean(x).
func (op *MeanOp) Output() *tensor.RawTensor {
	return op.output
}

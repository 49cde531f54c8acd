package nn

import "github.com/gogh-ml/gogh/internal/tensor"

// ReLU applies the rectified linear unit activation element-wise.
type ReLU struct{}

// NewReLU creates a new ReLU activation layer.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies max(0, x) element-wise.
func (r *ReLU) Forward(input *tensor.Tensor) *tensor.Tensor {
	return input.ReLU()
}

// String returns a string representation of the layer.
func (r *ReLU) String() string {
	return "ReLU()"
}

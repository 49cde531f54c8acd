package nn

import (
	"fmt"

	"github.com/gogh-ml/gogh/internal/tensor"
)

// Conv2D is a 2D convolutional layer with frozen, externally loaded
// weights.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape:   [out_channels] (optional)
// Output shape: [batch, out_channels, out_h, out_w]
//
// The weight and bias tensors are captured at construction and never
// mutated or re-exposed; gradients cannot reach them because the conv op
// differentiates its input only.
type Conv2D struct {
	inChannels  int
	outChannels int
	kernelSize  [2]int
	stride      int
	padding     int

	weight *tensor.Tensor
	bias   *tensor.Tensor // may be nil

	backend tensor.Backend
}

// NewConv2D creates a frozen convolutional layer from pretrained weight
// tensors.
func NewConv2D(weight, bias *tensor.Tensor, stride, padding int, backend tensor.Backend) (*Conv2D, error) {
	shape := weight.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("conv2d: weight must be 4D [C_out,C_in,K_h,K_w], got shape %v", shape)
	}
	if stride <= 0 {
		return nil, fmt.Errorf("conv2d: invalid stride %d", stride)
	}
	if padding < 0 {
		return nil, fmt.Errorf("conv2d: invalid padding %d", padding)
	}
	if bias != nil && bias.NumElements() != shape[0] {
		return nil, fmt.Errorf("conv2d: bias has %d elements, want %d", bias.NumElements(), shape[0])
	}

	return &Conv2D{
		inChannels:  shape[1],
		outChannels: shape[0],
		kernelSize:  [2]int{shape[2], shape[3]},
		stride:      stride,
		padding:     padding,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}, nil
}

// Forward performs the forward pass.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, out_channels, out_h, out_w].
func (c *Conv2D) Forward(input *tensor.Tensor) *tensor.Tensor {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", inputShape[1], c.inChannels))
	}

	var biasRaw *tensor.RawTensor
	if c.bias != nil {
		biasRaw = c.bias.Raw()
	}
	out := c.backend.Conv2D(input.Raw(), c.weight.Raw(), biasRaw, c.stride, c.padding)
	return tensor.New(out, c.backend)
}

// OutChannels returns the number of output channels.
func (c *Conv2D) OutChannels() int {
	return c.outChannels
}

// InChannels returns the number of input channels.
func (c *Conv2D) InChannels() int {
	return c.inChannels
}

// String returns a string representation of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(in_channels=%d, out_channels=%d, kernel_size=(%d, %d), stride=%d, padding=%d)",
		c.inChannels, c.outChannels, c.kernelSize[0], c.kernelSize[1], c.stride, c.padding)
}

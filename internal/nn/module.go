// Package nn implements the neural network layers used by the frozen
// feature extractor: convolution, ReLU and max pooling, composed with
// Sequential.
//
// The layers are inference-only capabilities over immutable parameter
// sets. There is no parameter type, no initializer and no state dict:
// weights arrive fully formed from the pretrained-weight loader, are
// captured at construction and are never exposed for mutation afterwards.
package nn

import "github.com/gogh-ml/gogh/internal/tensor"

// Module is the base interface for all network layers.
type Module interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor) *tensor.Tensor
}

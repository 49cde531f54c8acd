package transfer

import (
	"fmt"

	"github.com/gogh-ml/gogh/internal/tensor"
)

// GramMatrix computes the normalized Gram matrix of a [1,C,H,W] feature
// map: the feature is flattened to [C, H*W], multiplied by its own
// transpose, and scaled by 1/(C*H*W). The result is [C,C] and captures
// channel correlations independent of spatial layout, which is exactly
// the texture statistic style matching needs.
//
// Built entirely from differentiable tensor ops, so gradients flow back
// to the feature map when computed under an active tape.
func GramMatrix(feature *tensor.Tensor) *tensor.Tensor {
	shape := feature.Shape()
	if len(shape) != 4 || shape[0] != 1 {
		panic(fmt.Sprintf("transfer: gram matrix expects [1,C,H,W] feature, got %v", shape))
	}
	channels := shape[1]
	spatial := shape[2] * shape[3]

	flat := feature.Reshape(channels, spatial)
	gram := flat.MatMul(flat.T())
	return gram.Scale(1 / float32(channels*spatial))
}

// MSE computes the mean squared error between two same-shape tensors as
// a scalar tensor.
func MSE(a, b *tensor.Tensor) *tensor.Tensor {
	diff := a.Sub(b)
	return diff.Mul(diff).Mean()
}

// Package optim implements gradient-based optimizers for the iterative
// image refinement loop.
//
// Unlike a training setup, the parameters here are not network weights:
// the only tensor being optimized is the candidate image itself. The
// backbone stays frozen and never appears in the parameter list.
package optim

import "github.com/gogh-ml/gogh/internal/tensor"

// Optimizer updates parameters from a gradient map produced by the
// autodiff tape. Parameters with no gradient entry are skipped.
type Optimizer interface {
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)
	ZeroState()
}

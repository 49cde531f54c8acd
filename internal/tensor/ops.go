package tensor

// Add performs element-wise addition. Shapes must match.
func (t *Tensor) Add(other *Tensor) *Tensor {
	return New(t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction. Shapes must match.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	return New(t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs element-wise multiplication. Shapes must match.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	return New(t.backend.Mul(t.raw, other.raw), t.backend)
}

// Scale multiplies every element by a scalar.
func (t *Tensor) Scale(s float32) *Tensor {
	return New(t.backend.Scale(t.raw, s), t.backend)
}

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	return New(t.backend.MatMul(t.raw, other.raw), t.backend)
}

// Mean reduces all elements to their arithmetic mean, shape [1].
func (t *Tensor) Mean() *Tensor {
	return New(t.backend.Mean(t.raw), t.backend)
}

// Reshape returns a tensor with the same data but a different shape.
// The new shape must have the same number of elements.
func (t *Tensor) Reshape(newShape ...int) *Tensor {
	return New(t.backend.Reshape(t.raw, Shape(newShape)), t.backend)
}

// T performs a 2D transpose (swaps rows and columns).
// Panics if the tensor is not 2D.
func (t *Tensor) T() *Tensor {
	return New(t.backend.Transpose2D(t.raw), t.backend)
}

// ReLU applies max(0, x) element-wise.
func (t *Tensor) ReLU() *Tensor {
	return New(t.backend.ReLU(t.raw), t.backend)
}

package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/gogh-ml/gogh/internal/tensor"
)

// MatMul performs 2D matrix multiplication via BLAS sgemm:
// (M, K) @ (K, N) -> (M, N).
//
// Gram matrices dominate the style loss, and the im2col convolution path
// reduces to the same product, so this one kernel carries most of the
// arithmetic in a run.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions mismatch: %v @ %v", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	out, err := tensor.NewRaw(tensor.Shape{m, n}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}

	sgemm(blas.NoTrans, blas.NoTrans, m, n, k, a.Data(), b.Data(), out.Data())
	return out
}

// sgemm wraps blas32.Gemm over raw row-major buffers.
func sgemm(tA, tB blas.Transpose, m, n, k int, a, b, c []float32) {
	ga := blas32.General{Rows: m, Cols: k, Stride: k, Data: a}
	gb := blas32.General{Rows: k, Cols: n, Stride: n, Data: b}
	if tA == blas.Trans {
		ga = blas32.General{Rows: k, Cols: m, Stride: m, Data: a}
	}
	if tB == blas.Trans {
		gb = blas32.General{Rows: n, Cols: k, Stride: k, Data: b}
	}
	gc := blas32.General{Rows: m, Cols: n, Stride: n, Data: c}
	blas32.Gemm(tA, tB, 1, ga, gb, 0, gc)
}

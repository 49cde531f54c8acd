package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"

	"github.com/gogh-ml/gogh/internal/parallel"
	"github.com/gogh-ml/gogh/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K_h, K_w]
// Bias shape:   [C_out] (optional, may be nil)
// Output shape: [N, C_out, H_out, W_out]
//
// Where:
//
//	out_h = (H + 2*padding - K_h) / stride + 1
//	out_w = (W + 2*padding - K_w) / stride + 1
//
// Im2col lowers the convolution to a single sgemm: input patches become
// columns, the kernel becomes a [C_out, C_in*K_h*K_w] matrix, and their
// product is the output up to a layout rearrangement.
//
// Reference: "High Performance Convolutional Neural Networks for Document
// Processing" (Chellapilla et al., 2006).
func (cpu *CPUBackend) Conv2D(input, kernel, bias *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}

	N, CIn, H, W := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	COut, KH, KW := kernelShape[0], kernelShape[2], kernelShape[3]

	if CIn != kernelShape[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", CIn, kernelShape[1]))
	}
	if bias != nil && bias.NumElements() != COut {
		panic(fmt.Sprintf("conv2d: bias has %d elements, want %d", bias.NumElements(), COut))
	}

	HOut := (H+2*padding-KH)/stride + 1
	WOut := (W+2*padding-KW)/stride + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions %dx%d (check stride/padding)", HOut, WOut))
	}

	output, err := tensor.NewRaw(tensor.Shape{N, COut, HOut, WOut}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: %v", err))
	}

	// Im2col: [N * H_out * W_out, C_in * K_h * K_w], one row per output
	// position, parallelized over output rows.
	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	colBuf := make([]float32, colHeight*colWidth)
	inputData := input.Data()

	parallel.For(N*HOut, func(row int) {
		n, outH := row/HOut, row%HOut
		hStart := outH*stride - padding
		for outW := 0; outW < WOut; outW++ {
			wStart := outW*stride - padding
			bufIdx := ((n*HOut+outH)*WOut + outW) * colWidth

			for c := 0; c < CIn; c++ {
				plane := inputData[(n*CIn+c)*H*W : (n*CIn+c+1)*H*W]
				for kh := 0; kh < KH; kh++ {
					h := hStart + kh
					for kw := 0; kw < KW; kw++ {
						w := wStart + kw
						if h >= 0 && h < H && w >= 0 && w < W {
							colBuf[bufIdx] = plane[h*W+w]
						}
						bufIdx++
					}
				}
			}
		}
	}, cpu.parallel)

	// kernel [C_out, colWidth] @ colBuf^T [colWidth, colHeight]
	// -> [C_out, colHeight]
	prod := make([]float32, COut*colHeight)
	sgemm(blas.NoTrans, blas.Trans, COut, colHeight, colWidth, kernel.Data(), colBuf, prod)

	// Rearrange [C_out, N*H_out*W_out] -> [N, C_out, H_out, W_out] and
	// fold in the bias.
	outputData := output.Data()
	plane := HOut * WOut
	var biasData []float32
	if bias != nil {
		biasData = bias.Data()
	}
	for n := 0; n < N; n++ {
		for c := 0; c < COut; c++ {
			src := prod[c*colHeight+n*plane : c*colHeight+(n+1)*plane]
			dst := outputData[(n*COut+c)*plane : (n*COut+c+1)*plane]
			if biasData != nil {
				b := biasData[c]
				for i, v := range src {
					dst[i] = v + b
				}
			} else {
				copy(dst, src)
			}
		}
	}

	return output
}

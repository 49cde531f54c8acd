package cpu

import (
	"fmt"
	"math"

	"github.com/gogh-ml/gogh/internal/parallel"
	"github.com/gogh-ml/gogh/internal/tensor"
)

// MaxPool2D performs 2D max pooling.
//
// Input shape:  [N, C, H, W]
// Output shape: [N, C, out_h, out_w]
//
// Where:
//
//	out_h = (H - kernelSize) / stride + 1
//	out_w = (W - kernelSize) / stride + 1
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	N, C, H, W, HOut, WOut := poolDims(input, kernelSize, stride)

	output, err := tensor.NewRaw(tensor.Shape{N, C, HOut, WOut}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("maxpool2d: %v", err))
	}

	inputData := input.Data()
	outputData := output.Data()

	parallel.ForChannels(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH * stride
			for outW := 0; outW < WOut; outW++ {
				wStart := outW * stride

				maxVal := float32(math.Inf(-1))
				for kh := 0; kh < kernelSize; kh++ {
					row := plane[(hStart+kh)*W : (hStart+kh)*W+W]
					for kw := 0; kw < kernelSize; kw++ {
						if v := row[wStart+kw]; v > maxVal {
							maxVal = v
						}
					}
				}
				outPlane[outH*WOut+outW] = maxVal
			}
		}
	}, cpu.parallel)

	return output
}

// MaxPool2DBackward routes output gradients back to the positions that won
// the forward max. Ties resolve to the first (row-major) maximum, matching
// the forward scan order.
func (cpu *CPUBackend) MaxPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	N, C, H, W, HOut, WOut := poolDims(input, kernelSize, stride)

	inputGrad, err := tensor.NewRaw(tensor.Shape{N, C, H, W}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("maxpool2d backward: %v", err))
	}

	inputData := input.Data()
	gradData := grad.Data()
	inputGradData := inputGrad.Data()

	parallel.ForChannels(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		planeGrad := inputGradData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		gradPlane := gradData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH * stride
			for outW := 0; outW < WOut; outW++ {
				wStart := outW * stride

				maxVal := float32(math.Inf(-1))
				maxIdx := 0
				for kh := 0; kh < kernelSize; kh++ {
					for kw := 0; kw < kernelSize; kw++ {
						idx := (hStart+kh)*W + wStart + kw
						if v := plane[idx]; v > maxVal {
							maxVal = v
							maxIdx = idx
						}
					}
				}
				planeGrad[maxIdx] += gradPlane[outH*WOut+outW]
			}
		}
	}, cpu.parallel)

	return inputGrad
}

// poolDims validates pooling arguments and returns the involved dimensions.
func poolDims(input *tensor.RawTensor, kernelSize, stride int) (n, c, h, w, hOut, wOut int) {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if kernelSize <= 0 || stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d or stride %d", kernelSize, stride))
	}

	n, c, h, w = shape[0], shape[1], shape[2], shape[3]
	if kernelSize > h || kernelSize > w {
		panic(fmt.Sprintf("maxpool2d: kernel size %d too large for input %dx%d", kernelSize, h, w))
	}
	hOut = (h-kernelSize)/stride + 1
	wOut = (w-kernelSize)/stride + 1
	return n, c, h, w, hOut, wOut
}

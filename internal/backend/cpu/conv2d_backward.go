package cpu

import (
	"fmt"

	"github.com/gogh-ml/gogh/internal/parallel"
	"github.com/gogh-ml/gogh/internal/tensor"
)

// Conv2DInputBackward computes the gradient w.r.t. the convolution input
// (a transposed convolution of the output gradient with the kernel).
//
// There is intentionally no kernel-gradient counterpart: the backbone is
// frozen, so the only gradient path runs through the image being
// optimized.
//
// Reference: "A guide to convolution arithmetic for deep learning"
// (Dumoulin & Visin, 2016).
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := grad.Shape()

	N, CIn, H, W := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	COut, KH, KW := kernelShape[0], kernelShape[2], kernelShape[3]
	HOut, WOut := gradShape[2], gradShape[3]

	inputGrad, err := tensor.NewRaw(tensor.Shape{N, CIn, H, W}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d input backward: %v", err))
	}

	inputGradData := inputGrad.Data()
	gradData := grad.Data()
	kernelData := kernel.Data()

	// Each (batch, input-channel) plane is written by exactly one worker,
	// so the scatter below is race-free.
	parallel.ForChannels(N, CIn, func(n, cIn int) {
		planeGrad := inputGradData[(n*CIn+cIn)*H*W : (n*CIn+cIn+1)*H*W]

		for cOut := 0; cOut < COut; cOut++ {
			gradPlane := gradData[(n*COut+cOut)*HOut*WOut : (n*COut+cOut+1)*HOut*WOut]
			kernelPlane := kernelData[(cOut*CIn+cIn)*KH*KW : (cOut*CIn+cIn+1)*KH*KW]

			for outH := 0; outH < HOut; outH++ {
				for outW := 0; outW < WOut; outW++ {
					g := gradPlane[outH*WOut+outW]
					if g == 0 {
						continue
					}

					for kh := 0; kh < KH; kh++ {
						h := outH*stride - padding + kh
						if h < 0 || h >= H {
							continue
						}
						for kw := 0; kw < KW; kw++ {
							w := outW*stride - padding + kw
							if w < 0 || w >= W {
								continue
							}
							planeGrad[h*W+w] += g * kernelPlane[kh*KW+kw]
						}
					}
				}
			}
		}
	}, cpu.parallel)

	return inputGrad
}

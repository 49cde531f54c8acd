package autodiff_test

import (
	"math"
	"testing"

	"github.com/gogh-ml/gogh/internal/autodiff"
	"github.com/gogh-ml/gogh/internal/backend/cpu"
	"github.com/gogh-ml/gogh/internal/tensor"
)

// The conv -> pool -> mean chain below covers the backward kernels the
// feature extractor exercises. ReLU is left out of the finite-difference
// chain: its kink at zero makes central differences unreliable, and its
// backward is verified analytically in the backend tests.

var checkKernel = []float32{
	0.2, -0.1, 0.3,
	0.0, 0.5, -0.2,
	0.1, 0.4, -0.3,
}

func chainLoss(data []float32, t *testing.T) float32 {
	t.Helper()
	inner := cpu.New(tensor.CPU)
	backend := autodiff.New(inner)

	x, err := tensor.FromSlice(data, tensor.Shape{1, 1, 4, 4}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	k, err := tensor.FromSlice(checkKernel, tensor.Shape{1, 1, 3, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	conv := tensor.New(backend.Conv2D(x.Raw(), k.Raw(), nil, 1, 1), backend)
	pooled := tensor.New(backend.MaxPool2D(conv.Raw(), 2, 2), backend)
	return pooled.Mean().Item()
}

func TestConvChainGradientMatchesNumerical(t *testing.T) {
	input := []float32{
		0.1, -0.2, 0.3, 0.4,
		0.5, 0.6, -0.7, 0.8,
		-0.9, 1.0, 1.1, -1.2,
		1.3, -1.4, 1.5, 1.6,
	}

	inner := cpu.New(tensor.CPU)
	backend := autodiff.New(inner)
	tape := backend.Tape()

	x, err := tensor.FromSlice(input, tensor.Shape{1, 1, 4, 4}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	k, err := tensor.FromSlice(checkKernel, tensor.Shape{1, 1, 3, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	tape.StartRecording()
	conv := tensor.New(backend.Conv2D(x.Raw(), k.Raw(), nil, 1, 1), backend)
	pooled := tensor.New(backend.MaxPool2D(conv.Raw(), 2, 2), backend)
	_ = pooled.Mean()
	tape.StopRecording()

	grads := tape.Backward(scalarSeed(t), inner)
	grad, ok := grads[x.Raw()]
	if !ok {
		t.Fatal("no gradient reached the input")
	}

	const epsilon = 1e-3
	for i := range input {
		plus := append([]float32(nil), input...)
		minus := append([]float32(nil), input...)
		plus[i] += epsilon
		minus[i] -= epsilon

		numerical := (chainLoss(plus, t) - chainLoss(minus, t)) / (2 * epsilon)
		analytic := grad.Data()[i]

		if math.Abs(float64(analytic-numerical)) > 5e-3 {
			t.Errorf("grad[%d]: analytic %v, numerical %v", i, analytic, numerical)
		}
	}
}

func TestFrozenKernelGetsNoGradient(t *testing.T) {
	inner := cpu.New(tensor.CPU)
	backend := autodiff.New(inner)
	tape := backend.Tape()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, backend)
	k, _ := tensor.FromSlice([]float32{0.5}, tensor.Shape{1, 1, 1, 1}, backend)

	tape.StartRecording()
	conv := tensor.New(backend.Conv2D(x.Raw(), k.Raw(), nil, 1, 0), backend)
	_ = conv.Mean()
	tape.StopRecording()

	grads := tape.Backward(scalarSeed(t), inner)
	if _, ok := grads[k.Raw()]; ok {
		t.Error("kernel received a gradient; the backbone must stay frozen")
	}
	if _, ok := grads[x.Raw()]; !ok {
		t.Error("input received no gradient")
	}
}

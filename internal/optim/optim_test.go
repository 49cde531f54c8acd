package optim

import (
	"math"
	"testing"

	"github.com/gogh-ml/gogh/internal/tensor"
)

func paramWith(t *testing.T, data []float32) *tensor.Tensor {
	t.Helper()
	raw, err := tensor.NewRaw(tensor.Shape{len(data)}, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.Data(), data)
	return tensor.New(raw, nil)
}

func gradFor(t *testing.T, param *tensor.Tensor, data []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(param.Shape(), tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.Data(), data)
	return map[*tensor.RawTensor]*tensor.RawTensor{param.Raw(): raw}
}

func TestAdamFirstStep(t *testing.T) {
	param := paramWith(t, []float32{1.0})
	adam := NewAdam([]*tensor.Tensor{param}, AdamConfig{LR: 0.1})

	adam.Step(gradFor(t, param, []float32{0.5}))

	// On the first step bias correction makes m_hat = g and v_hat = g²,
	// so the update is lr * g/(|g| + eps) ≈ lr.
	want := 1.0 - 0.1
	if got := float64(param.Data()[0]); math.Abs(got-want) > 1e-4 {
		t.Errorf("param after first step = %v, want %v", got, want)
	}
}

func TestAdamStepDirection(t *testing.T) {
	param := paramWith(t, []float32{1.0, -1.0})
	adam := NewAdam([]*tensor.Tensor{param}, AdamConfig{})

	adam.Step(gradFor(t, param, []float32{0.2, -0.2}))

	if param.Data()[0] >= 1.0 {
		t.Error("positive gradient must decrease the parameter")
	}
	if param.Data()[1] <= -1.0 {
		t.Error("negative gradient must increase the parameter")
	}
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	// Minimize f(x) = (x-3)², gradient 2(x-3).
	param := paramWith(t, []float32{0})
	adam := NewAdam([]*tensor.Tensor{param}, AdamConfig{LR: 0.1})

	for i := 0; i < 500; i++ {
		x := param.Data()[0]
		adam.Step(gradFor(t, param, []float32{2 * (x - 3)}))
	}

	if got := param.Data()[0]; math.Abs(float64(got-3)) > 0.05 {
		t.Errorf("converged to %v, want 3", got)
	}
}

func TestAdamSkipsParamsWithoutGradient(t *testing.T) {
	a := paramWith(t, []float32{1})
	b := paramWith(t, []float32{2})
	adam := NewAdam([]*tensor.Tensor{a, b}, AdamConfig{})

	adam.Step(gradFor(t, a, []float32{0.1}))

	if b.Data()[0] != 2 {
		t.Errorf("parameter without gradient moved to %v", b.Data()[0])
	}
}

func TestAdamZeroState(t *testing.T) {
	param := paramWith(t, []float32{1})
	adam := NewAdam([]*tensor.Tensor{param}, AdamConfig{LR: 0.1})

	adam.Step(gradFor(t, param, []float32{0.5}))
	afterFirst := param.Data()[0]

	adam.ZeroState()
	param.Data()[0] = 1
	adam.Step(gradFor(t, param, []float32{0.5}))

	if got := param.Data()[0]; got != afterFirst {
		t.Errorf("step after ZeroState = %v, want %v (identical to a fresh first step)", got, afterFirst)
	}
}

func TestAdamDefaults(t *testing.T) {
	adam := NewAdam(nil, AdamConfig{})
	if adam.LR() != 0.001 {
		t.Errorf("default LR = %v, want 0.001", adam.LR())
	}
}

func TestSGDStep(t *testing.T) {
	param := paramWith(t, []float32{1.0})
	sgd := NewSGD([]*tensor.Tensor{param}, SGDConfig{LR: 0.5})

	sgd.Step(gradFor(t, param, []float32{0.2}))

	if got := param.Data()[0]; math.Abs(float64(got-0.9)) > 1e-6 {
		t.Errorf("param = %v, want 0.9", got)
	}
}

func TestSGDMomentumAccumulates(t *testing.T) {
	param := paramWith(t, []float32{0})
	sgd := NewSGD([]*tensor.Tensor{param}, SGDConfig{LR: 1, Momentum: 0.9})

	sgd.Step(gradFor(t, param, []float32{1})) // v=1, x=-1
	sgd.Step(gradFor(t, param, []float32{1})) // v=1.9, x=-2.9

	if got := param.Data()[0]; math.Abs(float64(got+2.9)) > 1e-5 {
		t.Errorf("param = %v, want -2.9", got)
	}
}

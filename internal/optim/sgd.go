package optim

import "github.com/gogh-ml/gogh/internal/tensor"

// SGD implements stochastic gradient descent with optional momentum.
// Kept mainly as a baseline for comparing optimizer behavior; the
// transfer engine defaults to Adam.
type SGD struct {
	params   []*tensor.Tensor
	lr       float32
	momentum float32
	velocity map[*tensor.Tensor][]float32
}

// SGDConfig holds SGD hyperparameters. A zero LR selects 0.01.
type SGDConfig struct {
	LR       float32
	Momentum float32
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*tensor.Tensor, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		velocity: make(map[*tensor.Tensor][]float32, len(params)),
	}
}

// Step applies one SGD update to every parameter that has a gradient in
// grads, in place.
func (s *SGD) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad, ok := grads[param.Raw()]
		if !ok {
			continue
		}

		data := param.Data()
		gradData := grad.Data()

		if s.momentum == 0 {
			for i, g := range gradData {
				data[i] -= s.lr * g
			}
			continue
		}

		vel, ok := s.velocity[param]
		if !ok {
			vel = make([]float32, len(data))
			s.velocity[param] = vel
		}
		for i, g := range gradData {
			vel[i] = s.momentum*vel[i] + g
			data[i] -= s.lr * vel[i]
		}
	}
}

// ZeroState clears the momentum buffers.
func (s *SGD) ZeroState() {
	s.velocity = make(map[*tensor.Tensor][]float32, len(s.params))
}

package vgg

import (
	"fmt"

	"github.com/gogh-ml/gogh/internal/loader"
	"github.com/gogh-ml/gogh/internal/nn"
	"github.com/gogh-ml/gogh/internal/tensor"
)

// Extractor runs images through the frozen backbone and captures feature
// maps at the five tap depths.
//
// The backbone never trains: its weights are constants, and the autodiff
// tape only ever sees the image input, so a single Extractor can serve
// every call of an optimization run.
type Extractor struct {
	layers  []tappedLayer
	backend tensor.Backend
}

type tappedLayer struct {
	index  int
	module nn.Module
	tapped bool
}

// Load opens a safetensors weights file and builds the feature extractor
// on the given backend. Weight names follow the torchvision convention
// ("features.N.weight" / "features.N.bias").
func Load(path string, backend tensor.Backend) (*Extractor, error) {
	reader, err := loader.Open(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	defer reader.Close()

	weights := make(map[string]*tensor.RawTensor)
	for _, spec := range architecture {
		if spec.kind != kindConv {
			continue
		}
		for _, suffix := range []string{"weight", "bias"} {
			name := fmt.Sprintf("features.%d.%s", spec.index, suffix)
			raw, err := reader.Load(name, backend.Device())
			if err != nil {
				return nil, &ModelLoadError{Path: path, Tensor: name, Err: err}
			}
			weights[name] = raw
		}
	}

	ext, err := NewFromWeights(weights, backend)
	if err != nil {
		if mle, ok := err.(*ModelLoadError); ok {
			mle.Path = path
			return nil, mle
		}
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	return ext, nil
}

// NewFromWeights builds the extractor from an in-memory weight map keyed
// by torchvision names. Shapes are validated against the architecture
// table before any layer is constructed.
func NewFromWeights(weights map[string]*tensor.RawTensor, backend tensor.Backend) (*Extractor, error) {
	taps := make(map[int]bool, len(TapIndices))
	for _, idx := range TapIndices {
		taps[idx] = true
	}

	layers := make([]tappedLayer, 0, len(architecture))
	for _, spec := range architecture {
		var module nn.Module
		switch spec.kind {
		case kindConv:
			conv, err := buildConv(spec, weights, backend)
			if err != nil {
				return nil, err
			}
			module = conv
		case kindReLU:
			module = nn.NewReLU()
		case kindPool:
			module = nn.NewMaxPool2D(2, 2, backend)
		}
		layers = append(layers, tappedLayer{index: spec.index, module: module, tapped: taps[spec.index]})
	}

	return &Extractor{layers: layers, backend: backend}, nil
}

func buildConv(spec layerSpec, weights map[string]*tensor.RawTensor, backend tensor.Backend) (*nn.Conv2D, error) {
	weightName := fmt.Sprintf("features.%d.weight", spec.index)
	biasName := fmt.Sprintf("features.%d.bias", spec.index)

	weightRaw, ok := weights[weightName]
	if !ok {
		return nil, &ModelLoadError{Tensor: weightName, Err: loader.ErrTensorNotFound}
	}
	biasRaw, ok := weights[biasName]
	if !ok {
		return nil, &ModelLoadError{Tensor: biasName, Err: loader.ErrTensorNotFound}
	}

	wantShape := tensor.Shape{spec.outChannels, spec.inChannels, 3, 3}
	if !weightRaw.Shape().Equal(wantShape) {
		return nil, &ModelLoadError{
			Tensor: weightName,
			Err:    fmt.Errorf("shape %v does not match expected %v", weightRaw.Shape(), wantShape),
		}
	}
	if biasRaw.NumElements() != spec.outChannels {
		return nil, &ModelLoadError{
			Tensor: biasName,
			Err:    fmt.Errorf("has %d elements, want %d", biasRaw.NumElements(), spec.outChannels),
		}
	}

	conv, err := nn.NewConv2D(tensor.New(weightRaw, backend), tensor.New(biasRaw, backend), 1, 1, backend)
	if err != nil {
		return nil, &ModelLoadError{Tensor: weightName, Err: err}
	}
	return conv, nil
}

// Extract runs the input through the backbone and returns the five
// tapped feature maps ordered shallow to deep. The input must be
// [1, 3, H, W].
func (e *Extractor) Extract(input *tensor.Tensor) ([]*tensor.Tensor, error) {
	shape := input.Shape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 {
		return nil, fmt.Errorf("vgg: expected input shape [1,3,H,W], got %v", shape)
	}

	features := make([]*tensor.Tensor, 0, len(TapIndices))
	current := input
	for _, layer := range e.layers {
		current = layer.module.Forward(current)
		if layer.tapped {
			features = append(features, current)
		}
	}
	return features, nil
}

// NumLayers returns the length of the backbone prefix.
func (e *Extractor) NumLayers() int {
	return len(e.layers)
}

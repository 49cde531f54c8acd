// Copyright 2025 The Gogh Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gogh performs neural style transfer: it repaints a content
// image in the style of another image by iteratively optimizing the
// pixels against feature statistics from a frozen VGG-19 backbone.
//
// Example:
//
//	model, err := gogh.NewModel("vgg19_features.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := model.Transfer(ctx, contentImg, styleImg, gogh.Options{
//	    Iterations:     200,
//	    ProcessingSize: 512,
//	})
package gogh

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/gogh-ml/gogh/internal/backend/cpu"
	"github.com/gogh-ml/gogh/internal/imaging"
	"github.com/gogh-ml/gogh/internal/tensor"
	"github.com/gogh-ml/gogh/internal/transfer"
	"github.com/gogh-ml/gogh/internal/vgg"
)

// Progress is a snapshot of one optimization iteration.
type Progress = transfer.Progress

// ExecutionError reports a failure during a transfer run.
type ExecutionError = transfer.ExecutionError

// ModelLoadError reports a failure to load the backbone weights.
type ModelLoadError = vgg.ModelLoadError

// DecodeError reports undecodable image input.
type DecodeError = imaging.DecodeError

// Weight bounds enforced by Options validation.
const (
	MinWeight = 0.1
	MaxWeight = 10.0
)

// Options configures a style transfer. Zero values select the defaults
// noted per field.
type Options struct {
	StyleWeight    float32 // style loss multiplier in [0.1, 10] (default 1.0)
	ContentWeight  float32 // content loss multiplier in [0.1, 10] (default 1.0)
	Iterations     int     // optimization steps; typically 50-500 (default 200)
	ProcessingSize int     // working resolution; typically 256, 384, 512 or 768 (default 512)

	// OnProgress, when non-nil, receives periodic loss snapshots.
	OnProgress func(Progress)
}

func (o *Options) setDefaults() {
	if o.StyleWeight == 0 {
		o.StyleWeight = 1
	}
	if o.ContentWeight == 0 {
		o.ContentWeight = 1
	}
	if o.Iterations == 0 {
		o.Iterations = 200
	}
	if o.ProcessingSize == 0 {
		o.ProcessingSize = 512
	}
}

func (o Options) validate() error {
	if o.StyleWeight < MinWeight || o.StyleWeight > MaxWeight {
		return fmt.Errorf("gogh: style weight %v outside [%v, %v]", o.StyleWeight, MinWeight, MaxWeight)
	}
	if o.ContentWeight < MinWeight || o.ContentWeight > MaxWeight {
		return fmt.Errorf("gogh: content weight %v outside [%v, %v]", o.ContentWeight, MinWeight, MaxWeight)
	}
	if o.Iterations <= 0 {
		return fmt.Errorf("gogh: iterations must be positive, got %d", o.Iterations)
	}
	if o.ProcessingSize <= 0 {
		return fmt.Errorf("gogh: processing size must be positive, got %d", o.ProcessingSize)
	}
	return nil
}

// Model is a reusable style transfer model. Backbone weights load
// lazily on the first Transfer call; construction is cheap.
//
// A Model is not safe for concurrent use: Transfer runs share one
// gradient tape, so callers must serialize calls on the same Model.
type Model struct {
	backend tensor.Backend
	engine  *transfer.Engine
}

// NewModel creates a model that reads VGG-19 weights from the given
// safetensors file on first use.
func NewModel(weightsPath string) (*Model, error) {
	if weightsPath == "" {
		return nil, fmt.Errorf("gogh: weights path must not be empty")
	}
	backend := cpu.New(tensor.CPU)
	engine := transfer.NewEngine(backend, func(b tensor.Backend) (transfer.FeatureExtractor, error) {
		return vgg.Load(weightsPath, b)
	})
	return &Model{backend: backend, engine: engine}, nil
}

// Transfer repaints content in the style of style and returns the
// result at the processing resolution. Cancelling ctx stops the run
// early; the error then wraps ctx.Err() and the returned image is the
// best candidate found before cancellation.
func (m *Model) Transfer(ctx context.Context, content, style image.Image, opts Options) (image.Image, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	contentT, err := imaging.Preprocess(content, opts.ProcessingSize, m.backend)
	if err != nil {
		return nil, err
	}
	styleT, err := imaging.Preprocess(style, opts.ProcessingSize, m.backend)
	if err != nil {
		return nil, err
	}

	result, err := m.engine.Run(ctx, contentT, styleT, transfer.Options{
		StyleWeight:   opts.StyleWeight,
		ContentWeight: opts.ContentWeight,
		Iterations:    opts.Iterations,
		OnProgress:    opts.OnProgress,
	})
	if err != nil {
		// Only a cancelled run yields the best candidate found so far;
		// every other failure abandons the partial result.
		if result != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			if img, convErr := imaging.ToImage(result); convErr == nil {
				return img, err
			}
		}
		return nil, err
	}
	return imaging.ToImage(result)
}

// StylePalette extracts the k most prominent colors of an image,
// dominant first. Useful for previewing a style image before a run.
func StylePalette(img image.Image, k int) []colorful.Color {
	return imaging.Palette(img, k)
}

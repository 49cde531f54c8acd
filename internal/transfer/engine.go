// Package transfer implements the iterative style transfer loop: starting
// from the content image, the candidate image is refined by gradient
// descent on a weighted sum of style (Gram matrix) and content (feature
// map) losses until the iteration budget runs out.
package transfer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gogh-ml/gogh/internal/autodiff"
	"github.com/gogh-ml/gogh/internal/optim"
	"github.com/gogh-ml/gogh/internal/tensor"
)

// FeatureExtractor produces feature maps at increasing depths for a
// [1,3,H,W] image tensor. The second-deepest feature doubles as the
// content representation; every feature participates in the style set.
type FeatureExtractor interface {
	Extract(input *tensor.Tensor) ([]*tensor.Tensor, error)
}

// ExtractorFactory builds a feature extractor on the given backend.
// The engine calls it at most once, on first use, so weight loading
// cost is only paid when a transfer actually runs.
type ExtractorFactory func(backend tensor.Backend) (FeatureExtractor, error)

// Progress is a snapshot of one optimization iteration, delivered to
// the OnProgress callback.
type Progress struct {
	Iteration       int
	TotalIterations int
	TotalLoss       float32
	StyleLoss       float32
	ContentLoss     float32
}

// Options configures a transfer run. Zero values select the defaults
// noted per field.
type Options struct {
	StyleWeight   float32 // style loss multiplier (default 1.0)
	ContentWeight float32 // content loss multiplier (default 1.0)
	Iterations    int     // optimization steps; 0 returns the content image unchanged
	LearningRate  float32 // Adam learning rate (default 0.01)

	// OnProgress, when non-nil, is called synchronously from the
	// optimization goroutine on iterations 1, 11, 21, ... and the final
	// iteration. It must not mutate the engine.
	OnProgress func(Progress)
}

// progressInterval is the stride of the progress schedule after the
// first iteration.
const progressInterval = 10

// Engine runs style transfer over a lazily constructed feature
// extractor. An Engine is safe for sequential reuse; a single run is
// single-goroutine (parallelism lives inside the backend kernels).
type Engine struct {
	base    tensor.Backend
	ad      *autodiff.Backend
	factory ExtractorFactory

	once      sync.Once
	extractor FeatureExtractor
	extErr    error
}

// NewEngine creates an engine on the given backend. The factory is not
// invoked until the first Run that needs features.
func NewEngine(base tensor.Backend, factory ExtractorFactory) *Engine {
	return &Engine{
		base:    base,
		ad:      autodiff.New(base),
		factory: factory,
	}
}

// Run performs style transfer and returns the stylized image tensor.
//
// content and style must both be [1,3,H,W] with identical shapes. The
// returned tensor has the same shape, with values clamped to [0,1].
// If ctx is cancelled mid-run, the lowest-loss candidate found so far
// is returned alongside the wrapped context error. Any other mid-run
// failure abandons the run: the partial candidate is discarded and the
// result is nil.
func (e *Engine) Run(ctx context.Context, content, style *tensor.Tensor, opts Options) (*tensor.Tensor, error) {
	if err := validate(content, style, opts); err != nil {
		return nil, &ExecutionError{Stage: StageSetup, Err: err}
	}
	if opts.StyleWeight == 0 {
		opts.StyleWeight = 1
	}
	if opts.ContentWeight == 0 {
		opts.ContentWeight = 1
	}
	if opts.LearningRate == 0 {
		opts.LearningRate = 0.01
	}

	if opts.Iterations == 0 {
		return content.Clone(), nil
	}

	extractor, err := e.loadExtractor()
	if err != nil {
		return nil, &ExecutionError{Stage: StageSetup, Err: err}
	}

	// Targets are computed once with the tape idle; they are constants
	// for the whole run and never re-extracted.
	tape := e.ad.Tape()
	tape.StopRecording()
	tape.Clear()

	contentTarget, styleGrams, err := e.computeTargets(extractor, content, style)
	if err != nil {
		return nil, &ExecutionError{Stage: StageTargets, Err: err}
	}

	candidate := tensor.New(content.Raw().Clone(), e.ad)
	optimizer := optim.NewAdam([]*tensor.Tensor{candidate}, optim.AdamConfig{LR: opts.LearningRate})

	best := candidate.Clone()
	bestLoss := float32(math.Inf(1))

	for i := 1; i <= opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return best, &ExecutionError{Stage: StageOptimization, Iteration: i, Err: err}
		}

		tape.Clear()
		tape.StartRecording()

		features, err := extractor.Extract(candidate)
		if err != nil {
			tape.StopRecording()
			return nil, &ExecutionError{Stage: StageOptimization, Iteration: i, Err: err}
		}
		if len(features) != len(styleGrams) {
			tape.StopRecording()
			return nil, &ExecutionError{
				Stage:     StageOptimization,
				Iteration: i,
				Err:       fmt.Errorf("extractor returned %d features, want %d", len(features), len(styleGrams)),
			}
		}

		var styleLoss *tensor.Tensor
		for j, feat := range features {
			term := MSE(GramMatrix(feat), styleGrams[j])
			if styleLoss == nil {
				styleLoss = term
			} else {
				styleLoss = styleLoss.Add(term)
			}
		}
		contentLoss := MSE(features[contentIndex(len(features))], contentTarget)

		// The Add below must stay the last recorded op: Backward seeds
		// the gradient at the tape's final output.
		totalLoss := styleLoss.Scale(opts.StyleWeight).Add(contentLoss.Scale(opts.ContentWeight))

		tape.StopRecording()

		seed, err := tensor.NewRaw(tensor.Shape{1}, e.base.Device())
		if err != nil {
			return nil, &ExecutionError{Stage: StageOptimization, Iteration: i, Err: err}
		}
		seed.Data()[0] = 1
		grads := tape.Backward(seed, e.base)

		optimizer.Step(grads)
		candidate.Clamp(0, 1)

		total := totalLoss.Item()
		if total < bestLoss {
			bestLoss = total
			best = candidate.Clone()
		}

		if opts.OnProgress != nil && reportAt(i, opts.Iterations) {
			opts.OnProgress(Progress{
				Iteration:       i,
				TotalIterations: opts.Iterations,
				TotalLoss:       total,
				StyleLoss:       styleLoss.Item(),
				ContentLoss:     contentLoss.Item(),
			})
		}
	}

	tape.Clear()
	return tensor.New(candidate.Raw(), e.base), nil
}

func (e *Engine) loadExtractor() (FeatureExtractor, error) {
	e.once.Do(func() {
		e.extractor, e.extErr = e.factory(e.ad)
	})
	return e.extractor, e.extErr
}

func (e *Engine) computeTargets(extractor FeatureExtractor, content, style *tensor.Tensor) (*tensor.Tensor, []*tensor.Tensor, error) {
	contentFeats, err := extractor.Extract(tensor.New(content.Raw(), e.ad))
	if err != nil {
		return nil, nil, fmt.Errorf("content features: %w", err)
	}
	if len(contentFeats) == 0 {
		return nil, nil, fmt.Errorf("extractor returned no features")
	}
	contentTarget := contentFeats[contentIndex(len(contentFeats))].Detach()

	styleFeats, err := extractor.Extract(tensor.New(style.Raw(), e.ad))
	if err != nil {
		return nil, nil, fmt.Errorf("style features: %w", err)
	}
	styleGrams := make([]*tensor.Tensor, len(styleFeats))
	for j, feat := range styleFeats {
		styleGrams[j] = GramMatrix(feat).Detach()
	}
	return contentTarget, styleGrams, nil
}

// contentIndex selects the content feature: the second-deepest tap, so
// content structure is matched at high depth while the deepest tap still
// contributes style statistics.
func contentIndex(numFeatures int) int {
	if numFeatures < 2 {
		return 0
	}
	return numFeatures - 2
}

// reportAt implements the progress schedule: iterations 1, 11, 21, ...
// plus the final iteration.
func reportAt(iteration, total int) bool {
	return iteration == total || (iteration-1)%progressInterval == 0
}

func validate(content, style *tensor.Tensor, opts Options) error {
	if content == nil || style == nil {
		return fmt.Errorf("content and style tensors must be non-nil")
	}
	if err := checkImageShape("content", content.Shape()); err != nil {
		return err
	}
	if err := checkImageShape("style", style.Shape()); err != nil {
		return err
	}
	if !content.Shape().Equal(style.Shape()) {
		return fmt.Errorf("content shape %v does not match style shape %v", content.Shape(), style.Shape())
	}
	if opts.Iterations < 0 {
		return fmt.Errorf("iterations must be >= 0, got %d", opts.Iterations)
	}
	if opts.StyleWeight < 0 || opts.ContentWeight < 0 {
		return fmt.Errorf("loss weights must be >= 0, got style=%v content=%v", opts.StyleWeight, opts.ContentWeight)
	}
	if opts.LearningRate < 0 {
		return fmt.Errorf("learning rate must be >= 0, got %v", opts.LearningRate)
	}
	return nil
}

func checkImageShape(name string, shape tensor.Shape) error {
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 {
		return fmt.Errorf("%s tensor must be [1,3,H,W], got %v", name, shape)
	}
	return nil
}

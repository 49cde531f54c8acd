package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogh-ml/gogh/internal/backend/cpu"
	"github.com/gogh-ml/gogh/internal/tensor"
	"github.com/gogh-ml/gogh/internal/transfer"
)

// identityExtractor exposes the image itself plus a scaled copy as its
// two feature maps. Both are differentiable, so the whole optimization
// loop runs end to end without VGG weights.
type identityExtractor struct {
	calls int
}

func (e *identityExtractor) Extract(input *tensor.Tensor) ([]*tensor.Tensor, error) {
	e.calls++
	return []*tensor.Tensor{input, input.Scale(0.5)}, nil
}

func identityFactory(counter *int) transfer.ExtractorFactory {
	return func(tensor.Backend) (transfer.FeatureExtractor, error) {
		if counter != nil {
			*counter++
		}
		return &identityExtractor{}, nil
	}
}

// faultyExtractor behaves like identityExtractor until a given number
// of Extract calls have succeeded, then fails on every call after.
type faultyExtractor struct {
	succeed int
	calls   int
	err     error
}

func (e *faultyExtractor) Extract(input *tensor.Tensor) ([]*tensor.Tensor, error) {
	e.calls++
	if e.calls > e.succeed {
		return nil, e.err
	}
	return []*tensor.Tensor{input, input.Scale(0.5)}, nil
}

func imageFrom(t *testing.T, backend tensor.Backend, fill func(i int) float32, size int) *tensor.Tensor {
	t.Helper()
	data := make([]float32, 3*size*size)
	for i := range data {
		data[i] = fill(i)
	}
	img, err := tensor.FromSlice(data, tensor.Shape{1, 3, size, size}, backend)
	require.NoError(t, err)
	return img
}

func contentStyle(t *testing.T, backend tensor.Backend) (*tensor.Tensor, *tensor.Tensor) {
	t.Helper()
	content := imageFrom(t, backend, func(i int) float32 { return 0.25 + 0.5*float32(i%7)/7 }, 4)
	style := imageFrom(t, backend, func(i int) float32 { return 0.9 - 0.8*float32(i%5)/5 }, 4)
	return content, style
}

func TestRunZeroIterationsReturnsContent(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	factoryCalls := 0
	engine := transfer.NewEngine(backend, identityFactory(&factoryCalls))

	content, style := contentStyle(t, backend)
	result, err := engine.Run(context.Background(), content, style, transfer.Options{Iterations: 0})
	require.NoError(t, err)

	assert.Equal(t, content.Data(), result.Data())
	assert.Equal(t, 0, factoryCalls, "no extractor needed for zero iterations")

	result.Data()[0] = 99
	assert.NotEqual(t, float32(99), content.Data()[0], "result must not alias the content buffer")
}

func TestRunShapeMismatchFailsFast(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	factoryCalls := 0
	engine := transfer.NewEngine(backend, identityFactory(&factoryCalls))

	content := imageFrom(t, backend, func(int) float32 { return 0.5 }, 4)
	style := imageFrom(t, backend, func(int) float32 { return 0.5 }, 8)

	_, err := engine.Run(context.Background(), content, style, transfer.Options{Iterations: 10})

	var ee *transfer.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, transfer.StageSetup, ee.Stage)
	assert.Equal(t, 0, factoryCalls, "validation must run before weight loading")
}

func TestRunRejectsBadInputs(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	engine := transfer.NewEngine(backend, identityFactory(nil))
	content, style := contentStyle(t, backend)

	_, err := engine.Run(context.Background(), nil, style, transfer.Options{Iterations: 1})
	assert.Error(t, err)

	_, err = engine.Run(context.Background(), content, style, transfer.Options{Iterations: -1})
	assert.Error(t, err)

	grayscale, err := tensor.FromSlice(make([]float32, 16), tensor.Shape{1, 1, 4, 4}, backend)
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), grayscale, grayscale, transfer.Options{Iterations: 1})
	assert.Error(t, err)
}

func TestRunOutputStaysInRange(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	engine := transfer.NewEngine(backend, identityFactory(nil))
	content, style := contentStyle(t, backend)

	result, err := engine.Run(context.Background(), content, style, transfer.Options{
		Iterations:   20,
		LearningRate: 0.05,
	})
	require.NoError(t, err)
	require.Equal(t, content.Shape(), result.Shape())

	for i, v := range result.Data() {
		require.GreaterOrEqual(t, v, float32(0), "element %d", i)
		require.LessOrEqual(t, v, float32(1), "element %d", i)
	}
}

func TestRunReducesLoss(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	engine := transfer.NewEngine(backend, identityFactory(nil))
	content, style := contentStyle(t, backend)

	var first, last float32
	_, err := engine.Run(context.Background(), content, style, transfer.Options{
		Iterations:   50,
		LearningRate: 0.02,
		OnProgress: func(p transfer.Progress) {
			if p.Iteration == 1 {
				first = p.TotalLoss
			}
			last = p.TotalLoss
		},
	})
	require.NoError(t, err)
	assert.Less(t, last, first, "loss must decrease over the run")
}

func TestRunProgressSchedule(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	engine := transfer.NewEngine(backend, identityFactory(nil))
	content, style := contentStyle(t, backend)

	var seen []int
	_, err := engine.Run(context.Background(), content, style, transfer.Options{
		Iterations: 25,
		OnProgress: func(p transfer.Progress) {
			seen = append(seen, p.Iteration)
			assert.Equal(t, 25, p.TotalIterations)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 11, 21, 25}, seen)
}

func TestRunProgressFinalNotDuplicated(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	engine := transfer.NewEngine(backend, identityFactory(nil))
	content, style := contentStyle(t, backend)

	var seen []int
	_, err := engine.Run(context.Background(), content, style, transfer.Options{
		Iterations: 11,
		OnProgress: func(p transfer.Progress) {
			seen = append(seen, p.Iteration)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 11}, seen)
}

func TestRunCancellationReturnsBestSoFar(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	engine := transfer.NewEngine(backend, identityFactory(nil))
	content, style := contentStyle(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Run(ctx, content, style, transfer.Options{Iterations: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var ee *transfer.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, transfer.StageOptimization, ee.Stage)
	assert.Equal(t, 1, ee.Iteration)

	require.NotNil(t, result)
	assert.Equal(t, content.Data(), result.Data(), "no step taken yet, best candidate is the content")
}

func TestRunMidwayCancellation(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	engine := transfer.NewEngine(backend, identityFactory(nil))
	content, style := contentStyle(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	result, err := engine.Run(ctx, content, style, transfer.Options{
		Iterations: 200,
		OnProgress: func(p transfer.Progress) {
			if p.Iteration >= 11 {
				cancel()
			}
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, content.Shape(), result.Shape())
}

func TestRunMidRunFailureDiscardsCandidate(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	boom := errors.New("feature pass failed")
	// Two Extract calls compute the targets, so the fifth call is the
	// forward pass of iteration 3.
	engine := transfer.NewEngine(backend, func(tensor.Backend) (transfer.FeatureExtractor, error) {
		return &faultyExtractor{succeed: 4, err: boom}, nil
	})
	content, style := contentStyle(t, backend)

	result, err := engine.Run(context.Background(), content, style, transfer.Options{Iterations: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var ee *transfer.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, transfer.StageOptimization, ee.Stage)
	assert.Equal(t, 3, ee.Iteration)

	assert.Nil(t, result, "only cancellation keeps the best-so-far candidate")
}

func TestRunDeterministic(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	opts := transfer.Options{Iterations: 15, LearningRate: 0.03}

	run := func() []float32 {
		engine := transfer.NewEngine(backend, identityFactory(nil))
		content, style := contentStyle(t, backend)
		result, err := engine.Run(context.Background(), content, style, opts)
		require.NoError(t, err)
		return result.Data()
	}

	assert.Equal(t, run(), run(), "identical inputs must give identical outputs")
}

func TestRunStyleWeightDominance(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	content, style := contentStyle(t, backend)

	distanceToContent := func(styleWeight, contentWeight float32) float64 {
		engine := transfer.NewEngine(backend, identityFactory(nil))
		result, err := engine.Run(context.Background(), content, style, transfer.Options{
			Iterations:    60,
			LearningRate:  0.02,
			StyleWeight:   styleWeight,
			ContentWeight: contentWeight,
		})
		require.NoError(t, err)

		var sum float64
		for i, v := range result.Data() {
			d := float64(v - content.Data()[i])
			sum += d * d
		}
		return sum
	}

	styleHeavy := distanceToContent(10, 0.1)
	contentHeavy := distanceToContent(0.1, 10)
	assert.Greater(t, styleHeavy, contentHeavy,
		"a style-heavy run must drift further from the content image")
}

func TestRunExtractorFactoryErrorSurfaces(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	boom := errors.New("weights corrupted")
	engine := transfer.NewEngine(backend, func(tensor.Backend) (transfer.FeatureExtractor, error) {
		return nil, boom
	})
	content, style := contentStyle(t, backend)

	_, err := engine.Run(context.Background(), content, style, transfer.Options{Iterations: 5})
	var ee *transfer.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, transfer.StageSetup, ee.Stage)
	assert.ErrorIs(t, err, boom)
}

func TestRunLoadsExtractorOnce(t *testing.T) {
	backend := cpu.New(tensor.CPU)
	factoryCalls := 0
	engine := transfer.NewEngine(backend, identityFactory(&factoryCalls))
	content, style := contentStyle(t, backend)

	for i := 0; i < 3; i++ {
		_, err := engine.Run(context.Background(), content, style, transfer.Options{Iterations: 2})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, factoryCalls)
}

func TestExecutionErrorFormatting(t *testing.T) {
	err := &transfer.ExecutionError{Stage: transfer.StageOptimization, Iteration: 7, Err: fmt.Errorf("boom")}
	assert.Contains(t, err.Error(), "iteration 7")
	assert.Contains(t, err.Error(), transfer.StageOptimization)

	err = &transfer.ExecutionError{Stage: transfer.StageSetup, Err: fmt.Errorf("boom")}
	assert.NotContains(t, err.Error(), "iteration")
}

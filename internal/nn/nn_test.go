package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogh-ml/gogh/internal/backend/cpu"
	"github.com/gogh-ml/gogh/internal/nn"
	"github.com/gogh-ml/gogh/internal/tensor"
)

func TestConv2DForward(t *testing.T) {
	backend := cpu.New(tensor.CPU)

	weight, err := tensor.FromSlice([]float32{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}, tensor.Shape{1, 1, 3, 3}, backend)
	require.NoError(t, err)
	bias, err := tensor.FromSlice([]float32{0.5}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	conv, err := nn.NewConv2D(weight, bias, 1, 1, backend)
	require.NoError(t, err)
	assert.Equal(t, 1, conv.InChannels())
	assert.Equal(t, 1, conv.OutChannels())

	input, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	out := conv.Forward(input)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.InDeltaSlice(t, []float32{1.5, 2.5, 3.5, 4.5}, out.Data(), 1e-5)
}

func TestNewConv2DValidation(t *testing.T) {
	backend := cpu.New(tensor.CPU)

	weight3D, err := tensor.FromSlice(make([]float32, 9), tensor.Shape{1, 3, 3}, backend)
	require.NoError(t, err)
	_, err = nn.NewConv2D(weight3D, nil, 1, 1, backend)
	assert.Error(t, err, "3D weight must be rejected")

	weight, err := tensor.FromSlice(make([]float32, 2*1*3*3), tensor.Shape{2, 1, 3, 3}, backend)
	require.NoError(t, err)

	_, err = nn.NewConv2D(weight, nil, 0, 1, backend)
	assert.Error(t, err, "zero stride must be rejected")

	badBias, err := tensor.FromSlice(make([]float32, 3), tensor.Shape{3}, backend)
	require.NoError(t, err)
	_, err = nn.NewConv2D(weight, badBias, 1, 1, backend)
	assert.Error(t, err, "bias size mismatch must be rejected")
}

func TestConv2DForwardPanicsOnChannelMismatch(t *testing.T) {
	backend := cpu.New(tensor.CPU)

	weight, err := tensor.FromSlice(make([]float32, 2*3*3*3), tensor.Shape{2, 3, 3, 3}, backend)
	require.NoError(t, err)
	conv, err := nn.NewConv2D(weight, nil, 1, 1, backend)
	require.NoError(t, err)

	input, err := tensor.FromSlice(make([]float32, 4), tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	assert.Panics(t, func() { conv.Forward(input) })
}

func TestReLUForward(t *testing.T) {
	backend := cpu.New(tensor.CPU)

	input, err := tensor.FromSlice([]float32{-1, 0, 2, -3}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	out := nn.NewReLU().Forward(input)
	assert.Equal(t, []float32{0, 0, 2, 0}, out.Data())
}

func TestMaxPool2DForward(t *testing.T) {
	backend := cpu.New(tensor.CPU)

	input, err := tensor.FromSlice([]float32{
		1, 2,
		3, 4,
	}, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	out := nn.NewMaxPool2D(2, 2, backend).Forward(input)
	assert.Equal(t, tensor.Shape{1, 1, 1, 1}, out.Shape())
	assert.Equal(t, float32(4), out.Item())
}

func TestSequentialChains(t *testing.T) {
	backend := cpu.New(tensor.CPU)

	seq := nn.NewSequential(nn.NewReLU(), nn.NewMaxPool2D(2, 2, backend))
	assert.Equal(t, 2, seq.Len())

	input, err := tensor.FromSlice([]float32{
		-1, 2,
		3, -4,
	}, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	out := seq.Forward(input)
	assert.Equal(t, float32(3), out.Item())
}

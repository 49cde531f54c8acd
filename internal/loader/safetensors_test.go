package loader_test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogh-ml/gogh/internal/loader"
	"github.com/gogh-ml/gogh/internal/tensor"
)

func rawWith(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.CPU)
	require.NoError(t, err)
	copy(raw.Data(), data)
	return raw
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.safetensors")

	err := loader.Write(path, map[string]*tensor.RawTensor{
		"features.0.weight": rawWith(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}),
		"features.0.bias":   rawWith(t, []float32{-0.5, 0.25}, tensor.Shape{2}),
	})
	require.NoError(t, err)

	reader, err := loader.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	assert.ElementsMatch(t, []string{"features.0.weight", "features.0.bias"}, reader.Names())
	assert.True(t, reader.Has("features.0.bias"))
	assert.False(t, reader.Has("features.1.weight"))

	weight, err := reader.Load("features.0.weight", tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, weight.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, weight.Data())

	all, err := reader.LoadAll(tensor.CPU)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []float32{-0.5, 0.25}, all["features.0.bias"].Data())
}

func TestLoadMissingTensor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.safetensors")
	require.NoError(t, loader.Write(path, map[string]*tensor.RawTensor{
		"a": rawWith(t, []float32{1}, tensor.Shape{1}),
	}))

	reader, err := loader.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.Load("b", tensor.CPU)
	assert.ErrorIs(t, err, loader.ErrTensorNotFound)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := loader.Open(filepath.Join(t.TempDir(), "nope.safetensors"))
	assert.Error(t, err)
}

func TestOpenTruncatedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.safetensors")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := loader.Open(path)
	assert.Error(t, err)
}

func TestOpenRejectsHugeHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.safetensors")
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, 1<<40)
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	_, err := loader.Open(path)
	assert.ErrorIs(t, err, loader.ErrHeaderTooLarge)
}

func TestLoadF16Widens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f16.safetensors")

	// Hand-assembled file with one F16 tensor holding [1.0, -2.0, 0.5].
	header := []byte(`{"x":{"dtype":"F16","shape":[3],"data_offsets":[0,6]}}`)
	payload := make([]byte, 6)
	binary.LittleEndian.PutUint16(payload[0:], 0x3c00) // 1.0
	binary.LittleEndian.PutUint16(payload[2:], 0xc000) // -2.0
	binary.LittleEndian.PutUint16(payload[4:], 0x3800) // 0.5

	buf := make([]byte, 8, 8+len(header)+len(payload))
	binary.LittleEndian.PutUint64(buf, uint64(len(header)))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	reader, err := loader.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	x, err := reader.Load("x", tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -2, 0.5}, x.Data())
}

func TestLoadRejectsUnsupportedDType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i64.safetensors")

	header := []byte(`{"x":{"dtype":"I64","shape":[1],"data_offsets":[0,8]}}`)
	buf := make([]byte, 8, 16+len(header))
	binary.LittleEndian.PutUint64(buf, uint64(len(header)))
	buf = append(buf, header...)
	buf = append(buf, make([]byte, 8)...)
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	reader, err := loader.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.Load("x", tensor.CPU)
	assert.ErrorIs(t, err, loader.ErrUnsupportedDType)
}

func TestMetadataSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.safetensors")

	header := []byte(`{"__metadata__":{"format":"pt"},"x":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`)
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, math.Float32bits(7))

	buf := make([]byte, 8, 8+len(header)+len(payload))
	binary.LittleEndian.PutUint64(buf, uint64(len(header)))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	reader, err := loader.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, []string{"x"}, reader.Names())
	x, err := reader.Load("x", tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []float32{7}, x.Data())
}

// Package loader reads pretrained network weights from safetensors files.
//
// SafeTensors format:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw bytes]
package loader

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gogh-ml/gogh/internal/tensor"
)

// Common errors.
var (
	ErrHeaderTooLarge   = errors.New("header exceeds maximum size")
	ErrUnsupportedDType = errors.New("unsupported tensor dtype")
	ErrTensorNotFound   = errors.New("tensor not found")
)

// maxHeaderSize bounds the JSON header to keep hostile files from
// allocating unbounded memory.
const maxHeaderSize = 100 * 1024 * 1024

// TensorInfo describes a tensor entry in the safetensors header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end) relative to data section
}

// header is the parsed JSON header: tensor entries plus optional metadata.
type header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

func (h *header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]TensorInfo)
	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}
	return nil
}

// SafeTensorsReader reads tensors from a safetensors file.
type SafeTensorsReader struct {
	file       *os.File
	header     header
	dataOffset int64
}

// Open opens a safetensors file and parses its header.
func Open(path string) (*SafeTensorsReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var h header
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	return &SafeTensorsReader{
		file:       file,
		header:     h,
		dataOffset: int64(8 + headerSize),
	}, nil
}

// Close closes the underlying file.
func (r *SafeTensorsReader) Close() error {
	return r.file.Close()
}

// Names returns the tensor names present in the file.
func (r *SafeTensorsReader) Names() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	return names
}

// Has reports whether a tensor with the given name exists.
func (r *SafeTensorsReader) Has(name string) bool {
	_, ok := r.header.Tensors[name]
	return ok
}

// Load reads one tensor by name as float32. F32 and F16 payloads are
// supported; F16 is widened on read.
func (r *SafeTensorsReader) Load(name string, device tensor.Device) (*tensor.RawTensor, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}

	raw, err := tensor.NewRaw(tensor.Shape(info.Shape), device)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}

	byteLen := info.DataOffsets[1] - info.DataOffsets[0]
	buf := make([]byte, byteLen)
	if _, err := r.file.ReadAt(buf, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("tensor %q: failed to read data: %w", name, err)
	}

	data := raw.Data()
	switch info.DType {
	case "F32":
		if int(byteLen) != 4*len(data) {
			return nil, fmt.Errorf("tensor %q: data size %d does not match shape %v", name, byteLen, info.Shape)
		}
		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		}
	case "F16":
		if int(byteLen) != 2*len(data) {
			return nil, fmt.Errorf("tensor %q: data size %d does not match shape %v", name, byteLen, info.Shape)
		}
		for i := range data {
			data[i] = float16ToFloat32(binary.LittleEndian.Uint16(buf[2*i:]))
		}
	default:
		return nil, fmt.Errorf("%w: %s (tensor %q)", ErrUnsupportedDType, info.DType, name)
	}

	return raw, nil
}

// LoadAll reads every tensor in the file.
func (r *SafeTensorsReader) LoadAll(device tensor.Device) (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for name := range r.header.Tensors {
		raw, err := r.Load(name, device)
		if err != nil {
			return nil, err
		}
		out[name] = raw
	}
	return out, nil
}

// float16ToFloat32 widens an IEEE 754 half-precision value.
func float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign) // signed zero
		}
		// Subnormal: normalize.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		return math.Float32frombits(sign | e<<23 | frac<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13) // Inf/NaN
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
	}
}

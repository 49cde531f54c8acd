package loader

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/gogh-ml/gogh/internal/tensor"
)

// Write serializes tensors to a safetensors file. All tensors are written
// with dtype F32 in name order, so the output is deterministic.
func Write(path string, tensors map[string]*tensor.RawTensor) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make(map[string]TensorInfo, len(tensors))
	var offset int64
	for _, name := range names {
		t := tensors[name]
		byteLen := int64(4 * t.NumElements())
		entries[name] = TensorInfo{
			DType:       "F32",
			Shape:       []int(t.Shape()),
			DataOffsets: [2]int64{offset, offset + byteLen},
		}
		offset += byteLen
	}

	headerBytes, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := file.Write(headerBytes); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, 0, 4096)
	for _, name := range names {
		data := tensors[name].Data()
		if cap(buf) < 4*len(data) {
			buf = make([]byte, 4*len(data))
		}
		buf = buf[:4*len(data)]
		for i, v := range data {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
		}
		if _, err := file.Write(buf); err != nil {
			return fmt.Errorf("failed to write tensor %q: %w", name, err)
		}
	}
	return nil
}

package tensor

import "fmt"

// Tensor is a float32 tensor bound to a compute backend.
//
// Example:
//
//	backend := cpu.New(tensor.CPU)
//	t := tensor.Zeros(tensor.Shape{1, 3, 256, 256}, backend)
//	u := t.Add(t)
type Tensor struct {
	raw          *RawTensor
	backend      Backend
	requiresGrad bool
}

// New creates a Tensor from a RawTensor and backend.
func New(raw *RawTensor, b Backend) *Tensor {
	return &Tensor{raw: raw, backend: b}
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice(data []float32, shape Shape, b Backend) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d",
			shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), data)

	return New(raw, b), nil
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, b Backend) *Tensor {
	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return New(raw, b)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float32, b Backend) *Tensor {
	t := Zeros(shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, b Backend) *Tensor {
	return Full(shape, 1, b)
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.raw.Shape()
}

// Device returns the tensor's compute device.
func (t *Tensor) Device() Device {
	return t.raw.Device()
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
// Used by backend implementations and the optimizer for low-level access.
func (t *Tensor) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor) Backend() Backend {
	return t.backend
}

// Data returns the underlying float32 slice (zero-copy).
//
// WARNING: Modifications to the returned slice modify the tensor.
func (t *Tensor) Data() []float32 {
	return t.raw.Data()
}

// Item returns the scalar value of a single-element tensor.
// Panics otherwise.
func (t *Tensor) Item() float32 {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for single-element tensors, got shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) At(indices ...int) float32 {
	return t.Data()[t.offsetOf(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) Set(value float32, indices ...int) {
	t.Data()[t.offsetOf(indices)] = value
}

func (t *Tensor) offsetOf(indices []int) int {
	shape := t.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(shape), len(indices)))
	}
	offset := 0
	strides := t.raw.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, shape[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// Clone creates a deep copy of the tensor. The copy does not inherit
// gradient tracking.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		raw:     t.raw.Clone(),
		backend: t.backend,
	}
}

// Detach returns a tensor sharing the same data without gradient tracking.
// Operations on the detached tensor still record on the tape if the backend
// is an autodiff decorator; Detach only clears the requires-grad mark used
// to look up gradients after a backward pass.
func (t *Tensor) Detach() *Tensor {
	return &Tensor{
		raw:     t.raw,
		backend: t.backend,
	}
}

// RequireGrad marks this tensor for gradient lookup after a backward pass.
// Returns the tensor itself for chaining.
func (t *Tensor) RequireGrad() *Tensor {
	t.requiresGrad = true
	return t
}

// RequiresGrad reports whether this tensor is marked for gradient lookup.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// Clamp projects every element into [lo, hi] in place. This is a raw data
// mutation: it never participates in gradient tracking, matching its use
// as a post-update pixel projection.
func (t *Tensor) Clamp(lo, hi float32) *Tensor {
	data := t.Data()
	for i, v := range data {
		if v < lo {
			data[i] = lo
		} else if v > hi {
			data[i] = hi
		}
	}
	return t
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v on %s", t.Shape(), t.Device())
}

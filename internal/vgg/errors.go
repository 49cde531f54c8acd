package vgg

import "fmt"

// ModelLoadError reports a failure to load or assemble the backbone from
// a weights file: missing file, malformed container, or a tensor whose
// name or shape does not match the expected architecture.
type ModelLoadError struct {
	Path   string // weights file, empty when built from memory
	Tensor string // offending tensor name, empty when not tensor-specific
	Err    error
}

func (e *ModelLoadError) Error() string {
	switch {
	case e.Tensor != "" && e.Path != "":
		return fmt.Sprintf("vgg: failed to load model from %s (tensor %q): %v", e.Path, e.Tensor, e.Err)
	case e.Path != "":
		return fmt.Sprintf("vgg: failed to load model from %s: %v", e.Path, e.Err)
	case e.Tensor != "":
		return fmt.Sprintf("vgg: failed to load model (tensor %q): %v", e.Tensor, e.Err)
	default:
		return fmt.Sprintf("vgg: failed to load model: %v", e.Err)
	}
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

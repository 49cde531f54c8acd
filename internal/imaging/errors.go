package imaging

import "fmt"

// DecodeError reports that image bytes could not be decoded, with the
// source name (file path or caller-supplied label) for context.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("imaging: failed to decode image: %v", e.Err)
	}
	return fmt.Sprintf("imaging: failed to decode image %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

package transfer

import "fmt"

// Stages of a transfer run, used to locate failures in ExecutionError.
const (
	StageSetup        = "setup"
	StageTargets      = "targets"
	StageOptimization = "optimization"
)

// ExecutionError reports a failure during a style transfer run, tagged
// with the stage it happened in and, for optimization failures, the
// iteration number (1-based; 0 when not applicable).
type ExecutionError struct {
	Stage     string
	Iteration int
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.Iteration > 0 {
		return fmt.Sprintf("transfer: %s failed at iteration %d: %v", e.Stage, e.Iteration, e.Err)
	}
	return fmt.Sprintf("transfer: %s failed: %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

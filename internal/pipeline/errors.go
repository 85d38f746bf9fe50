package pipeline

import (
	"errors"
	"fmt"
)

// ErrCancelled reports that a run stopped because of a user cancel request.
var ErrCancelled = errors.New("run cancelled by user")

// StepError wraps the first step failure of a run with the failing step name.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// GraphError reports an invalid step graph before any work starts.
type GraphError struct {
	Reason string
}

func (e *GraphError) Error() string {
	return "invalid step graph: " + e.Reason
}

func graphErrorf(format string, args ...any) error {
	return &GraphError{Reason: fmt.Sprintf(format, args...)}
}

package core

import (
	"errors"
	"fmt"
)

// ErrNoStartNode is returned when a Flow is run without a start workflow.
var ErrNoStartNode = errors.New("flow has no start node")

// StageError reports the stage whose unrecovered failure aborted a flow.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// wrapStageError wraps err unless it already names a stage, so nested flows
// report the innermost failing stage.
func wrapStageError(stage string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

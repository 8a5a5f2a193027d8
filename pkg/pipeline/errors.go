package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoSources is returned when a loop is configured without sources.
var ErrNoSources = errors.New("pipeline: no sources configured")

// ErrAlreadyRun is returned when Run is called on a loop that already ran.
var ErrAlreadyRun = errors.New("pipeline: loop already ran")

// Stage names a step of one iteration.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageDetect    Stage = "detect"
	StageComposite Stage = "composite"
	StageShow      Stage = "show"
)

// StageError wraps a failure with the stage, source and iteration it
// happened in.
type StageError struct {
	// Stage is the failed step.
	Stage Stage

	// Source is the source label, empty for composite and show.
	Source string

	// Iteration is the 1-based iteration number.
	Iteration uint64

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("iteration %d: %s: %v", e.Iteration, e.Stage, e.Err)
	}
	return fmt.Sprintf("iteration %d: %s %s: %v", e.Iteration, e.Stage, e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

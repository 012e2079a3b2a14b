package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDownload     = errors.New("download failed")
	ErrExtraction   = errors.New("extraction failed")
	ErrPersist      = errors.New("persist failed")
	ErrModeration   = errors.New("moderation check failed")
	ErrJobFailed    = errors.New("external job failed")
	ErrJobTimeout   = errors.New("external job timed out")
	ErrUnauthorized = errors.New("unauthorized")
)

// StageError records which pipeline stage failed. It unwraps to both the
// taxonomy sentinel (Kind) and the underlying cause.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewStageError wraps err for stage, classified as kind.
func NewStageError(stage string, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

package pipeline

import "fmt"

type inputUnsupportedError struct {
	reason string
}

func (e *inputUnsupportedError) Error() string {
	return fmt.Sprintf("input unsupported: %s", e.reason)
}

// ErrInputUnsupported marks inputs the pipeline cannot decode or that carry
// no usable frames.
func ErrInputUnsupported(reason string) error {
	return &inputUnsupportedError{reason: reason}
}

// IsInputUnsupported reports whether err is an input-unsupported error.
func IsInputUnsupported(err error) bool {
	_, ok := err.(*inputUnsupportedError)
	return ok
}

type processingFailedError struct {
	stage string
	err   error
}

func (e *processingFailedError) Error() string {
	return fmt.Sprintf("processing failed during %s: %v", e.stage, e.err)
}

func (e *processingFailedError) Unwrap() error { return e.err }

// ErrProcessingFailed wraps a mid-run failure with the stage it occurred in.
func ErrProcessingFailed(stage string, err error) error {
	return &processingFailedError{stage: stage, err: err}
}

// IsProcessingFailed reports whether err is a processing failure.
func IsProcessingFailed(err error) bool {
	_, ok := err.(*processingFailedError)
	return ok
}

package engine

import "fmt"

// notInitializedError signals an operation invoked before the session is ready.
type notInitializedError struct{ op string }

func (e notInitializedError) Error() string { return e.op + ": engine not initialized" }

// ErrNotInitialized constructs a notInitializedError for the named operation.
func ErrNotInitialized(op string) error { return notInitializedError{op: op} }

// IsNotInitialized reports whether err indicates a missing session.
func IsNotInitialized(err error) bool {
	_, ok := err.(notInitializedError)
	return ok
}

// tileProcessingError signals an extraction or inference failure on one tile.
// It aborts the whole upscale call; prior tile writes are not rolled back.
type tileProcessingError struct {
	tx, ty int
	err    error
}

func (e tileProcessingError) Error() string {
	return fmt.Sprintf("tile (%d,%d) processing failed: %v", e.tx, e.ty, e.err)
}

func (e tileProcessingError) Unwrap() error { return e.err }

// ErrTileProcessing constructs a tileProcessingError.
func ErrTileProcessing(tx, ty int, err error) error {
	return tileProcessingError{tx: tx, ty: ty, err: err}
}

// IsTileProcessing reports whether err indicates a failed tile.
func IsTileProcessing(err error) bool {
	_, ok := err.(tileProcessingError)
	return ok
}

// backendUnavailableError signals a missing compute backend (e.g. a build
// without ONNX Runtime support).
type backendUnavailableError struct{ msg string }

func (e backendUnavailableError) Error() string { return e.msg }

// ErrBackendUnavailable constructs a backendUnavailableError.
func ErrBackendUnavailable(msg string) error { return backendUnavailableError{msg: msg} }

// IsBackendUnavailable reports whether err indicates a missing compute backend.
func IsBackendUnavailable(err error) bool {
	_, ok := err.(backendUnavailableError)
	return ok
}

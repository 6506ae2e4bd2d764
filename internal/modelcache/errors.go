package modelcache

import "fmt"

// modelUnavailableError signals that no weight source is configured for the
// requested model. This is a configuration error, not a runtime fault.
type modelUnavailableError struct{ id string }

func (e modelUnavailableError) Error() string { return "no weight source for model: " + e.id }

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(id string) error { return modelUnavailableError{id: id} }

// IsModelUnavailable reports whether err indicates a missing weight source.
func IsModelUnavailable(err error) bool {
	_, ok := err.(modelUnavailableError)
	return ok
}

// downloadFailedError signals a transport-level failure fetching weights.
type downloadFailedError struct {
	url string
	err error
}

func (e downloadFailedError) Error() string {
	return fmt.Sprintf("weight download failed: %s: %v", e.url, e.err)
}

func (e downloadFailedError) Unwrap() error { return e.err }

// ErrDownloadFailed constructs a downloadFailedError.
func ErrDownloadFailed(url string, err error) error { return downloadFailedError{url: url, err: err} }

// IsDownloadFailed reports whether err indicates a failed weight fetch.
func IsDownloadFailed(err error) bool {
	_, ok := err.(downloadFailedError)
	return ok
}

package controller

// busyError signals an overlapping processing request for 429 mapping.
type busyError struct{}

func (busyError) Error() string { return "a processing run is already in progress" }

// ErrBusy constructs a busyError.
func ErrBusy() error { return busyError{} }

// IsBusy reports whether err indicates backpressure (return 429).
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

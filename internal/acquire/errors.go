package acquire

import (
	"context"
	"errors"
)

// canceledError signals that the user backed out of an acquisition.
type canceledError struct{ what string }

func (e canceledError) Error() string { return e.what + " canceled" }

// ErrPickCanceled is returned when the file picker is dismissed.
var ErrPickCanceled error = canceledError{what: "file pick"}

// IsCanceled reports whether err is a user cancellation rather than a failure:
// a dismissed picker or an aborted download.
func IsCanceled(err error) bool {
	var e canceledError
	return errors.As(err, &e) || errors.Is(err, context.Canceled)
}

// busyError signals that a download is already running.
type busyError struct{}

func (busyError) Error() string { return "a download is already in progress" }

// ErrBusy is returned when a second download is started before the first ends.
var ErrBusy error = busyError{}

// IsBusy reports whether err indicates a running download.
func IsBusy(err error) bool {
	var e busyError
	return errors.As(err, &e)
}

// invalidFileError signals a picked file that is not a model file.
type invalidFileError struct{ name, want string }

func (e invalidFileError) Error() string {
	return e.name + ": not a model file (want " + e.want + ")"
}

// IsInvalidFile reports whether err rejects the picked file itself.
func IsInvalidFile(err error) bool {
	var e invalidFileError
	return errors.As(err, &e)
}

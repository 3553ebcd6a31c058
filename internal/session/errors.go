package session

import "errors"

// MsgLoadModelFirst is shown when a prompt is submitted without a model.
const MsgLoadModelFirst = "Load a model first!"

// noModelError signals a submit with no current blob reference.
type noModelError struct{}

func (noModelError) Error() string { return MsgLoadModelFirst }

// ErrNoModel is returned by Submit when no model is loaded.
var ErrNoModel error = noModelError{}

// IsNoModel reports whether err indicates a missing model.
func IsNoModel(err error) bool {
	var e noModelError
	return errors.As(err, &e)
}

// preconditionError signals a missing platform capability.
type preconditionError struct{ msg string }

func (e preconditionError) Error() string { return e.msg }

// IsPrecondition reports whether err indicates an unrecoverable environment failure.
func IsPrecondition(err error) bool {
	var e preconditionError
	return errors.As(err, &e)
}

var errGenerating = busyError{}

// busyError signals a submit while a response is still streaming.
type busyError struct{}

func (busyError) Error() string { return "a response is already being generated" }

// IsBusy reports whether err indicates a running generation.
func IsBusy(err error) bool {
	var e busyError
	return errors.As(err, &e)
}

package engine

import "errors"

// unavailableError signals a missing runtime capability so callers can report
// it as an environment precondition rather than a transient failure.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailable-runtime error.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing runtime capability.
func IsUnavailable(err error) bool {
	var e unavailableError
	return errors.As(err, &e)
}
